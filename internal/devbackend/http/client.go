package http

import (
	"net/http"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
)

// ClientHandler serves the device's client resource.
type ClientHandler struct {
	Backend *service.Backend
}

// HandleGet godoc
//
//	@Summary		Get the current client
//	@Description	Returns the client of the device token in Authorization. Devices without a known token get a null response.
//	@Tags			Client
//	@Produce		json
//	@Param			Authorization	header		string		false	"Device token"
//	@Success		200				{object}	Envelope	"response: client or null"
//	@Failure		401				{object}	httpx.ErrorBody
//	@Router			/v1/client [get].
func (h *ClientHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	res, err := h.Backend.GetClient(r.Context(), deviceToken(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}

// HandleCreate godoc
//
//	@Summary		Create a client
//	@Description	Starts a new client for the device. The device token is returned in the Authorization response header.
//	@Tags			Client
//	@Produce		json
//	@Success		200	{object}	Envelope	"response: client"
//	@Header			200	{string}	Authorization	"New device token"
//	@Failure		401	{object}	httpx.ErrorBody
//	@Router			/v1/client [post].
func (h *ClientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	res, err := h.Backend.CreateClient(r.Context(), deviceToken(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}

// HandleSignOut godoc
//
//	@Summary	Sign out of every session on the device
//	@Tags		Client
//	@Produce	json
//	@Success	200	{object}	Envelope	"response: client"
//	@Failure	401	{object}	httpx.ErrorBody
//	@Router		/v1/client [delete].
func (h *ClientHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	res, err := h.Backend.SignOutAll(r.Context(), deviceToken(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}

// HandleVerify godoc
//
//	@Summary		Verify a device assertion
//	@Description	Exchanges a platform assertion for an attested device token.
//	@Tags			Client
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			assertion	formData	string		true	"Device assertion"
//	@Success		200			{object}	Envelope	"response: client"
//	@Header			200			{string}	Authorization	"Attested device token"
//	@Failure		422			{object}	httpx.ErrorBody
//	@Router			/v1/client/verify [post].
func (h *ClientHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	res, err := h.Backend.VerifyClient(r.Context(), deviceToken(r), r.PostForm.Get("assertion"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}
