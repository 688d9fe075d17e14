package http

import (
	"net/http"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
)

// SessionsHandler serves /v1/client/sessions.
type SessionsHandler struct {
	Backend *service.Backend
}

// HandleToken godoc
//
//	@Summary		Mint a session token
//	@Description	Returns a short lived JWT for an active session of the device, optionally shaped by a template.
//	@Tags			Sessions
//	@Produce		json
//	@Param			id			path		string		true	"Session id"
//	@Param			template	path		string		false	"Token template"
//	@Success		200			{object}	Envelope	"response: token"
//	@Failure		401			{object}	httpx.ErrorBody
//	@Failure		404			{object}	httpx.ErrorBody
//	@Router			/v1/client/sessions/{id}/tokens [post].
func (h *SessionsHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	res, err := h.Backend.CreateToken(r.Context(), deviceToken(r), r.PathValue("id"), r.PathValue("template"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}

// HandleRemove godoc
//
//	@Summary	Sign out of one session
//	@Tags		Sessions
//	@Produce	json
//	@Param		id	path		string		true	"Session id"
//	@Success	200	{object}	Envelope	"response: session"
//	@Failure	401	{object}	httpx.ErrorBody
//	@Router		/v1/client/sessions/{id}/remove [post].
func (h *SessionsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	res, err := h.Backend.RemoveSession(r.Context(), deviceToken(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}
