package http

import (
	"net/http"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
)

// SignUpHandler serves /v1/client/sign_ups.
type SignUpHandler struct {
	Backend *service.Backend
}

// HandleCreate godoc
//
//	@Summary		Start a sign-up
//	@Description	Creates a sign-up on the device's client. Fields sent along are applied at once and the sign-up completes as soon as nothing is missing or unverified.
//	@Tags			SignUp
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			strategy		formData	string		false	"Redirect or ID token strategy"
//	@Param			email_address	formData	string		false	"Email address"
//	@Param			phone_number	formData	string		false	"Phone number"
//	@Param			username		formData	string		false	"Username"
//	@Param			password		formData	string		false	"Password"
//	@Param			first_name		formData	string		false	"First name"
//	@Param			last_name		formData	string		false	"Last name"
//	@Param			unsafe_metadata	formData	string		false	"JSON object"
//	@Param			transfer		formData	bool		false	"Transfer a transferable sign-in"
//	@Success		200				{object}	Envelope	"response: sign_up_attempt"
//	@Failure		422				{object}	httpx.ErrorBody
//	@Router			/v1/client/sign_ups [post].
func (h *SignUpHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		body, err := signUpBody(r)
		if err != nil {
			return service.Result{}, err
		}
		return h.Backend.CreateSignUp(r.Context(), deviceToken(r), body)
	})
}

func (h *SignUpHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	nonce := r.URL.Query().Get("rotating_token_nonce")
	res, err := h.Backend.GetSignUp(r.Context(), deviceToken(r), r.PathValue("id"), nonce)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}

// HandleUpdate godoc
//
//	@Summary	Update sign-up fields
//	@Tags		SignUp
//	@Accept		application/x-www-form-urlencoded
//	@Produce	json
//	@Param		id	path		string		true	"Sign-up id"
//	@Success	200	{object}	Envelope	"response: sign_up_attempt"
//	@Failure	422	{object}	httpx.ErrorBody
//	@Router		/v1/client/sign_ups/{id} [patch].
func (h *SignUpHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		body, err := signUpBody(r)
		if err != nil {
			return service.Result{}, err
		}
		return h.Backend.UpdateSignUp(r.Context(), deviceToken(r), r.PathValue("id"), body)
	})
}

func (h *SignUpHandler) HandlePrepareVerification(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		return h.Backend.PrepareVerification(r.Context(), deviceToken(r), r.PathValue("id"), factorBody(r))
	})
}

func (h *SignUpHandler) HandleAttemptVerification(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		return h.Backend.AttemptVerification(r.Context(), deviceToken(r), r.PathValue("id"), factorBody(r))
	})
}
