package http

import (
	"net/http"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
)

// SignInHandler serves /v1/client/sign_ins.
type SignInHandler struct {
	Backend *service.Backend
}

// HandleCreate godoc
//
//	@Summary		Start a sign-in
//	@Description	Creates a sign-in attempt on the device's client. A device without a token gets a new client and its token in the Authorization response header.
//	@Tags			SignIn
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			strategy		formData	string		false	"Strategy, e.g. password, email_code, oauth_google, passkey"
//	@Param			identifier		formData	string		false	"Email address, phone number or username"
//	@Param			password		formData	string		false	"Password, completes the first factor in one step"
//	@Param			redirect_url	formData	string		false	"Callback for redirect strategies"
//	@Param			token			formData	string		false	"Provider ID token"
//	@Param			transfer		formData	bool		false	"Transfer a transferable sign-up"
//	@Success		200				{object}	Envelope	"response: sign_in_attempt"
//	@Failure		401				{object}	httpx.ErrorBody
//	@Failure		422				{object}	httpx.ErrorBody
//	@Router			/v1/client/sign_ins [post].
func (h *SignInHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	res, err := h.Backend.CreateSignIn(r.Context(), deviceToken(r), signInBody(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}

// HandleGet godoc
//
//	@Summary	Get a sign-in
//	@Tags		SignIn
//	@Produce	json
//	@Param		id						path		string		true	"Sign-in id"
//	@Param		rotating_token_nonce	query		string		false	"Nonce from a redirect callback"
//	@Success	200						{object}	Envelope	"response: sign_in_attempt"
//	@Failure	404						{object}	httpx.ErrorBody
//	@Router		/v1/client/sign_ins/{id} [get].
func (h *SignInHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	nonce := r.URL.Query().Get("rotating_token_nonce")
	res, err := h.Backend.GetSignIn(r.Context(), deviceToken(r), r.PathValue("id"), nonce)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}

// HandlePrepareFirstFactor godoc
//
//	@Summary	Prepare the first factor
//	@Tags		SignIn
//	@Accept		application/x-www-form-urlencoded
//	@Produce	json
//	@Param		id					path		string		true	"Sign-in id"
//	@Param		strategy			formData	string		true	"Strategy"
//	@Param		email_address_id	formData	string		false	"Email address for email_code"
//	@Param		phone_number_id		formData	string		false	"Phone number for phone_code"
//	@Param		redirect_url		formData	string		false	"Callback for redirect strategies"
//	@Success	200					{object}	Envelope	"response: sign_in_attempt"
//	@Failure	422					{object}	httpx.ErrorBody
//	@Router		/v1/client/sign_ins/{id}/prepare_first_factor [post].
func (h *SignInHandler) HandlePrepareFirstFactor(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		return h.Backend.PrepareFirstFactor(r.Context(), deviceToken(r), r.PathValue("id"), factorBody(r))
	})
}

// HandleAttemptFirstFactor godoc
//
//	@Summary	Attempt the first factor
//	@Tags		SignIn
//	@Accept		application/x-www-form-urlencoded
//	@Produce	json
//	@Param		id						path		string		true	"Sign-in id"
//	@Param		strategy				formData	string		true	"Strategy"
//	@Param		code					formData	string		false	"One-time code"
//	@Param		password				formData	string		false	"Password"
//	@Param		public_key_credential	formData	string		false	"Passkey credential JSON"
//	@Success	200						{object}	Envelope	"response: sign_in_attempt"
//	@Failure	422						{object}	httpx.ErrorBody
//	@Router		/v1/client/sign_ins/{id}/attempt_first_factor [post].
func (h *SignInHandler) HandleAttemptFirstFactor(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		return h.Backend.AttemptFirstFactor(r.Context(), deviceToken(r), r.PathValue("id"), factorBody(r))
	})
}

func (h *SignInHandler) HandlePrepareSecondFactor(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		return h.Backend.PrepareSecondFactor(r.Context(), deviceToken(r), r.PathValue("id"), factorBody(r))
	})
}

func (h *SignInHandler) HandleAttemptSecondFactor(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		return h.Backend.AttemptSecondFactor(r.Context(), deviceToken(r), r.PathValue("id"), factorBody(r))
	})
}

// HandleResetPassword godoc
//
//	@Summary	Set a new password after a verified reset code
//	@Tags		SignIn
//	@Accept		application/x-www-form-urlencoded
//	@Produce	json
//	@Param		id							path		string		true	"Sign-in id"
//	@Param		password					formData	string		true	"New password"
//	@Param		sign_out_of_other_sessions	formData	bool		false	"End the user's other sessions"
//	@Success	200							{object}	Envelope	"response: sign_in_attempt"
//	@Failure	400							{object}	httpx.ErrorBody
//	@Router		/v1/client/sign_ins/{id}/reset_password [post].
func (h *SignInHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	serveForm(w, r, func() (service.Result, error) {
		return h.Backend.ResetPassword(r.Context(), deviceToken(r), r.PathValue("id"),
			r.PostForm.Get("password"), formBool(r, "sign_out_of_other_sessions"))
	})
}
