package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
)

// DevHandler serves the /v1/dev endpoints that script the backend from
// tests: the emulated provider consent, user seeding and fault injection.
type DevHandler struct {
	Backend *service.Backend
	Faults  *Faults
}

// HandleAuthorize godoc
//
//	@Summary		Emulated provider consent
//	@Description	Plays the OAuth provider of a redirect strategy. With a subject or email the consent is given and the browser is sent back to the flow's redirect_url.
//	@Tags			Dev
//	@Produce		json
//	@Param			state		query		string	true	"State from the external verification redirect URL"
//	@Param			subject		query		string	false	"Provider account id, defaults to email"
//	@Param			email		query		string	false	"Provider account email"
//	@Success		302			{string}	string	"Redirect to the flow's redirect_url"
//	@Failure		401			{object}	httpx.ErrorBody	"consent_required"
//	@Failure		404			{object}	httpx.ErrorBody
//	@Router			/v1/dev/oauth/authorize [get].
func (h *DevHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subject, email := q.Get("subject"), q.Get("email")

	if subject == "" && email == "" {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorItem{
			Code:        "consent_required",
			Message:     "pick an account to continue",
			LongMessage: "Repeat the request with a subject or email query parameter to consent as that provider account.",
			Meta:        map[string]any{"state": q.Get("state"), "provider": q.Get("provider")},
		})
		return
	}

	callback, err := h.Backend.CompleteOAuth(r.Context(), q.Get("state"), subject, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, callback, http.StatusFound)
}

// CreateUserRequest seeds a user.
type CreateUserRequest struct {
	EmailAddress     string            `json:"email_address"`
	PhoneNumber      string            `json:"phone_number"`
	Username         string            `json:"username"`
	Password         string            `json:"password"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	TOTP             bool              `json:"totp"`
	BackupCodes      []string          `json:"backup_codes"`
	PasskeyID        string            `json:"passkey_id"`
	ExternalAccounts map[string]string `json:"external_accounts"`
}

// CreateUserResponse returns the seeded user and, with TOTP, its secret.
type CreateUserResponse struct {
	User       authsdk.User `json:"user"`
	TOTPSecret string       `json:"totp_secret,omitempty"`
}

// HandleCreateUser godoc
//
//	@Summary	Seed a user
//	@Tags		Dev
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateUserRequest	true	"User"
//	@Success	201		{object}	CreateUserResponse
//	@Failure	422		{object}	httpx.ErrorBody
//	@Router		/v1/dev/users [post].
func (h *DevHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorItem{Code: "body_invalid", Message: "request body must be JSON"})
		return
	}

	seeded, err := h.Backend.CreateUser(r.Context(), service.UserSeed{
		EmailAddress:     req.EmailAddress,
		PhoneNumber:      req.PhoneNumber,
		Username:         req.Username,
		Password:         req.Password,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		TOTP:             req.TOTP,
		BackupCodes:      req.BackupCodes,
		PasskeyID:        req.PasskeyID,
		ExternalAccounts: req.ExternalAccounts,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, CreateUserResponse{User: seeded.User, TOTPSecret: seeded.TOTPSecret})
}

// HandleArmFault godoc
//
//	@Summary		Arm a fault
//	@Description	The next count requests to method and path are answered with the given error instead.
//	@Tags			Dev
//	@Accept			json
//	@Param			request	body	Fault	true	"Fault"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorBody
//	@Router			/v1/dev/faults [post].
func (h *DevHandler) HandleArmFault(w http.ResponseWriter, r *http.Request) {
	var f Fault
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorItem{Code: "body_invalid", Message: "request body must be JSON"})
		return
	}
	if err := h.Faults.Arm(f); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorItem{Code: "fault_invalid", Message: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResetFaults disarms every fault.
func (h *DevHandler) HandleResetFaults(w http.ResponseWriter, r *http.Request) {
	h.Faults.Reset()
	w.WriteHeader(http.StatusNoContent)
}
