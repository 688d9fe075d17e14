package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

// Envelope is the body of every successful client API response.
type Envelope struct {
	Response any             `json:"response"`
	Client   *authsdk.Client `json:"client,omitempty"`
}

// deviceToken returns the device token the SDK sends in Authorization. A
// Bearer prefix is tolerated for hand-written requests.
func deviceToken(r *http.Request) string {
	tok := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(tok, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return tok
}

// writeResult writes the envelope and hands a newly issued device token
// back in the Authorization response header.
func writeResult(w http.ResponseWriter, res service.Result) {
	if res.DeviceToken != "" {
		w.Header().Set("Authorization", res.DeviceToken)
	}
	httpx.WriteJSON(w, http.StatusOK, Envelope{Response: res.Response, Client: res.Client})
}

// writeError maps a service error onto the errors body. Anything else is
// logged and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		httpx.WriteError(w, svcErr.Status, httpx.ErrorItem{
			Code:        svcErr.Code,
			Message:     svcErr.Message,
			LongMessage: svcErr.LongMessage,
			Meta:        svcErr.Meta,
		})
		return
	}

	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorItem{
		Code:    service.CodeInternal,
		Message: "internal server error",
	})
}

func writeBadForm(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorItem{
		Code:    "form_body_invalid",
		Message: "request body must be application/x-www-form-urlencoded",
	})
}

// parseForm accepts an empty body or a form encoded one.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		writeBadForm(w)
		return false
	}
	if err := r.ParseForm(); err != nil {
		writeBadForm(w)
		return false
	}
	return true
}

func formBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.PostForm.Get(key))
	return b
}

func signInBody(r *http.Request) strategy.SignInBody {
	f := r.PostForm
	return strategy.SignInBody{
		Strategy:    strategy.Name(f.Get("strategy")),
		Identifier:  strings.TrimSpace(f.Get("identifier")),
		Password:    f.Get("password"),
		RedirectURL: f.Get("redirect_url"),
		Token:       f.Get("token"),
		Ticket:      f.Get("ticket"),
		Transfer:    formBool(r, "transfer"),
	}
}

func signUpBody(r *http.Request) (strategy.SignUpBody, error) {
	f := r.PostForm
	body := strategy.SignUpBody{
		Strategy:      strategy.Name(f.Get("strategy")),
		EmailAddress:  strings.TrimSpace(f.Get("email_address")),
		PhoneNumber:   strings.TrimSpace(f.Get("phone_number")),
		Username:      strings.TrimSpace(f.Get("username")),
		Password:      f.Get("password"),
		FirstName:     f.Get("first_name"),
		LastName:      f.Get("last_name"),
		LegalAccepted: formBool(r, "legal_accepted"),
		RedirectURL:   f.Get("redirect_url"),
		Token:         f.Get("token"),
		Ticket:        f.Get("ticket"),
		Transfer:      formBool(r, "transfer"),
	}
	if raw := f.Get("unsafe_metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body.UnsafeMetadata); err != nil {
			return body, &service.Error{
				Status:  http.StatusUnprocessableEntity,
				Code:    "form_param_format_invalid",
				Message: "unsafe_metadata must be a JSON object",
				Meta:    map[string]any{"param_name": "unsafe_metadata"},
			}
		}
	}
	return body, nil
}

func factorBody(r *http.Request) strategy.FactorBody {
	f := r.PostForm
	return strategy.FactorBody{
		Strategy:            strategy.Name(f.Get("strategy")),
		EmailAddressID:      f.Get("email_address_id"),
		PhoneNumberID:       f.Get("phone_number_id"),
		RedirectURL:         f.Get("redirect_url"),
		Code:                strings.TrimSpace(f.Get("code")),
		Password:            f.Get("password"),
		PublicKeyCredential: f.Get("public_key_credential"),
	}
}

// serveForm parses the form and answers with the result of fn.
func serveForm(w http.ResponseWriter, r *http.Request, fn func() (service.Result, error)) {
	if !parseForm(w, r) {
		return
	}
	res, err := fn()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, res)
}
