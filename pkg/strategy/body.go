package strategy

import (
	"encoding/json"
	"net/url"
)

// SignInBody is the form body of POST /v1/client/sign_ins.
type SignInBody struct {
	Strategy    Name   `url:"strategy,omitempty"`
	Identifier  string `url:"identifier,omitempty"`
	Password    string `url:"password,omitempty"`
	RedirectURL string `url:"redirect_url,omitempty"`
	Token       string `url:"token,omitempty"`
	Ticket      string `url:"ticket,omitempty"`
	Transfer    bool   `url:"transfer,int,omitempty"`
}

// SignUpBody is the form body of POST /v1/client/sign_ups.
type SignUpBody struct {
	Strategy       Name     `url:"strategy,omitempty"`
	EmailAddress   string   `url:"email_address,omitempty"`
	PhoneNumber    string   `url:"phone_number,omitempty"`
	Username       string   `url:"username,omitempty"`
	Password       string   `url:"password,omitempty"`
	FirstName      string   `url:"first_name,omitempty"`
	LastName       string   `url:"last_name,omitempty"`
	UnsafeMetadata Metadata `url:"unsafe_metadata,omitempty"`
	LegalAccepted  bool     `url:"legal_accepted,int,omitempty"`
	RedirectURL    string   `url:"redirect_url,omitempty"`
	Token          string   `url:"token,omitempty"`
	Ticket         string   `url:"ticket,omitempty"`
	Transfer       bool     `url:"transfer,int,omitempty"`
}

// FactorBody is the form body of the prepare and attempt endpoints.
type FactorBody struct {
	Strategy            Name   `url:"strategy"`
	EmailAddressID      string `url:"email_address_id,omitempty"`
	PhoneNumberID       string `url:"phone_number_id,omitempty"`
	RedirectURL         string `url:"redirect_url,omitempty"`
	Code                string `url:"code,omitempty"`
	Password            string `url:"password,omitempty"`
	PublicKeyCredential string `url:"public_key_credential,omitempty"`
}

// Metadata is free-form JSON sent as a single form field.
type Metadata map[string]any

// EncodeValues implements query.Encoder. The backend expects nested metadata
// as a JSON document rather than flattened keys.
func (m Metadata) EncodeValues(key string, v *url.Values) error {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(map[string]any(m))
	if err != nil {
		return err
	}
	v.Set(key, string(raw))
	return nil
}
