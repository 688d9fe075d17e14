package strategy

// SignInCreate starts a sign-in attempt.
type SignInCreate interface {
	SignInBody() SignInBody
	signInCreate()
}

// SignUpCreate starts a sign-up attempt.
type SignUpCreate interface {
	SignUpBody() SignUpBody
	signUpCreate()
}

// Identifier claims an identifier (email, phone, username). With a Password
// the backend verifies the first factor in the same request. Strategy may
// name a first factor the backend should prepare right away.
type Identifier struct {
	Identifier string
	Password   string
	Strategy   Name
}

func (i Identifier) SignInBody() SignInBody {
	body := SignInBody{Identifier: i.Identifier, Password: i.Password, Strategy: i.Strategy}
	if i.Password != "" && i.Strategy == "" {
		body.Strategy = NamePassword
	}
	return body
}

// OAuth starts a redirect flow with an OAuth provider ("google", "github").
type OAuth struct {
	Provider    string
	RedirectURL string
}

func (o OAuth) SignInBody() SignInBody {
	return SignInBody{Strategy: OAuthName(o.Provider), RedirectURL: o.RedirectURL}
}

func (o OAuth) SignUpBody() SignUpBody {
	return SignUpBody{Strategy: OAuthName(o.Provider), RedirectURL: o.RedirectURL}
}

// EnterpriseSSO starts a redirect flow with the identity provider that owns
// the identifier's domain.
type EnterpriseSSO struct {
	Identifier  string
	RedirectURL string
}

func (e EnterpriseSSO) SignInBody() SignInBody {
	return SignInBody{Strategy: NameEnterpriseSSO, Identifier: e.Identifier, RedirectURL: e.RedirectURL}
}

func (e EnterpriseSSO) SignUpBody() SignUpBody {
	return SignUpBody{Strategy: NameEnterpriseSSO, EmailAddress: e.Identifier, RedirectURL: e.RedirectURL}
}

// IDToken exchanges an ID token issued by a native provider SDK.
// FirstName and LastName are only sent on sign-up.
type IDToken struct {
	Provider  string
	Token     string
	FirstName string
	LastName  string
}

func (i IDToken) SignInBody() SignInBody {
	return SignInBody{Strategy: IDTokenName(i.Provider), Token: i.Token}
}

func (i IDToken) SignUpBody() SignUpBody {
	return SignUpBody{
		Strategy:  IDTokenName(i.Provider),
		Token:     i.Token,
		FirstName: i.FirstName,
		LastName:  i.LastName,
	}
}

// Passkey starts an identifier-less passkey sign-in.
type Passkey struct{}

func (Passkey) SignInBody() SignInBody { return SignInBody{Strategy: NamePasskey} }

// Ticket redeems a sign-in or invitation ticket. The backend usually
// completes the attempt immediately.
type Ticket struct {
	Ticket string
}

func (t Ticket) SignInBody() SignInBody {
	return SignInBody{Strategy: NameTicket, Ticket: t.Ticket}
}

func (t Ticket) SignUpBody() SignUpBody {
	return SignUpBody{Strategy: NameTicket, Ticket: t.Ticket}
}

// Transfer continues an attempt the backend moved from the other flow.
type Transfer struct{}

func (Transfer) SignInBody() SignInBody { return SignInBody{Transfer: true} }
func (Transfer) SignUpBody() SignUpBody { return SignUpBody{Transfer: true} }

// Standard signs up with profile fields, optionally with a password.
type Standard struct {
	EmailAddress   string
	PhoneNumber    string
	Username       string
	Password       string
	FirstName      string
	LastName       string
	UnsafeMetadata Metadata
	LegalAccepted  bool
}

func (s Standard) SignUpBody() SignUpBody {
	return SignUpBody{
		EmailAddress:   s.EmailAddress,
		PhoneNumber:    s.PhoneNumber,
		Username:       s.Username,
		Password:       s.Password,
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		UnsafeMetadata: s.UnsafeMetadata,
		LegalAccepted:  s.LegalAccepted,
	}
}

// None creates an empty sign-up to be filled in with updates.
type None struct{}

func (None) SignUpBody() SignUpBody { return SignUpBody{} }

func (Identifier) signInCreate()    {}
func (OAuth) signInCreate()         {}
func (EnterpriseSSO) signInCreate() {}
func (IDToken) signInCreate()       {}
func (Passkey) signInCreate()       {}
func (Ticket) signInCreate()        {}
func (Transfer) signInCreate()      {}

func (OAuth) signUpCreate()         {}
func (EnterpriseSSO) signUpCreate() {}
func (IDToken) signUpCreate()       {}
func (Ticket) signUpCreate()        {}
func (Transfer) signUpCreate()      {}
func (Standard) signUpCreate()      {}
func (None) signUpCreate()          {}
