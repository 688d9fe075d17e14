package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/idx"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// Backend is an in-memory emulation of the client API. All state sits
// behind one mutex; every operation is atomic with respect to the others.
type Backend struct {
	opts   Options
	logger *slog.Logger
	signer *jwtx.HS256Signer

	mu          sync.Mutex
	clients     map[string]*clientRecord // by id
	deviceTo    map[string]string        // device token -> client id
	users       map[string]*userRecord   // by id
	identifiers map[string]string        // normalized identifier -> user id
	externals   map[string]string        // provider:subject -> user id
	passkeys    map[string]string        // passkey id -> user id
	signIns     map[string]*signInRecord
	signUps     map[string]*signUpRecord
	grants      map[string]*oauthGrant // by state
}

type clientRecord struct {
	id       string
	token    string
	attested bool

	signInID string
	signUpID string
	sessions []*sessionRecord

	lastActiveSessionID string
	createdAt           time.Time
	updatedAt           time.Time
}

type userRecord struct {
	user authsdk.User

	emailID      string
	phoneID      string
	passwordHash string
	totpSecret   string
	backupCodes  map[string]bool
	passkeyID    string
}

type sessionRecord struct {
	session authsdk.Session
	userID  string
	amr     []string
}

// New creates an empty backend.
func New(opts Options, logger *slog.Logger) (*Backend, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slogx.Discard()
	}

	secret := opts.TokenSecret
	if len(secret) == 0 {
		raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		secret = []byte(raw)
	}
	signer, err := jwtx.NewHS256Signer("dev-1", secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	return &Backend{
		opts:        opts,
		logger:      logger,
		signer:      signer,
		clients:     map[string]*clientRecord{},
		deviceTo:    map[string]string{},
		users:       map[string]*userRecord{},
		identifiers: map[string]string{},
		externals:   map[string]string{},
		passkeys:    map[string]string{},
		signIns:     map[string]*signInRecord{},
		signUps:     map[string]*signUpRecord{},
		grants:      map[string]*oauthGrant{},
	}, nil
}

// Signer returns the session token signer, e.g. to verify minted tokens.
func (b *Backend) Signer() *jwtx.HS256Signer { return b.signer }

// Code returns the one-time code prepared verifications expect.
func (b *Backend) Code() string { return b.opts.Code }

func (b *Backend) now() time.Time { return b.opts.Clock() }

// Result is what an endpoint answers with: the resource and the client
// snapshot it touched. DeviceToken is set when the device must store a new
// token.
type Result struct {
	Response    any
	Client      *authsdk.Client
	DeviceToken string
}

// ============================================================================
// Devices & clients
// ============================================================================

// device resolves the client of a device token. With create, a device
// without a token gets a new client.
func (b *Backend) device(token string, create bool) (*clientRecord, bool, error) {
	if token == "" {
		if b.opts.RequireAssertion {
			return nil, false, errRequiresAssertion
		}
		if !create {
			return nil, false, nil
		}
		return b.newClient(false), true, nil
	}

	id, ok := b.deviceTo[token]
	if !ok {
		return nil, false, errAuthenticationInvalid
	}
	c := b.clients[id]
	if b.opts.RequireAssertion && !c.attested {
		return nil, false, errRequiresAssertion
	}
	return c, false, nil
}

func (b *Backend) newClient(attested bool) *clientRecord {
	now := b.now()
	c := &clientRecord{
		id:        idx.Prefixed("client"),
		token:     "dvt_" + cryptox.MustGenerateToken(cryptox.TokenSize256),
		attested:  attested,
		createdAt: now,
		updatedAt: now,
	}
	b.clients[c.id] = c
	b.deviceTo[c.token] = c.id
	return c
}

// result answers with resp and the client's snapshot. A client created by
// the request hands out its token.
func (b *Backend) result(c *clientRecord, created bool, resp any) Result {
	c.updatedAt = b.now()
	r := Result{Response: resp, Client: b.snapshot(c)}
	if created {
		r.DeviceToken = c.token
	}
	return r
}

// snapshot renders the client as the SDK sees it. Every value is a copy.
func (b *Backend) snapshot(c *clientRecord) *authsdk.Client {
	out := &authsdk.Client{
		Object:              "client",
		ID:                  c.id,
		Sessions:            make([]authsdk.Session, 0, len(c.sessions)),
		LastActiveSessionID: c.lastActiveSessionID,
		CreatedAt:           authsdk.At(c.createdAt),
		UpdatedAt:           authsdk.At(c.updatedAt),
	}
	for _, s := range c.sessions {
		out.Sessions = append(out.Sessions, b.sessionView(s))
	}
	if si, ok := b.signIns[c.signInID]; ok {
		out.SignIn = si.view()
	}
	if su, ok := b.signUps[c.signUpID]; ok {
		out.SignUp = su.view()
	}
	return out
}

// GetClient returns the device's client, or a nil response when the device
// has none or its token is unknown.
func (b *Backend) GetClient(_ context.Context, token string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, _, err := b.device(token, false)
	if errors.Is(err, errAuthenticationInvalid) || (err == nil && c == nil) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Response: b.snapshot(c)}, nil
}

// CreateClient starts a new client for the device, replacing whatever the
// presented token pointed at.
func (b *Backend) CreateClient(_ context.Context, token string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.opts.RequireAssertion {
		return Result{}, errRequiresAssertion
	}
	c := b.newClient(false)
	b.logger.Debug("client created", "client_id", c.id, "replaces_token", token != "")
	return Result{Response: b.snapshot(c), DeviceToken: c.token}, nil
}

// VerifyClient accepts a device assertion. A known device is marked
// attested; an unknown one gets a new attested client. The device token is
// always returned.
func (b *Backend) VerifyClient(_ context.Context, token, assertion string) (Result, error) {
	if strings.TrimSpace(assertion) == "" {
		return Result{}, errParamMissing("assertion")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var c *clientRecord
	if id, ok := b.deviceTo[token]; ok {
		c = b.clients[id]
		c.attested = true
	} else {
		c = b.newClient(true)
	}
	return Result{Response: b.snapshot(c), DeviceToken: c.token}, nil
}

// SignOutAll ends every session of the device and drops in-progress flows.
// The client itself stays.
func (b *Backend) SignOutAll(_ context.Context, token string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, _, err := b.device(token, false)
	if err != nil {
		return Result{}, err
	}
	if c == nil {
		return Result{}, errAuthenticationInvalid
	}

	for _, s := range c.sessions {
		if s.session.Status == authsdk.SessionActive {
			s.session.Status = authsdk.SessionEnded
		}
	}
	c.lastActiveSessionID = ""
	c.signInID = ""
	c.signUpID = ""
	c.updatedAt = b.now()
	return Result{Response: b.snapshot(c)}, nil
}

// ============================================================================
// Users
// ============================================================================

// UserSeed describes a user created out of band.
type UserSeed struct {
	EmailAddress string
	PhoneNumber  string
	Username     string
	Password     string
	FirstName    string
	LastName     string

	// TOTP enrolls a TOTP second factor; the secret is returned
	TOTP bool

	BackupCodes []string

	// PasskeyID registers a passkey credential id
	PasskeyID string

	// ExternalAccounts maps provider to subject, e.g. "google": "user@example.com"
	ExternalAccounts map[string]string
}

// SeededUser is the result of CreateUser.
type SeededUser struct {
	User       authsdk.User
	TOTPSecret string
}

// CreateUser adds a user directly, bypassing sign-up.
func (b *Backend) CreateUser(_ context.Context, seed UserSeed) (SeededUser, error) {
	if seed.EmailAddress == "" && seed.PhoneNumber == "" && seed.Username == "" {
		return SeededUser{}, errParamMissing("email_address")
	}

	var hash string
	if seed.Password != "" {
		var err error
		if hash, err = cryptox.HashPassword(seed.Password, b.opts.Pepper); err != nil {
			return SeededUser{}, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	var secret string
	if seed.TOTP {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      b.opts.Issuer,
			AccountName: cmpOr(seed.EmailAddress, seed.Username, seed.PhoneNumber),
			Period:      30,
			Digits:      otp.DigitsSix,
			Algorithm:   otp.AlgorithmSHA1,
		})
		if err != nil {
			return SeededUser{}, fmt.Errorf("failed to generate TOTP key: %w", err)
		}
		secret = key.Secret()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ident := range []string{seed.EmailAddress, seed.PhoneNumber, seed.Username} {
		if _, taken := b.identifiers[normalize(ident)]; ident != "" && taken {
			return SeededUser{}, errIdentifierExists(ident)
		}
	}

	u := b.addUser(seed.EmailAddress, seed.PhoneNumber, seed.Username, seed.FirstName, seed.LastName, hash)
	u.totpSecret = secret
	if len(seed.BackupCodes) > 0 {
		u.backupCodes = map[string]bool{}
		for _, code := range seed.BackupCodes {
			u.backupCodes[code] = true
		}
	}
	if seed.PasskeyID != "" {
		u.passkeyID = seed.PasskeyID
		b.passkeys[seed.PasskeyID] = u.user.ID
	}
	for provider, subject := range seed.ExternalAccounts {
		b.externals[externalKey(provider, subject)] = u.user.ID
	}
	u.refreshFlags()

	return SeededUser{User: u.user, TOTPSecret: secret}, nil
}

func (b *Backend) addUser(email, phone, username, first, last, passwordHash string) *userRecord {
	u := &userRecord{
		user: authsdk.User{
			ID:                  idx.Prefixed("user"),
			Username:            username,
			FirstName:           first,
			LastName:            last,
			PrimaryEmailAddress: email,
			PrimaryPhoneNumber:  phone,
			CreatedAt:           authsdk.At(b.now()),
		},
		passwordHash: passwordHash,
	}
	if email != "" {
		u.emailID = idx.Prefixed("idn")
		b.identifiers[normalize(email)] = u.user.ID
	}
	if phone != "" {
		u.phoneID = idx.Prefixed("idn")
		b.identifiers[normalize(phone)] = u.user.ID
	}
	if username != "" {
		b.identifiers[normalize(username)] = u.user.ID
	}
	u.refreshFlags()
	b.users[u.user.ID] = u
	return u
}

func (u *userRecord) refreshFlags() {
	u.user.PasswordEnabled = u.passwordHash != ""
	u.user.TOTPEnabled = u.totpSecret != ""
	u.user.BackupCodeEnabled = len(u.backupCodes) > 0
	u.user.TwoFactorEnabled = u.user.TOTPEnabled || u.user.BackupCodeEnabled
}

func (u *userRecord) needsSecondFactor() bool {
	return u.user.TwoFactorEnabled
}

func (b *Backend) userByIdentifier(identifier string) (*userRecord, bool) {
	id, ok := b.identifiers[normalize(identifier)]
	if !ok {
		return nil, false
	}
	return b.users[id], true
}

func errIdentifierExists(identifier string) *Error {
	e := newError(422, CodeFormIdentifierExists, "%q is taken", identifier)
	e.Meta = map[string]any{"param_name": "identifier"}
	return e
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func externalKey(provider, subject string) string {
	return strings.ToLower(provider) + ":" + subject
}

func cmpOr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Stats counts live records, for readiness output.
type Stats struct {
	Clients  int `json:"clients"`
	Users    int `json:"users"`
	Sessions int `json:"sessions"`
}

// Stats returns record counts.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{Clients: len(b.clients), Users: len(b.users)}
	for _, c := range b.clients {
		s.Sessions += len(slices.DeleteFunc(slices.Clone(c.sessions), func(r *sessionRecord) bool {
			return r.session.Status != authsdk.SessionActive
		}))
	}
	return s
}
