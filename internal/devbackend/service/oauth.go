package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

// AuthorizePath is the emulated provider consent endpoint redirect
// strategies send the user to.
const AuthorizePath = "/v1/dev/oauth/authorize"

// externalIdentity is an account at an OAuth or ID-token provider.
type externalIdentity struct {
	provider string
	subject  string
	email    string
}

// oauthGrant ties a consent link to the flow that issued it.
type oauthGrant struct {
	clientID    string
	flow        string
	flowID      string
	strategy    strategy.Name
	provider    string
	redirectURL string
	expires     time.Time
}

// startRedirect issues a consent link for flowID and returns the
// verification pointing at it.
func (b *Backend) startRedirect(c *clientRecord, flow, flowID string, name strategy.Name, identifier, redirectURL string) (*authsdk.Verification, error) {
	if redirectURL == "" {
		return nil, errParamMissing("redirect_url")
	}
	if _, err := url.Parse(redirectURL); err != nil {
		return nil, errParamMissing("redirect_url")
	}

	provider := name.Provider()
	if name == strategy.NameEnterpriseSSO {
		_, domain, ok := strings.Cut(identifier, "@")
		if !ok || domain == "" {
			return nil, errParamMissing("identifier")
		}
		provider = "sso_" + domain
	}

	state, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	expires := b.now().Add(b.opts.CodeTTL)
	b.grants[state] = &oauthGrant{
		clientID:    c.id,
		flow:        flow,
		flowID:      flowID,
		strategy:    name,
		provider:    provider,
		redirectURL: redirectURL,
		expires:     expires,
	}

	q := url.Values{"state": {state}, "provider": {provider}}
	return &authsdk.Verification{
		Status:                          authsdk.VerificationUnverified,
		Strategy:                        name,
		ExpireAt:                        authsdk.At(expires),
		ExternalVerificationRedirectURL: strings.TrimSuffix(b.opts.PublicURL, "/") + AuthorizePath + "?" + q.Encode(),
	}, nil
}

// lookupExternal finds the user owning ident, linking it to the user with a
// matching email address on first use.
func (b *Backend) lookupExternal(ident *externalIdentity) (*userRecord, bool) {
	key := externalKey(ident.provider, ident.subject)
	if id, ok := b.externals[key]; ok {
		return b.users[id], true
	}
	if ident.email == "" {
		return nil, false
	}
	u, ok := b.userByIdentifier(ident.email)
	if !ok {
		return nil, false
	}
	b.externals[key] = u.user.ID
	return u, true
}

// resolveExternalSignIn finishes the first factor of a sign-in proved by a
// provider. Identities no user owns become transferable.
func (b *Backend) resolveExternalSignIn(c *clientRecord, r *signInRecord, ident *externalIdentity, name strategy.Name) {
	u, ok := b.lookupExternal(ident)
	if !ok {
		r.external = ident
		r.si.Status = authsdk.SignInNeedsIdentifier
		r.si.FirstFactorVerification = &authsdk.Verification{Status: authsdk.VerificationTransferable, Strategy: name}
		return
	}

	r.userID = u.user.ID
	r.si.Status = authsdk.SignInNeedsFirstFactor
	r.si.UserData = &authsdk.UserData{FirstName: u.user.FirstName, LastName: u.user.LastName}
	r.si.FirstFactorVerification = &authsdk.Verification{Status: authsdk.VerificationVerified, Strategy: name, Attempts: 1}
	b.afterFirstFactor(c, r, u, "oauth")
}

// verifyIDToken reads the subject and email of a provider ID token. The dev
// backend trusts the token without checking its signature.
func (b *Backend) verifyIDToken(name strategy.Name, token string) (*externalIdentity, error) {
	if token == "" {
		return nil, errParamMissing("token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, newError(http.StatusUnprocessableEntity, "oauth_token_invalid", "malformed id token")
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, newError(http.StatusUnprocessableEntity, "oauth_token_invalid", "id token has no subject")
	}
	email, _ := claims["email"].(string)
	return &externalIdentity{provider: name.Provider(), subject: sub, email: email}, nil
}

// CompleteOAuth plays the provider: the user identified by subject (and
// email) consents, and the flow behind state is resolved. It returns the
// callback URL to redirect to. A resolved flow carries a rotating token
// nonce; a flow that must be transferred does not.
func (b *Backend) CompleteOAuth(_ context.Context, state, subject, email string) (string, error) {
	if subject == "" {
		subject = email
	}
	if subject == "" {
		return "", errParamMissing("subject")
	}
	if email == "" && strings.Contains(subject, "@") {
		email = subject
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.grants[state]
	if !ok || b.now().After(g.expires) {
		return "", errNotFound("oauth_state", state)
	}
	delete(b.grants, state)

	c, ok := b.clients[g.clientID]
	if !ok {
		return "", errNotFound("client", g.clientID)
	}
	callback, err := url.Parse(g.redirectURL)
	if err != nil {
		return "", errParamMissing("redirect_url")
	}

	ident := &externalIdentity{provider: g.provider, subject: subject, email: email}
	var nonce string

	switch g.flow {
	case flowSignIn:
		r, ok := b.signIns[g.flowID]
		if !ok || r.si.Status != authsdk.SignInNeedsFirstFactor {
			return "", errInvalidState(CodeSignInInvalidState, "sign-in %q cannot be resolved", g.flowID)
		}
		b.resolveExternalSignIn(c, r, ident, g.strategy)
		if r.external == nil {
			nonce = cryptox.MustGenerateToken(cryptox.TokenSize256)
			r.nonce = nonce
		}

	case flowSignUp:
		r, ok := b.signUps[g.flowID]
		if !ok || r.su.Status != authsdk.SignUpMissingRequirements {
			return "", errInvalidState(CodeSignUpInvalidState, "sign-up %q cannot be resolved", g.flowID)
		}
		r.external = ident
		v := r.su.Verifications[authsdk.FieldExternalAccount]
		v.Attempts++
		if _, known := b.lookupExternal(ident); known {
			v.Status = authsdk.VerificationTransferable
			break
		}
		v.Status = authsdk.VerificationVerified
		if r.su.EmailAddress == "" {
			r.su.EmailAddress = email
		}
		b.evaluate(c, r)
		nonce = cryptox.MustGenerateToken(cryptox.TokenSize256)
		r.nonce = nonce
	}

	c.updatedAt = b.now()
	if nonce != "" {
		q := callback.Query()
		q.Set("rotating_token_nonce", nonce)
		callback.RawQuery = q.Encode()
	}
	return callback.String(), nil
}

// transferToSignUp turns the client's transferable sign-in into a sign-up
// for the identity it proved.
func (b *Backend) transferToSignUp(c *clientRecord, created bool) (Result, error) {
	si, ok := b.signIns[c.signInID]
	if !ok || si.external == nil || si.si.FirstFactorVerification == nil ||
		si.si.FirstFactorVerification.Status != authsdk.VerificationTransferable {
		return Result{}, errInvalidState(CodeSignUpInvalidState, "no transferable sign-in on this client")
	}

	r := b.newSignUp(c)
	r.external = si.external
	r.su.EmailAddress = si.external.email
	r.su.Verifications[authsdk.FieldExternalAccount] = &authsdk.Verification{
		Status:   authsdk.VerificationVerified,
		Strategy: si.si.FirstFactorVerification.Strategy,
		Attempts: 1,
	}
	c.signInID = ""

	b.evaluate(c, r)
	b.signUps[r.su.ID] = r
	if r.su.Status != authsdk.SignUpComplete {
		c.signUpID = r.su.ID
	}
	return b.result(c, created, r.view()), nil
}

// transferToSignIn turns the client's transferable sign-up into a sign-in
// of the user who already owns the identity.
func (b *Backend) transferToSignIn(c *clientRecord, created bool) (Result, error) {
	su, ok := b.signUps[c.signUpID]
	if !ok || su.external == nil {
		return Result{}, errInvalidState(CodeSignInInvalidState, "no transferable sign-up on this client")
	}
	v := su.su.Verifications[authsdk.FieldExternalAccount]
	if v == nil || v.Status != authsdk.VerificationTransferable {
		return Result{}, errInvalidState(CodeSignInInvalidState, "no transferable sign-up on this client")
	}
	u, ok := b.lookupExternal(su.external)
	if !ok {
		return Result{}, errIdentifierNotFound
	}

	r := b.newSignIn(c)
	r.userID = u.user.ID
	r.si.Identifier = su.external.email
	r.si.UserData = &authsdk.UserData{FirstName: u.user.FirstName, LastName: u.user.LastName}
	r.si.FirstFactorVerification = &authsdk.Verification{Status: authsdk.VerificationVerified, Strategy: v.Strategy, Attempts: 1}
	c.signUpID = ""

	b.afterFirstFactor(c, r, u, "oauth")
	b.signIns[r.si.ID] = r
	if r.si.Status != authsdk.SignInComplete {
		c.signInID = r.si.ID
	}
	return b.result(c, created, r.view()), nil
}
