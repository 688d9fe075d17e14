package authsdk

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/authsession/pkg/pipeline"
	"github.com/aussiebroadwan/authsession/pkg/tokencache"
)

// TokenOptions tune GetToken.
type TokenOptions = tokencache.Options

const objectToken = "token"

// GetToken returns a session token for the active session.
func (c *SDKClient) GetToken(ctx context.Context, opts TokenOptions) (string, error) {
	sessionID := c.ActiveSessionID()
	if sessionID == "" {
		return "", ErrNoActiveSession
	}
	return c.GetSessionToken(ctx, sessionID, opts)
}

// GetSessionToken returns a token for any session of the device. Concurrent
// calls for the same session and template share one request.
func (c *SDKClient) GetSessionToken(ctx context.Context, sessionID string, opts TokenOptions) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	return c.tokens.GetToken(ctx, sessionID, opts)
}

// fetchToken is the token cache's fetcher.
func (c *SDKClient) fetchToken(ctx context.Context, sessionID, template string) (string, error) {
	const op = "session.token"

	path := sessionPath(sessionID, "tokens")
	if template != "" {
		path = sessionPath(sessionID, "tokens", template)
	}

	tok, err := do[*TokenResource](ctx, c, op, &pipeline.Request{Method: http.MethodPost, Path: path})
	if err != nil {
		return "", err
	}
	if tok.JWT == "" {
		return "", clientErr(op, "response has no jwt")
	}
	return tok.JWT, nil
}

// SignOut ends one session, or every session on the device when sessionID
// is empty. Cached tokens of the ended sessions are dropped.
func (c *SDKClient) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		if _, err := do[*Client](ctx, c, "client.sign_out", &pipeline.Request{Method: http.MethodDelete, Path: pathClient}); err != nil {
			return err
		}
		c.tokens.Clear()
		return nil
	}

	if _, err := do[*Session](ctx, c, "session.remove", &pipeline.Request{
		Method: http.MethodPost,
		Path:   sessionPath(sessionID, "remove"),
	}); err != nil {
		return err
	}
	c.tokens.Invalidate(sessionID)
	return nil
}

// Sessions returns the active sessions of the current snapshot.
func (c *SDKClient) Sessions() []Session {
	return c.state.Client().ActiveSessions()
}
