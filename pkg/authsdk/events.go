package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/idx"
	"github.com/aussiebroadwan/authsession/pkg/pipeline"
)

const (
	objectSignIn  = "sign_in_attempt"
	objectSignUp  = "sign_up_attempt"
	objectSession = "session"
)

// emitEvents publishes a lifecycle event when resp shows a flow reaching
// complete or a session being signed out. Each flow completes at most once,
// however often its final state is fetched afterwards.
func (c *SDKClient) emitEvents(_ context.Context, req *pipeline.Request, resp *pipeline.Response) error {
	if !resp.OK() {
		return nil
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil
	}

	switch objectOf(env.Response) {
	case objectSignIn:
		var si SignIn
		if err := json.Unmarshal(env.Response, &si); err != nil {
			return err
		}
		if si.Status == SignInComplete && c.firstCompletion("sign_in", si.ID) {
			c.publish(Event{Type: EventSignInCompleted, SignIn: &si})
		}

	case objectSignUp:
		var su SignUp
		if err := json.Unmarshal(env.Response, &su); err != nil {
			return err
		}
		if su.Status == SignUpComplete && c.firstCompletion("sign_up", su.ID) {
			c.publish(Event{Type: EventSignUpCompleted, SignUp: &su})
		}

	case objectSession:
		var s Session
		if err := json.Unmarshal(env.Response, &s); err != nil {
			return err
		}
		if s.Status == SessionRemoved || s.Status == SessionEnded {
			c.publish(Event{Type: EventSignedOut, Session: &s})
		}

	case objectClient:
		// Signing out of every session answers with the emptied client
		if req.Method == http.MethodDelete {
			c.publish(Event{Type: EventSignedOut})
		}
	}
	return nil
}

func (c *SDKClient) firstCompletion(kind, id string) bool {
	_, seen := c.completed.LoadOrStore(kind+":"+id, struct{}{})
	return !seen
}

func (c *SDKClient) publish(e Event) {
	e.ID = idx.New().String()
	e.At = time.Now()
	n := c.bus.Publish(e)
	c.logger.Debug("event published", "type", e.Type, "subscribers", n)
}
