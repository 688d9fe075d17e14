package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/aussiebroadwan/authsession/pkg/pipeline"
)

const (
	pathClient         = "/v1/client"
	pathClientVerify   = "/v1/client/verify"
	pathSignIns        = "/v1/client/sign_ins"
	pathSignUps        = "/v1/client/sign_ups"
	pathClientSessions = "/v1/client/sessions"
)

func signInPath(id string, action ...string) string {
	return joinSegments(pathSignIns, id, action...)
}

func signUpPath(id string, action ...string) string {
	return joinSegments(pathSignUps, id, action...)
}

func sessionPath(id string, action ...string) string {
	return joinSegments(pathClientSessions, id, action...)
}

func joinSegments(base, id string, rest ...string) string {
	p := base + "/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// do sends req through the pipeline and decodes the envelope's response.
// A missing response is a protocol error.
func do[T any](ctx context.Context, c *SDKClient, op string, req *pipeline.Request) (T, error) {
	v, ok, err := decode[T](ctx, c, op, req)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, clientErr(op, "response is empty")
	}
	return v, nil
}

// doOptional is do for endpoints that may answer with a null response.
func doOptional[T any](ctx context.Context, c *SDKClient, op string, req *pipeline.Request) (T, error) {
	v, _, err := decode[T](ctx, c, op, req)
	return v, err
}

func decode[T any](ctx context.Context, c *SDKClient, op string, req *pipeline.Request) (T, bool, error) {
	var zero T
	if err := c.checkOpen(); err != nil {
		return zero, false, err
	}

	resp, err := c.pipeline.Do(ctx, req)
	if err != nil {
		return zero, false, err
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return zero, false, &ClientError{Op: op, Message: "malformed response", Err: err}
	}

	raw := bytes.TrimSpace(env.Response)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return zero, false, nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, &ClientError{Op: op, Message: "malformed response", Err: err}
	}
	return v, true, nil
}
