package authsdk

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/authsession/pkg/pipeline"
)

// DeviceAttester produces a platform assertion proving the request comes
// from a genuine install of the application.
type DeviceAttester interface {
	Assert(ctx context.Context, clientID string) (assertion string, err error)
}

// DeviceAttesterFunc adapts a function to DeviceAttester.
type DeviceAttesterFunc func(ctx context.Context, clientID string) (string, error)

func (f DeviceAttesterFunc) Assert(ctx context.Context, clientID string) (string, error) {
	return f(ctx, clientID)
}

type assertingKey struct{}

var errNestedAssertion = errors.New("authsdk: assertion exchange rejected")

// verifyBody is the form body of POST /v1/client/verify.
type verifyBody struct {
	Assertion string `url:"assertion"`
}

// refreshAssertion exchanges a fresh assertion for a new device token. The
// response sync step stores the token from the response header. Concurrent
// challenges share one exchange.
func (c *SDKClient) refreshAssertion(ctx context.Context) error {
	// A rejected exchange must not trigger another exchange
	if ctx.Value(assertingKey{}) != nil {
		return errNestedAssertion
	}

	_, err, _ := c.flights.Do("assertion", func() (any, error) {
		assertion, err := c.cfg.DeviceAttester.Assert(ctx, c.cfg.ClientID)
		if err != nil {
			return nil, err
		}

		ctx := context.WithValue(ctx, assertingKey{}, true)
		_, err = c.pipeline.Do(ctx, &pipeline.Request{
			Method: http.MethodPost,
			Path:   pathClientVerify,
			Body:   verifyBody{Assertion: assertion},
		})
		return nil, err
	})
	return err
}
