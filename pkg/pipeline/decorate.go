package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"
)

// UserAgent identifies the SDK on every request.
var UserAgent = "authsession-go/" + versioninfo.Short()

// DeviceHeaders attaches the device credentials to every attempt. token is
// read per attempt so a token refreshed between attempts is picked up.
func DeviceHeaders(clientID string, token func() string) Decorator {
	return DecorateFunc(func(_ context.Context, req *http.Request) error {
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept", "application/json")
		if clientID != "" {
			req.Header.Set("X-Client-ID", clientID)
		}
		if t := token(); t != "" {
			req.Header.Set("Authorization", t)
		}
		return nil
	})
}

// Throttle blocks each attempt until limiter admits it.
func Throttle(limiter *rate.Limiter) Decorator {
	return DecorateFunc(func(ctx context.Context, _ *http.Request) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle: %w", err)
		}
		return nil
	})
}
