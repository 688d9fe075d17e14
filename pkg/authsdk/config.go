package authsdk

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/authsession/pkg/localstore"
)

// DefaultRedirectURL is where redirect strategies land when the caller did
// not name a URL.
const DefaultRedirectURL = "authsession://callback"

// Config configures an SDKClient. The zero value of every field except
// BaseURL is usable.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://auth.example.com"
	BaseURL string

	// ProxyURL routes every request through a proxy mounted under a path
	// of the application's own domain, e.g. "https://app.example.com/__auth".
	// When set it replaces BaseURL.
	ProxyURL string

	// ClientID identifies the application and is sent with every request
	ClientID string

	// HTTPClient defaults to a pooled client with tracing
	HTTPClient *http.Client

	// Logger defaults to a discarding logger
	Logger *slog.Logger

	// Store persists the active session id and device token. Defaults to an
	// in-memory store.
	Store localstore.Store

	// FactorPolicy orders first factors in SelectFirstFactor. Defaults to
	// PasswordPreferred.
	FactorPolicy FactorPolicy

	// TokenPollInterval is how often the active session's token is refreshed
	// in the background. Defaults to 5s.
	TokenPollInterval time.Duration

	// DisableTokenPolling turns the background refresh off
	DisableTokenPolling bool

	// RetryMinWait and RetryMaxWait bound the wait before a rate limited or
	// transiently failed request is retried
	RetryMinWait time.Duration
	RetryMaxWait time.Duration

	// DeviceAttester answers device assertion challenges. Without one a
	// requires_assertion error is returned to the caller.
	DeviceAttester DeviceAttester

	// OutboundRate throttles outgoing requests when positive
	OutboundRate  rate.Limit
	OutboundBurst int

	// RedirectURL is used by redirect strategies that leave theirs empty
	RedirectURL string

	// EventBuffer is the default subscriber channel size
	EventBuffer int
}

func (c Config) withDefaults() (Config, error) {
	if c.BaseURL == "" && c.ProxyURL == "" {
		return c, errors.New("authsdk: BaseURL is required")
	}

	origin := c.BaseURL
	if c.ProxyURL != "" {
		u, err := url.Parse(c.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return c, errors.New("authsdk: ProxyURL must be an absolute URL")
		}
		origin = u.Scheme + "://" + u.Host
	}
	c.BaseURL = strings.TrimSuffix(origin, "/")

	if len(c.FactorPolicy.Order) == 0 {
		c.FactorPolicy = PasswordPreferred
	}
	if c.RedirectURL == "" {
		c.RedirectURL = DefaultRedirectURL
	}
	if c.OutboundRate > 0 && c.OutboundBurst <= 0 {
		c.OutboundBurst = 1
	}
	return c, nil
}
