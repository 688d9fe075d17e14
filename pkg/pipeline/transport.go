package pipeline

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a single attempt when the caller brings no client.
const DefaultTimeout = 15 * time.Second

// DefaultHTTPClient returns a pooled client with tracing instrumentation.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(cleanhttp.DefaultPooledTransport()),
		Timeout:   DefaultTimeout,
	}
}
