package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/idx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// DefaultMaxAttempts bounds every call to one retry.
const DefaultMaxAttempts = 2

var sharedHTTPClient = sync.OnceValue(DefaultHTTPClient)

// Preparer rewrites a logical request once per call, before the first attempt.
type Preparer interface {
	Prepare(ctx context.Context, req *Request) error
}

// Decorator adjusts the outgoing HTTP request on every attempt. It may block,
// e.g. to wait for a rate limiter.
type Decorator interface {
	Decorate(ctx context.Context, req *http.Request) error
}

// Responder observes every HTTP response, successful or not, in order.
type Responder interface {
	Respond(ctx context.Context, req *Request, resp *Response) error
}

// RetryPolicy inspects a failed attempt. Policies may have side effects
// (refreshing a device assertion, scheduling a resync) and are consulted in
// order until one asks for a retry.
type RetryPolicy interface {
	Name() string
	Decide(ctx context.Context, attempt Attempt) Decision
}

// PrepareFunc adapts a function to Preparer.
type PrepareFunc func(ctx context.Context, req *Request) error

func (f PrepareFunc) Prepare(ctx context.Context, req *Request) error { return f(ctx, req) }

// DecorateFunc adapts a function to Decorator.
type DecorateFunc func(ctx context.Context, req *http.Request) error

func (f DecorateFunc) Decorate(ctx context.Context, req *http.Request) error { return f(ctx, req) }

// RespondFunc adapts a function to Responder.
type RespondFunc func(ctx context.Context, req *Request, resp *Response) error

func (f RespondFunc) Respond(ctx context.Context, req *Request, resp *Response) error {
	return f(ctx, req, resp)
}

// Pipeline delivers requests to the backend through an ordered chain:
//
//  1. Prepare (once): proxy rewrite, form encoding
//  2. Decorate (per attempt): device headers, throttling
//  3. Send
//  4. Respond (per attempt): state sync, then event emission
//  5. Retry policies (after a failed attempt)
//
// A call makes at most MaxAttempts attempts.
type Pipeline struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	Preparers  []Preparer
	Decorators []Decorator
	Responders []Responder
	Retry      []RetryPolicy

	// MaxAttempts defaults to DefaultMaxAttempts.
	MaxAttempts int

	// Done aborts pending retry waits when closed, typically the lifetime
	// of the SDK client owning the pipeline.
	Done <-chan struct{}
}

// Do runs req through the chain and returns the successful response.
// Non-2xx responses become *APIError, delivery failures *TransportError.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*Response, error) {
	req = req.clone()

	reqID := idx.New().String()
	ctx = slogx.WithContext(ctx, p.logger().With(
		"req_id", reqID,
		"method", req.Method,
		"path", req.Path,
	))
	log := slogx.FromContext(ctx)
	req.Header.Set("X-Request-ID", reqID)

	for _, prep := range p.Preparers {
		if err := prep.Prepare(ctx, req); err != nil {
			return nil, fmt.Errorf("prepare request: %w", err)
		}
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for n := 1; ; n++ {
		start := time.Now()
		resp, err := p.attempt(ctx, req)
		observeRequest(req, resp, time.Since(start))
		if err == nil {
			return resp, nil
		}

		decision, policy := p.decide(ctx, Attempt{Number: n, Request: req, Response: resp, Err: err})
		if !decision.Retry {
			return nil, err
		}
		if n >= maxAttempts {
			log.Debug("retry budget exhausted", "policy", policy, "attempt", n)
			return nil, err
		}

		log.Warn("retrying request", "policy", policy, "attempt", n, "wait", decision.Wait, "error", err)
		retriesTotal.WithLabelValues(policy).Inc()
		if werr := p.sleep(ctx, decision.Wait); werr != nil {
			return nil, fmt.Errorf("retry aborted: %w: %w", werr, err)
		}
	}
}

// decide consults the retry policies in order. Every policy sees the attempt
// until one asks for a retry, so recovery side effects still run on the last
// attempt.
func (p *Pipeline) decide(ctx context.Context, a Attempt) (Decision, string) {
	for _, policy := range p.Retry {
		if d := policy.Decide(ctx, a); d.Retry {
			return d, policy.Name()
		}
	}
	return Decision{}, ""
}

// attempt performs one send and runs the responders. The returned response is
// non-nil whenever the backend answered, even when err is an *APIError.
func (p *Pipeline) attempt(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := p.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, d := range p.Decorators {
		if err := d.Decorate(ctx, httpReq); err != nil {
			return nil, fmt.Errorf("decorate request: %w", err)
		}
	}

	log := slogx.FromContext(ctx)
	log.Debug("sending request")

	httpResp, err := p.client().Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}
	for _, r := range p.Responders {
		if err := r.Respond(ctx, req, resp); err != nil {
			// Sync failures must not hide the backend's answer
			log.Error("responder failed", "error", err)
		}
	}

	if !resp.OK() {
		return resp, parseErrorResponse(resp)
	}
	return resp, nil
}

func (p *Pipeline) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	target := joinPath(p.BaseURL, req.Path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	encoded := req.encodedBody()
	if encoded != "" {
		body = strings.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header = req.Header.Clone()
	if encoded != "" {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		httpReq.Header.Set("Content-Length", strconv.Itoa(len(encoded)))
	}
	return httpReq, nil
}

// sleep waits d unless ctx ends or the pipeline is closed first.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.Done:
		return ErrClosed
	}
}

func (p *Pipeline) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return sharedHTTPClient()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slogx.Discard()
}
