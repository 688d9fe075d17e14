package pipeline

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request is a logical API call. The prepare stage rewrites it once, every
// attempt then builds a fresh *http.Request from it.
type Request struct {
	Method string

	// Path is relative to the pipeline base URL, e.g. "/v1/client/sign_ins".
	Path string

	Query url.Values

	// Body is a struct tagged for go-querystring, a url.Values, or nil.
	Body any

	Header http.Header

	// form is the encoded body, set by FormEncoding.
	form url.Values
}

// Form returns the encoded form body. Empty until the prepare stage ran.
func (r *Request) Form() url.Values { return r.form }

// SetForm replaces the encoded form body.
func (r *Request) SetForm(v url.Values) { r.form = v }

func (r *Request) clone() *Request {
	c := *r
	if r.Query != nil {
		c.Query = cloneValues(r.Query)
	}
	if r.form != nil {
		c.form = cloneValues(r.form)
	}
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	return &c
}

func (r *Request) encodedBody() string {
	if r.form == nil {
		return ""
	}
	return r.form.Encode()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Attempt describes a failed attempt handed to retry policies.
type Attempt struct {
	// Number is 1 for the first attempt.
	Number int

	Request *Request

	// Response is nil when the request failed in transport.
	Response *Response

	Err error
}

// Decision is a retry policy's verdict on a failed attempt.
type Decision struct {
	Retry bool

	// Wait is how long to sleep before the retry. The sleep is interruptible.
	Wait time.Duration
}

func joinPath(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
