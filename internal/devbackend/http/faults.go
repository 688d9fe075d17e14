package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// Fault is a scripted failure answered instead of the real endpoint.
type Fault struct {
	Method string `json:"method"`
	Path   string `json:"path"`

	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`

	// Count is how many matching requests fail, at least one
	Count int `json:"count"`

	// RetryAfter is sent as the Retry-After header, in seconds
	RetryAfter int `json:"retry_after,omitempty"`
}

func (f Fault) key() string {
	return strings.ToUpper(f.Method) + " " + f.Path
}

// Faults holds the armed faults, keyed by method and exact path.
type Faults struct {
	armed *xsync.MapOf[string, Fault]
}

func NewFaults() *Faults {
	return &Faults{armed: xsync.NewMapOf[string, Fault]()}
}

// Arm registers f, replacing any fault on the same method and path.
func (fs *Faults) Arm(f Fault) error {
	if f.Method == "" || !strings.HasPrefix(f.Path, "/") {
		return fmt.Errorf("fault needs a method and an absolute path")
	}
	if f.Status < 400 || f.Status > 599 {
		return fmt.Errorf("fault status %d is not an error status", f.Status)
	}
	if f.Code == "" {
		f.Code = "injected_fault"
	}
	if f.Message == "" {
		f.Message = "injected fault"
	}
	f.Count = max(f.Count, 1)
	fs.armed.Store(f.key(), f)
	return nil
}

// Reset disarms every fault.
func (fs *Faults) Reset() {
	fs.armed.Clear()
}

// Len returns the number of armed faults.
func (fs *Faults) Len() int {
	return fs.armed.Size()
}

// take consumes one shot of the fault matching r.
func (fs *Faults) take(r *http.Request) (Fault, bool) {
	var (
		hit   Fault
		fired bool
	)
	fs.armed.Compute(r.Method+" "+r.URL.Path, func(f Fault, loaded bool) (Fault, bool) {
		if !loaded {
			return f, true
		}
		hit, fired = f, true
		f.Count--
		return f, f.Count <= 0
	})
	return hit, fired
}

// Middleware answers requests that match an armed fault.
func (fs *Faults) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f, ok := fs.take(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			slogx.FromContext(r.Context()).Info("fault injected", "status", f.Status, "code", f.Code)
			if f.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(f.RetryAfter))
			}
			httpx.WriteError(w, f.Status, httpx.ErrorItem{Code: f.Code, Message: f.Message})
		})
	}
}
