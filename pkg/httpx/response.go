package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorItem is one entry of an error response body.
type ErrorItem struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	LongMessage string         `json:"long_message,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// ErrorBody is the body written for every non-2xx response.
type ErrorBody struct {
	Errors  []ErrorItem `json:"errors"`
	TraceID string      `json:"trace_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a single-entry ErrorBody. The trace id is taken from the
// X-Request-ID response header when a handler set one.
func WriteError(w http.ResponseWriter, status int, item ErrorItem) {
	WriteJSON(w, status, ErrorBody{
		Errors:  []ErrorItem{item},
		TraceID: w.Header().Get("X-Request-ID"),
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
