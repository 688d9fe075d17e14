// Package pipeline delivers SDK requests to the authentication backend.
//
// A Pipeline runs each logical Request through an ordered chain. Preparers
// rewrite it once (proxy prefixing, form encoding), Decorators adjust every
// attempt (device headers, throttling), Responders observe every response
// (client sync, lifecycle events) and RetryPolicies decide whether a failed
// attempt is retried. A call is retried at most once.
package pipeline
