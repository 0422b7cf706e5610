// Package middleware holds RoundTripper wrappers used by the remote client.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries a per-request correlation id
	RequestIDHeader = "X-Request-ID"

	// DefaultRequestTimeout is the default per-request timeout (30 seconds)
	DefaultRequestTimeout = 30 * time.Second
)

// Middleware wraps a RoundTripper
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps base so the first middleware is outermost
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// RequestID stamps each request with a fresh X-Request-ID unless one is set
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(r)
			}
			// RoundTrippers must not modify the caller's request
			clone := r.Clone(r.Context())
			clone.Header.Set(RequestIDHeader, uuid.NewString())
			return next.RoundTrip(clone)
		})
	}
}
