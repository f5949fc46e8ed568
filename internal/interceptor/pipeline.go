// Package interceptor composes outgoing HTTP requests through an ordered chain of
// http.RoundTripper middlewares.
//
// A Pipeline is an explicit composition point: callers use Pipeline.Client (or the
// Pipeline as a Transport) instead of having a shared default transport replaced.
package interceptor

import (
	"net/http"
)

// Interceptor wraps a RoundTripper with additional behavior.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to the http.RoundTripper interface.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f(req).
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Pipeline is an http.RoundTripper running requests through interceptors.
type Pipeline struct {
	rt http.RoundTripper
}

// Compile-time check that Pipeline implements http.RoundTripper.
var _ http.RoundTripper = (*Pipeline)(nil)

// New builds a Pipeline over base. Interceptors apply in the order they appear:
// the first one is the outermost and sees the request first and the response last.
// A nil base uses http.DefaultTransport.
func New(base http.RoundTripper, interceptors ...Interceptor) *Pipeline {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		rt = interceptors[i](rt)
	}

	return &Pipeline{rt: rt}
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	return p.rt.RoundTrip(req)
}

// Client returns an http.Client using the pipeline as transport.
// The client has no timeout; callers bound requests through their context.
func (p *Pipeline) Client() *http.Client {
	return &http.Client{Transport: p}
}

// closeBody closes the request body, as RoundTrip must on every path.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// cloneRequest returns a copy of req that is safe to modify.
func cloneRequest(req *http.Request) *http.Request {
	newReq := req.Clone(req.Context())
	if newReq.Header == nil {
		newReq.Header = make(http.Header)
	}
	return newReq
}
