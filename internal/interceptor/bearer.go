package interceptor

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultAPIMarker selects the requests that receive the bearer token.
const DefaultAPIMarker = "/api/"

// BearerOption configures the Bearer interceptor.
type BearerOption func(*bearerConfig)

type bearerConfig struct {
	match func(*http.Request) bool
}

// WithAPIMarker restricts token injection to URLs containing marker anywhere in
// their string form, query and fragment included.
func WithAPIMarker(marker string) BearerOption {
	return func(c *bearerConfig) {
		c.match = containsMarker(marker)
	}
}

// WithMatcher replaces the request selection entirely.
func WithMatcher(match func(*http.Request) bool) BearerOption {
	return func(c *bearerConfig) {
		c.match = match
	}
}

func containsMarker(marker string) func(*http.Request) bool {
	return func(req *http.Request) bool {
		return strings.Contains(req.URL.String(), marker)
	}
}

// Bearer injects "Authorization: Bearer <token>" into matching requests when the
// token source yields a non-empty token. Other headers are kept; an existing
// Authorization header is replaced.
func Bearer(ts oauth2.TokenSource, opts ...BearerOption) Interceptor {
	cfg := &bearerConfig{match: containsMarker(DefaultAPIMarker)}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return &bearerTransport{source: ts, match: cfg.match, next: next}
	}
}

type bearerTransport struct {
	source oauth2.TokenSource
	match  func(*http.Request) bool
	next   http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.match(req) {
		return t.next.RoundTrip(req)
	}

	token, err := t.source.Token()
	if err != nil {
		closeBody(req)
		return nil, fmt.Errorf("reading bearer token: %w", err)
	}
	if token == nil || !token.Valid() {
		return t.next.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	newReq := cloneRequest(req)
	token.SetAuthHeader(newReq)

	return t.next.RoundTrip(newReq)
}
