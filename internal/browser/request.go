package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RequestInit is the subset of the fetch init dictionary the bridge supports.
type RequestInit struct {
	Method  string
	Headers map[string]string
	Body    *string
}

// NewRequest builds the request for fetch(ref, init), resolving ref against
// the page address base.
func NewRequest(ctx context.Context, base, ref string, init RequestInit) (*http.Request, error) {
	target, err := resolveRef(base, ref)
	if err != nil {
		return nil, err
	}

	method := http.MethodGet
	if init.Method != "" {
		method = strings.ToUpper(init.Method)
	}

	var body io.Reader
	if init.Body != nil {
		body = strings.NewReader(*init.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	for name, value := range init.Headers {
		req.Header.Set(name, value)
	}
	return req, nil
}

// ResponseValue converts a response and its body into the object the fetch
// Promise resolves to. Header names are lower-cased as in the Fetch API.
func ResponseValue(resp *http.Response, body []byte) map[string]any {
	headers := make(map[string]any, len(resp.Header))
	for name := range resp.Header {
		headers[strings.ToLower(name)] = resp.Header.Get(name)
	}
	return map[string]any{
		"status":  resp.StatusCode,
		"ok":      resp.StatusCode >= 200 && resp.StatusCode < 300,
		"headers": headers,
		"body":    string(body),
	}
}

func resolveRef(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid page address %q: %w", base, err)
	}
	u, err := baseURL.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	return u.String(), nil
}
