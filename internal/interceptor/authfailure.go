package interceptor

import (
	"context"
	"log/slog"
	"net/http"
)

// FailureHandler reacts to a response that reported an authentication failure.
type FailureHandler func(ctx context.Context, resp *http.Response)

// AuthFailure calls onFailure after any response with status 401 or 403, then
// returns the response to the caller unchanged. Transport errors are not
// intercepted.
func AuthFailure(onFailure FailureHandler) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				return resp, err
			}

			if IsAuthFailure(resp.StatusCode) {
				ctx := req.Context()
				slog.WarnContext(ctx, "authentication failed, logging out",
					"status", resp.StatusCode,
					"url", req.URL.Redacted(),
				)
				onFailure(ctx, resp)
			}
			return resp, nil
		})
	}
}

// IsAuthFailure reports whether status is treated as an authentication failure.
// 403 is handled the same as 401.
func IsAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
