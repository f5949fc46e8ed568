package interceptor

import (
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the correlation ID of an outgoing request.
const RequestIDHeader = "X-Request-Id"

// RequestID sets RequestIDHeader on requests that don't carry one. The active trace
// ID is reused when the request context has a valid span, otherwise a random UUID
// is generated.
func RequestID() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(req)
			}

			id := uuid.NewString()
			if sc := trace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
				id = sc.TraceID().String()
			}

			newReq := cloneRequest(req)
			newReq.Header.Set(RequestIDHeader, id)
			return next.RoundTrip(newReq)
		})
	}
}
