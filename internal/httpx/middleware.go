package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/sundayezeilo/bitly/internal/idgen"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"
)

// contextKey is the type for context keys to avoid collisions.
type contextKey string

const requestIDContextKey contextKey = "request_id"

// Middleware wraps the transport used for outgoing requests.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain applies multiple middleware in order; the first one sees the request first.
// Example: Chain(middleware1, middleware2, middleware3)(transport)
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// RequestID stamps every request with an X-Request-ID header.
// An ID already present on the request or in its context is kept; otherwise
// gen produces a new one. The ID is stored in the request context for the
// middleware further down the chain.
func RequestID(gen idgen.Generator) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = GetRequestID(r.Context())
			}
			if requestID == "" {
				requestID = gen.RequestID()
			}

			// RoundTrippers must not modify the caller's request.
			r = r.Clone(WithRequestID(r.Context(), requestID))
			r.Header.Set(RequestIDHeader, requestID)

			return next.RoundTrip(r)
		})
	}
}

// GetRequestID extracts the request ID from context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID adds a request ID to the context. Requests issued with this
// context reuse the ID instead of generating one.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// Logger logs every outgoing request with structured logging.
// The query string and headers are left out; they may carry credentials.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(r)
			duration := time.Since(start)

			attrs := []any{
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"url", r.URL.Scheme + "://" + r.URL.Host + r.URL.Path,
				"duration_ms", duration.Milliseconds(),
			}
			if err != nil {
				logger.WarnContext(r.Context(), "bitly request failed", append(attrs, "error", err)...)
				return resp, err
			}

			logger.DebugContext(r.Context(), "bitly request", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}

// Tracing wraps the transport with OpenTelemetry client spans and propagates
// the trace context to the upstream service.
func Tracing(tp trace.TracerProvider) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return otelhttp.NewTransport(next,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "bitly " + r.Method
			}),
		)
	}
}

// statusLabel is the metrics label for a finished round trip.
func statusLabel(resp *http.Response, err error) string {
	if err != nil || resp == nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode)
}
