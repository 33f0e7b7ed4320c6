// Package middleware provides HTTP middlewares for request logging and correlation.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"
	"github.com/google/uuid"
)

// RequestIDHeader is the correlation header read from clients and sent upstream.
const RequestIDHeader = "X-Request-ID"

// Logging logs HTTP requests with method, path, status, and duration.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		// Never log credentials: Authorization and the login body stay out of the log.
		LogRequestHeaders:  []string{"Content-Type", "Origin", RequestIDHeader},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,

		RecoverPanics: false, // use dedicated middleware, panics are logged regardless
	})
}

type ctxKeyRequestID struct{}

// RequestIDFromContext returns the request id set by RequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyRequestID{}).(string)
	return id, ok && id != ""
}

// RequestID ensures each request has an id. A client-supplied X-Request-ID is
// kept when trustHeader is set; otherwise a new one is generated.
// The id is echoed in the response and attached to the request log.
func RequestID(trustHeader bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if trustHeader {
				id = r.Header.Get(RequestIDHeader)
			}
			if id == "" {
				id = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, id)
			httplog.SetAttrs(ctx, slog.String("request.id", id))

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
