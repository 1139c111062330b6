package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID carries the request id on both sides of the API. Clients
// may supply their own; otherwise one is minted here.
const HeaderRequestID = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID honors an inbound X-Request-ID or mints one, stores it on the
// request context, and echoes it back in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, rid)
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the id stamped by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey).(string)
	return rid
}

// RequestLogger annotates base with the request's id so handler log lines
// correlate with the access log entry for the same request.
func RequestLogger(base zerolog.Logger, r *http.Request) zerolog.Logger {
	rid := RequestIDFromContext(r.Context())
	if rid == "" {
		return base
	}
	return base.With().Str("request_id", rid).Logger()
}
