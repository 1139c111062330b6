package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// rateWindow tracks one client's hits inside the current fixed window.
type rateWindow struct {
	hits   int
	resets time.Time
}

// RateLimit enforces a fixed-window per-client request limit. Rejected
// requests get a 429 with the API's {code,message} error body and a
// Retry-After hint, and are logged with the request id for correlation.
func RateLimit(limit int, window time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	var mu sync.Mutex
	windows := make(map[string]*rateWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiterKey(r)
			now := time.Now()

			mu.Lock()
			win, ok := windows[key]
			if !ok || now.After(win.resets) {
				win = &rateWindow{resets: now.Add(window)}
				windows[key] = win
			}
			win.hits++
			over := win.hits > limit
			retryIn := time.Until(win.resets)
			mu.Unlock()

			if over {
				logger.Warn().
					Str("request_id", RequestIDFromContext(r.Context())).
					Str("client", key).
					Str("path", r.URL.Path).
					Int("limit", limit).
					Msg("rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(retryIn.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "rate_limited",
					"message": "too many requests",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limiterKey picks the client address to bucket on: the first valid
// X-Forwarded-For hop when present, the remote host otherwise.
func limiterKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for _, hop := range strings.Split(fwd, ",") {
			hop = strings.TrimSpace(hop)
			if net.ParseIP(hop) != nil {
				return hop
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
