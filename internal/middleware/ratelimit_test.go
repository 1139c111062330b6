package middleware

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newLimitedHandler(limit int) http.Handler {
	return RateLimit(limit, time.Minute, zerolog.New(io.Discard))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
}

func limitedRequest(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/batch/presets", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	handler := newLimitedHandler(2)

	for i := 0; i < 2; i++ {
		if rec := limitedRequest(handler, "198.51.100.10:1234"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := limitedRequest(handler, "198.51.100.10:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "rate_limited" || body.Message == "" {
		t.Fatalf("body = %+v", body)
	}
}

func TestRateLimitBucketsPerClient(t *testing.T) {
	handler := newLimitedHandler(1)

	if rec := limitedRequest(handler, "198.51.100.10:1234"); rec.Code != http.StatusNoContent {
		t.Fatalf("first client: status = %d", rec.Code)
	}
	if rec := limitedRequest(handler, "198.51.100.10:1234"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first client should be limited, got %d", rec.Code)
	}
	if rec := limitedRequest(handler, "203.0.113.7:1234"); rec.Code != http.StatusNoContent {
		t.Fatalf("second client: status = %d", rec.Code)
	}
}

func TestLimiterKey(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"forwarded single hop", "203.0.113.1", "198.51.100.10:1234", "203.0.113.1"},
		{"forwarded uses first valid hop", " junk , 203.0.113.1 ", "198.51.100.10:1234", "203.0.113.1"},
		{"no forwarded uses remote host", "", "198.51.100.10:1234", "198.51.100.10"},
		{"invalid forwarded falls back", "not-an-ip", "198.51.100.10:1234", "198.51.100.10"},
		{"ipv6 remote", "", net.JoinHostPort("2001:db8::2", "443"), "2001:db8::2"},
		{"remote without port", "", "203.0.113.1", "203.0.113.1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := limiterKey(req); got != tc.want {
				t.Fatalf("limiterKey() = %q, want %q", got, tc.want)
			}
		})
	}
}
