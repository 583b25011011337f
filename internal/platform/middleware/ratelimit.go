package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"covergate/internal/ratelimit"
	"covergate/pkg/requestcontext"
)

// RateLimit rejects requests over the fixed-window budget, keyed by client
// IP. Used on the public payment endpoints, which carry no bearer token.
func RateLimit(store ratelimit.Store, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			allowed, err := store.Allow(ctx, clientIP(r), limit, window)
			if err != nil {
				// Fail open: a broken limiter backend must not take the
				// payment callback path down with it.
				logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the limiter key. X-Forwarded-For accumulates one hop per
// proxy; only the first entry is the client, and taking the raw header would
// let callers mint a distinct key per request.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
