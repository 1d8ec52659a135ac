package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"crevid/internal/cache"
	"crevid/internal/domain"
	"crevid/internal/infra"
)

// RateLimitSettings supplies the per-hour limit at request time so settings
// changes apply without a restart.
type RateLimitSettings interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
}

// RateLimit enforces an hourly per-client request budget backed by redis
// counters. Cache or settings trouble fails open: availability over strict
// accounting.
func RateLimit(c cache.Cache, settings RateLimitSettings, logger infra.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c == nil {
				next.ServeHTTP(w, r)
				return
			}

			limit := 100
			if row, err := settings.Get(r.Context()); err == nil && row.RateLimitPerHour > 0 {
				limit = row.RateLimitPerHour
			}

			key := cache.RateLimitKey(clientIP(r), time.Now().UTC().Format("2006010215"))
			count, err := c.IncrWithExpiry(r.Context(), key, time.Hour)
			if err != nil {
				logger.Debug().Err(err).Msg("rate limit counter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   "rate limit exceeded, try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
