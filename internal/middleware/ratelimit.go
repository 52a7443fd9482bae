package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/visitor-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"

	redisLimiterTimeout = 2 * time.Second
)

// RedisRateLimitConfig describes a fixed-window limit shared by every instance.
type RedisRateLimitConfig struct {
	// Name separates counters of different routes
	Name        string
	MaxRequests int
	Window      time.Duration
	// BlockFor bans the IP once the limit is exceeded; zero only rejects until the window ends
	BlockFor time.Duration
}

// VisitorFormRateLimit guards the public registration form: 10 submissions per 10 minutes.
var VisitorFormRateLimit = RedisRateLimitConfig{
	Name:        "visitor_form",
	MaxRequests: 10,
	Window:      10 * time.Minute,
	BlockFor:    time.Hour,
}

// RedisRateLimit counts requests per IP in Redis. When Redis is unavailable requests are allowed (fail open).
func RedisRateLimit(client *redis.Client, cfg RedisRateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.RealClientIP(r)
			ctx, cancel := context.WithTimeout(r.Context(), redisLimiterTimeout)
			defer cancel()

			blockedKey := BlockedIPKeyPrefix + cfg.Name + ":" + ip
			if cfg.BlockFor > 0 {
				blocked, err := client.Exists(ctx, blockedKey).Result()
				if err == nil && blocked > 0 {
					writeTooManyRequests(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
					return
				}
			}

			key := RateLimitKeyPrefix + cfg.Name + ":" + ip
			n, err := client.Incr(ctx, key).Result()
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				// First request in this window
				client.Expire(ctx, key, cfg.Window)
			}

			count := int(n)
			if count > cfg.MaxRequests {
				if cfg.BlockFor > 0 {
					if err := client.Set(ctx, blockedKey, "1", cfg.BlockFor).Err(); err != nil {
						slog.Warn("failed to block IP", "ip", ip, "error", err)
					}
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				writeTooManyRequests(w, fmt.Sprintf("Rate limit exceeded. Please try again in %d minutes.", int(cfg.Window.Minutes())))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(cfg.MaxRequests-count))
			next.ServeHTTP(w, r)
		})
	}
}

// UnblockIP removes an IP from the blocked list of a limiter.
func UnblockIP(ctx context.Context, client *redis.Client, name, ip string) error {
	return client.Del(ctx, BlockedIPKeyPrefix+name+":"+ip).Err()
}
