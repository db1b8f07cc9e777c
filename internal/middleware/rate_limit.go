package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
)

const rateLimitMessage = "Rate limit exceeded. Please try again later."

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Limit    int
	Window   time.Duration
	Name     string // distinguishes counters of stacked limiters
	IPConfig *pkghttp.IPConfig
}

// DefaultAuthRateLimit returns the stricter limit applied to login and register
func DefaultAuthRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{
		Limit:    10,
		Window:   time.Minute,
		Name:     "auth",
		IPConfig: ipConfig,
	}
}

func (c RateLimitConfig) key(r *http.Request) string {
	return "ratelimit:" + c.Name + ":ip:" + pkghttp.ExtractClientIP(r, c.IPConfig)
}

// RateLimitByIP creates an in-process middleware that rate limits requests
// by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Limit,
		config.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return config.key(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, r, rateLimitMessage)
		}),
	)
}

// RedisRateLimitByIP rate limits by client IP with counters shared through
// Redis, so every instance behind a load balancer sees the same budget.
// Redis errors let the request through.
func RedisRateLimitByIP(client *redis.Client, config RateLimitConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	limiter := redis_rate.NewLimiter(client)
	limit := redis_rate.Limit{
		Rate:   config.Limit,
		Burst:  config.Limit,
		Period: config.Window,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := config.key(r)

			res, err := limiter.Allow(r.Context(), key, limit)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					slog.String("key", key),
					slog.Any("error", err),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))

			if res.Allowed == 0 {
				retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				pkghttp.WriteTooManyRequests(w, r, fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
