package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/financeapi/pkg/utils/response"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
)

// RateLimit limits requests per client IP to perMinute in a fixed one-minute window.
// A nil client or a non-positive limit disables limiting; redis errors let the request through.
func RateLimit(redisClient *redis.Client, scope string, perMinute int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if redisClient == nil || perMinute <= 0 {
			return next
		}
		return func(c echo.Context) error {
			key := "ratelimit:" + scope + ":" + c.RealIP()
			window := time.Minute

			count, err := incrWithExpire(c.Request().Context(), redisClient, key, window)
			if err != nil {
				zaplogger.Warn("rate limiter unavailable", zaplogger.Fields{"error": err.Error()})
				return next(c)
			}

			remaining := perMinute - int(count)
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > perMinute {
				h.Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				return response.ErrorResponse(c, http.StatusTooManyRequests, "RateLimitException", "Too many requests, try again later")
			}
			return next(c)
		}
	}
}

// windowScript increments the counter and starts its window in one step.
// A counter left without a TTL gets one on the next hit.
var windowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 or redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// incrWithExpire increments key and starts its window on the first hit
func incrWithExpire(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, error) {
	return windowScript.Run(ctx, client, []string{key}, window.Milliseconds()).Int64()
}
