package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/utils/redis"
)

const rateLimitWindow = time.Minute

// RateLimiter is a fixed-window counter per caller kept in Redis.
type RateLimiter struct {
	redis redis.RedisInterface
	limit int
}

func NewRateLimiter(r redis.RedisInterface, limit int) *RateLimiter {
	return &RateLimiter{redis: r, limit: limit}
}

// Allow counts one request for caller and reports whether it is within the
// limit for the current window.
func (l *RateLimiter) Allow(ctx context.Context, caller string) (bool, error) {
	window := time.Now().Unix() / int64(rateLimitWindow/time.Second)
	key := fmt.Sprintf("validator:ratelimit:%s:%d", caller, window)

	n, err := l.redis.Incr(ctx, key)
	if err != nil {
		return true, err
	}
	if n == 1 {
		if err := l.redis.Expire(ctx, key, rateLimitWindow); err != nil {
			return true, err
		}
	}
	return n <= int64(l.limit), nil
}

// Middleware rejects callers over the limit with 429. Redis errors let the
// request through.
func (l *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil || l.redis == nil || l.limit <= 0 {
			return c.Next()
		}
		ok, err := l.Allow(c.UserContext(), c.IP())
		if err != nil {
			log.Warn().Err(err).Str("ip", c.IP()).Msg("rate limiter unavailable, allowing request")
			return c.Next()
		}
		if !ok {
			return c.Status(fiber.StatusTooManyRequests).
				JSON(newResponse[any](nil, fmt.Errorf("rate limit of %d requests per minute exceeded", l.limit)))
		}
		return c.Next()
	}
}
