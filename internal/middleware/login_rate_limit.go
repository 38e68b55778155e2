package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const loginWindow = time.Minute

// LoginRateLimit caps login attempts per email (or per client IP when the
// body carries no email) in a fixed one-minute window. Without Redis, or when
// Redis errors, requests pass through.
func LoginRateLimit(cache *redis.Client, maxPerWindow int) fiber.Handler {
	if maxPerWindow <= 0 {
		maxPerWindow = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}

		key := "ratelimit:login:" + loginSubject(c)
		ctx := c.UserContext()

		count, err := cache.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			cache.Expire(ctx, key, loginWindow)
		}

		if count > int64(maxPerWindow) {
			retry, err := cache.TTL(ctx, key).Result()
			if err != nil || retry <= 0 {
				retry = loginWindow
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retry.Round(time.Second).Seconds())))
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}

func loginSubject(c *fiber.Ctx) string {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err == nil {
		if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
			return "email:" + email
		}
	}
	return "ip:" + c.IP()
}
