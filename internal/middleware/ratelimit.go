package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit bounds how often one client may hit a management endpoint within
// the window. Keyed by client IP rather than token: history clearing and
// message deletion are the destructive calls here, and a churned token must
// not reset the budget.
func RateLimit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":               "rate limit exceeded",
				"retry_after_seconds": int(window.Seconds()),
			})
		},
	})
}
