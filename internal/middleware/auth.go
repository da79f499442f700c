package middleware

import (
	"strings"

	"messly-backend/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Auth verifies the access token from the Authorization header or the token
// query parameter and stores the resolved user and raw token in request
// locals. Browser clients pass the token as a query parameter; other callers
// use a bearer header.
func Auth(verifier *service.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			header := c.Get("Authorization")
			if stripped := strings.TrimPrefix(header, "Bearer "); stripped != header {
				token = stripped
			}
		}
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing token"})
		}

		user, err := verifier.Verify(c.Context(), token)
		if err != nil {
			return c.Status(403).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals("user", user)
		c.Locals("token", token)
		return c.Next()
	}
}

// ServerKey gates service-to-service routes behind a shared key.
func ServerKey(expectedKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Server-Key")
		if key == "" || key != expectedKey {
			return c.Status(403).JSON(fiber.Map{"error": "invalid server key"})
		}
		return c.Next()
	}
}
