// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates the session token from the `token` query
// param. EventSource cannot set an Authorization header, so the stream
// endpoints take the same JWT via query string.
//
// Usage:
//
//	app.Get("/sse/user/rewards/stream", middleware.SSEAuthMiddleware(), rewardsService.StreamRewardEventsSSE)
func SSEAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token in query",
			})
		}

		claims, err := ParseSessionToken(token)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		c.Locals("fid", claims.Fid)
		c.Locals("username", claims.Username)
		return c.Next()
	}
}
