// middleware/cron.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CronAuthMiddleware guards the external trigger endpoints with a shared
// secret, accepted either as the ?key= query parameter or a bearer header.
// Used where in-process scheduling is unavailable, or as a redundant trigger.
func CronAuthMiddleware() fiber.Handler {
	secret := os.Getenv("CRON_SECRET")
	if secret == "" {
		log.Fatal("❌ CRON_SECRET is not set — external trigger endpoints cannot be secured")
	}

	return func(c *fiber.Ctx) error {
		supplied := c.Query("key")
		if supplied == "" {
			supplied = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		}
		if supplied != secret {
			log.Printf("🚫 [CRON_AUTH] bad or missing secret for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid cron secret",
			})
		}
		return c.Next()
	}
}
