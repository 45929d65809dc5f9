// handlers/cron.go
package handlers

import (
	"errors"

	"valorant-hub/middleware"
	"valorant-hub/services"
	"valorant-hub/valorantapi"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupCronRoutes exposes the promotion and reconciliation passes as
// externally triggerable endpoints, for environments without the in-process
// scheduler or as a redundant trigger alongside it.
func SetupCronRoutes(app *fiber.App, promo *services.PromotionService, recon *services.ReconcileService) {
	cron := app.Group("/internal/cron", middleware.CronAuthMiddleware())

	cron.Post("/promote", func(c *fiber.Ctx) error {
		summary, err := promo.PromotePendingMatches(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "promotion pass failed, try again later"})
		}
		return c.JSON(summary)
	})

	cron.Post("/reconcile", func(c *fiber.Ctx) error {
		summary, err := recon.ReconcileAllActive(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "reconcile pass failed, try again later"})
		}
		if summary.RateLimited {
			// Retryable, not a failure: the upstream API throttled us.
			return c.Status(fiber.StatusAccepted).JSON(summary)
		}
		return c.JSON(summary)
	})

	cron.Post("/reconcile/:match_id", func(c *fiber.Ctx) error {
		result, err := recon.ReconcileMatch(c.Context(), c.Params("match_id"))
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return c.Status(404).JSON(fiber.Map{"error": "match not found"})
			case errors.Is(err, services.ErrMatchNotActive):
				return c.Status(409).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrNoLinkedAccount):
				return c.Status(422).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, valorantapi.ErrRateLimited):
				return c.Status(503).JSON(fiber.Map{"error": "upstream rate limited, try again later"})
			default:
				return c.Status(500).JSON(fiber.Map{"error": "reconcile failed, try again later"})
			}
		}
		return c.JSON(result)
	})
}
