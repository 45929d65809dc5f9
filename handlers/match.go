// handlers/match.go
package handlers

import (
	"valorant-hub/middleware"
	"valorant-hub/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService) {
	// 🔓 Public routes — no user context, but still behind Gateway auth
	app.Get("/queue/status", matchService.GetQueueStatus)
	app.Get("/matches/:match_id", matchService.GetMatch)

	// 🔐 Secured routes — require user context forwarded by the Gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/queue/join", matchService.JoinQueue)
	secured.Post("/queue/leave", matchService.LeaveQueue)

	secured.Post("/matches", matchService.CreateMatch)
	secured.Post("/matches/:match_id/join", matchService.JoinMatch)
	secured.Post("/matches/:match_id/leave", matchService.LeaveMatch)

	// 🛡️ Admin overrides
	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware())
	admin.Post("/queue/reset", matchService.ResetQueue)
	admin.Post("/matches/:match_id/cancel", matchService.CancelMatch)
}
