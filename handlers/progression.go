// handlers/progression.go
package handlers

import (
	"errors"

	"valorant-hub/middleware"
	"valorant-hub/models"
	"valorant-hub/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Upserts the hub-side user row for the authenticated identity and
	// stores the linked Riot account used by reconciliation.
	secured.Post("/user/link-account", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		email, _ := c.Locals("user_email").(string)

		var req struct {
			Username string `json:"username"`
			GameName string `json:"game_name"`
			GameTag  string `json:"game_tag"`
			Region   string `json:"region"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
		}
		if req.GameName == "" || req.GameTag == "" {
			return c.Status(400).JSON(fiber.Map{"error": "game_name and game_tag are required"})
		}
		if req.Region == "" {
			req.Region = "eu"
		}

		var user models.HubUser
		err := progressionService.DB.First(&user, "id = ?", userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.HubUser{
				ID:        userID,
				Username:  req.Username,
				Email:     email,
				GameName:  &req.GameName,
				GameTag:   &req.GameTag,
				Region:    req.Region,
				Rating:    models.DefaultRating,
				TierLabel: models.TierForRating(models.DefaultRating),
				Level:     1,
			}
			if err := progressionService.DB.Create(&user).Error; err != nil {
				return c.Status(500).JSON(fiber.Map{"error": "failed to create user", "cause": err.Error()})
			}
		case err != nil:
			return c.Status(500).JSON(fiber.Map{"error": "database error", "cause": err.Error()})
		default:
			updates := map[string]interface{}{
				"game_name": req.GameName,
				"game_tag":  req.GameTag,
				"region":    req.Region,
			}
			if req.Username != "" {
				updates["username"] = req.Username
			}
			if err := progressionService.DB.Model(&user).Updates(updates).Error; err != nil {
				return c.Status(500).JSON(fiber.Map{"error": "failed to link account", "cause": err.Error()})
			}
		}
		return c.JSON(user)
	})

	secured.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var user models.HubUser
		if err := progressionService.DB.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(404).JSON(fiber.Map{"error": "user not found"})
			}
			return c.Status(500).JSON(fiber.Map{"error": "database error", "cause": err.Error()})
		}

		var matchesPlayed, matchesWon int64
		progressionService.DB.Model(&models.MatchParticipant{}).
			Joins("JOIN matches ON matches.id = match_participants.match_id").
			Where("match_participants.user_id = ? AND matches.status = ?", userID, models.MatchStatusFinished).
			Count(&matchesPlayed)
		progressionService.DB.Model(&models.MatchParticipant{}).
			Joins("JOIN matches ON matches.id = match_participants.match_id").
			Where("match_participants.user_id = ? AND matches.status = ? AND matches.winning_team = match_participants.team",
				userID, models.MatchStatusFinished).
			Count(&matchesWon)

		return c.JSON(fiber.Map{
			"id":             user.ID,
			"rating":         user.Rating,
			"tier_label":     user.TierLabel,
			"xp":             user.XP,
			"level":          user.Level,
			"matches_played": matchesPlayed,
			"matches_won":    matchesWon,
		})
	})

	secured.Get("/missions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var missions []models.Mission
		if err := progressionService.DB.Where("is_active = ?", true).Find(&missions).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "database error"})
		}
		var completed []models.UserMission
		if err := progressionService.DB.Where("user_id = ?", userID).Find(&completed).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "database error"})
		}

		done := make(map[string]bool, len(completed))
		for _, um := range completed {
			done[um.MissionID] = true
		}

		type missionView struct {
			models.Mission
			Completed bool `json:"completed"`
		}
		out := make([]missionView, 0, len(missions))
		for _, m := range missions {
			out = append(out, missionView{Mission: m, Completed: done[m.ID]})
		}
		return c.JSON(fiber.Map{"missions": out})
	})

	// Idempotent: verifying twice never double-grants XP.
	secured.Post("/missions/verify", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		granted, err := progressionService.VerifyMissions(c.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(404).JSON(fiber.Map{"error": "user not found"})
			}
			return c.Status(500).JSON(fiber.Map{"error": "failed to verify missions", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"newly_completed": granted})
	})

	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware())
	admin.Post("/progression/recompute-tiers", func(c *fiber.Ctx) error {
		changed, err := progressionService.RecomputeTierLabels(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "recompute failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"relabelled": changed})
	})
}
