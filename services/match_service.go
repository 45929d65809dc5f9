package services

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"valorant-hub/cache"
	"valorant-hub/models"
	"valorant-hub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchService handles queue and lobby CRUD around the core pipeline.
type MatchService struct {
	DB    *gorm.DB
	Cache *cache.StatusCache
}

func NewMatchService(db *gorm.DB, statusCache *cache.StatusCache) *MatchService {
	return &MatchService{DB: db, Cache: statusCache}
}

// ---- queue ----

// JoinQueue creates the user's queue entry. A user holds at most one entry
// across all tiers and cannot queue while in a non-terminal match.
func (s *MatchService) JoinQueue(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		QueueTier    string  `json:"queue_tier"`
		DuoPartnerID *string `json:"duo_partner_id,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if !models.ValidQueueTier(req.QueueTier) {
		return c.Status(400).JSON(fiber.Map{"error": ErrInvalidQueueTier.Error()})
	}

	entry := models.QueueEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		QueueTier:    req.QueueTier,
		JoinedAt:     time.Now(),
		DuoPartnerID: req.DuoPartnerID,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.QueueEntry{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyQueued
		}
		if inMatch, err := s.userInOpenMatch(tx, userID); err != nil {
			return err
		} else if inMatch {
			return ErrAlreadyInMatch
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyQueued), errors.Is(err, ErrAlreadyInMatch):
			return c.Status(409).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("[QUEUE] DB error joining queue for %s: %v", userID, err)
			return c.Status(500).JSON(fiber.Map{"error": "database error"})
		}
	}

	s.Cache.InvalidateQueueStatus(c.Context())
	return c.Status(201).JSON(entry)
}

// LeaveQueue deletes the user's queue entry if any.
func (s *MatchService) LeaveQueue(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	res := s.DB.Where("user_id = ?", userID).Delete(&models.QueueEntry{})
	if res.Error != nil {
		log.Printf("[QUEUE] DB error leaving queue for %s: %v", userID, res.Error)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	s.Cache.InvalidateQueueStatus(c.Context())
	return c.JSON(fiber.Map{"left": res.RowsAffected > 0})
}

// GetQueueStatus serves the per-tier queue counts, cached in redis between
// invalidations.
func (s *MatchService) GetQueueStatus(c *fiber.Ctx) error {
	if cached := s.Cache.GetQueueStatus(c.Context()); cached != "" {
		c.Set("Content-Type", "application/json")
		return c.SendString(cached)
	}

	type tierCount struct {
		QueueTier string `json:"queue_tier"`
		Waiting   int64  `json:"waiting"`
	}
	var counts []tierCount
	if err := s.DB.Model(&models.QueueEntry{}).
		Select("queue_tier, count(*) as waiting").
		Group("queue_tier").
		Scan(&counts).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	var pendingMatches int64
	if err := s.DB.Model(&models.Match{}).Where("status = ?", models.MatchStatusPending).Count(&pendingMatches).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	payload := fiber.Map{
		"tiers":           counts,
		"pending_matches": pendingMatches,
		"generated_at":    time.Now(),
	}
	if raw, err := json.Marshal(payload); err == nil {
		s.Cache.SetQueueStatus(c.Context(), string(raw))
	}
	return c.JSON(payload)
}

// ---- lobbies ----

// CreateMatch opens a pending lobby with the caller as creator on team red.
func (s *MatchService) CreateMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		QueueTier string  `json:"queue_tier"`
		RoomCode  *string `json:"room_code,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.QueueTier == "" {
		req.QueueTier = models.QueueTierCompetitive
	}
	if !models.ValidQueueTier(req.QueueTier) {
		return c.Status(400).JSON(fiber.Map{"error": ErrInvalidQueueTier.Error()})
	}

	match := models.Match{
		ID:         uuid.NewString(),
		ShortCode:  utils.GenerateShortCode(6),
		Status:     models.MatchStatusPending,
		CreatorID:  userID,
		MaxPlayers: models.DefaultMaxPlayers,
		QueueTier:  req.QueueTier,
		RoomCode:   req.RoomCode,
	}
	creator := models.MatchParticipant{
		ID:      uuid.NewString(),
		MatchID: match.ID,
		UserID:  userID,
		Team:    models.TeamRed,
		Role:    models.RoleCreator,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if inMatch, err := s.userInOpenMatch(tx, userID); err != nil {
			return err
		} else if inMatch {
			return ErrAlreadyInMatch
		}
		if err := tx.Create(&match).Error; err != nil {
			return err
		}
		return tx.Create(&creator).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyInMatch) {
			return c.Status(409).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("[MATCH] DB error creating match for %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	s.Cache.InvalidateQueueStatus(c.Context())
	log.Printf("✅ [MATCH] %s created lobby %s (%s)", userID, match.ShortCode, match.ID)
	return c.Status(201).JSON(match)
}

// JoinMatch adds the caller to a pending lobby on the requested team,
// honouring capacity and per-side limits.
func (s *MatchService) JoinMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("match_id")

	var req struct {
		Team string `json:"team"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Team != models.TeamRed && req.Team != models.TeamBlue {
		return c.Status(400).JSON(fiber.Map{"error": "team must be red or blue"})
	}

	participant := models.MatchParticipant{
		ID:      uuid.NewString(),
		MatchID: matchID,
		UserID:  userID,
		Team:    req.Team,
		Role:    models.RoleMember,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
			return err
		}
		if match.Status != models.MatchStatusPending {
			return ErrMatchNotJoinable
		}
		if inMatch, err := s.userInOpenMatch(tx, userID); err != nil {
			return err
		} else if inMatch {
			return ErrAlreadyInMatch
		}

		var total, onTeam int64
		if err := tx.Model(&models.MatchParticipant{}).Where("match_id = ?", matchID).Count(&total).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.MatchParticipant{}).Where("match_id = ? AND team = ?", matchID, req.Team).Count(&onTeam).Error; err != nil {
			return err
		}
		if total >= int64(match.MaxPlayers) {
			return ErrMatchFull
		}
		if onTeam >= int64(match.MaxPlayers/2) {
			return ErrTeamFull
		}

		if err := tx.Create(&participant).Error; err != nil {
			return err
		}
		// Joining a lobby supersedes any queue entry.
		return tx.Where("user_id = ?", userID).Delete(&models.QueueEntry{}).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		case errors.Is(err, ErrMatchNotJoinable), errors.Is(err, ErrMatchFull),
			errors.Is(err, ErrTeamFull), errors.Is(err, ErrAlreadyInMatch):
			return c.Status(409).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("[MATCH] DB error joining match %s: %v", matchID, err)
			return c.Status(500).JSON(fiber.Map{"error": "database error"})
		}
	}

	s.Cache.InvalidateQueueStatus(c.Context())
	s.Cache.InvalidateMatch(c.Context(), matchID)
	return c.Status(201).JSON(participant)
}

// LeaveMatch removes the caller from a still-pending lobby.
func (s *MatchService) LeaveMatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("match_id")

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
			return err
		}
		if match.Status != models.MatchStatusPending {
			return ErrMatchNotJoinable
		}
		res := tx.Where("match_id = ? AND user_id = ?", matchID, userID).Delete(&models.MatchParticipant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(404).JSON(fiber.Map{"error": "not a participant of this match"})
		case errors.Is(err, ErrMatchNotJoinable):
			return c.Status(409).JSON(fiber.Map{"error": "match already started"})
		default:
			log.Printf("[MATCH] DB error leaving match %s: %v", matchID, err)
			return c.Status(500).JSON(fiber.Map{"error": "database error"})
		}
	}

	s.Cache.InvalidateMatch(c.Context(), matchID)
	return c.JSON(fiber.Map{"left": true})
}

// GetMatch returns a match with participants.
func (s *MatchService) GetMatch(c *fiber.Ctx) error {
	matchID := c.Params("match_id")

	var match models.Match
	if err := s.DB.Preload("Participants.User").First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(match)
}

// ---- admin ----

// ResetQueue bulk-deletes all queue entries.
func (s *MatchService) ResetQueue(c *fiber.Ctx) error {
	res := s.DB.Where("1 = 1").Delete(&models.QueueEntry{})
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}
	s.Cache.InvalidateQueueStatus(c.Context())
	log.Printf("🧹 [ADMIN] queue reset, %d entries dropped", res.RowsAffected)
	return c.JSON(fiber.Map{"deleted": res.RowsAffected})
}

// CancelMatch force-cancels a non-terminal match (admin override).
func (s *MatchService) CancelMatch(c *fiber.Ctx) error {
	matchID := c.Params("match_id")
	now := time.Now()

	res := s.DB.Model(&models.Match{}).
		Where("id = ? AND status IN ?", matchID, []string{models.MatchStatusPending, models.MatchStatusActive}).
		Updates(map[string]interface{}{
			"status":      models.MatchStatusCancelled,
			"finished_at": &now,
		})
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}
	if res.RowsAffected == 0 {
		return c.Status(409).JSON(fiber.Map{"error": "match not found or already terminal"})
	}

	s.Cache.InvalidateQueueStatus(c.Context())
	s.Cache.InvalidateMatch(c.Context(), matchID)
	log.Printf("🛑 [ADMIN] match %s cancelled", matchID)
	return c.JSON(fiber.Map{"cancelled": true})
}

// userInOpenMatch reports whether the user belongs to any non-terminal match.
func (s *MatchService) userInOpenMatch(tx *gorm.DB, userID string) (bool, error) {
	var n int64
	err := tx.Model(&models.MatchParticipant{}).
		Joins("JOIN matches ON matches.id = match_participants.match_id").
		Where("match_participants.user_id = ? AND matches.status IN ?",
			userID, []string{models.MatchStatusPending, models.MatchStatusActive}).
		Count(&n).Error
	return n > 0, err
}
