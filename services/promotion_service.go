package services

import (
	"context"
	"log"
	"time"

	"valorant-hub/cache"
	"valorant-hub/models"

	"gorm.io/gorm"
)

// promotionScanLimit bounds how many pending matches one pass inspects,
// oldest first.
const promotionScanLimit = 50

// PromotionService scans pending lobbies and promotes the ones with a full,
// balanced roster to active.
type PromotionService struct {
	DB    *gorm.DB
	Cache *cache.StatusCache
}

func NewPromotionService(db *gorm.DB, statusCache *cache.StatusCache) *PromotionService {
	return &PromotionService{DB: db, Cache: statusCache}
}

// PromotionSummary reports one promotion pass.
type PromotionSummary struct {
	Started  int      `json:"started"`
	MatchIDs []string `json:"match_ids"`
}

// PromotePendingMatches promotes every eligible pending match in one batched
// transition. A match is eligible iff its participant count equals the mode's
// required size and each side holds exactly half. Idempotent: a pass with no
// newly eligible matches starts nothing.
func (s *PromotionService) PromotePendingMatches(ctx context.Context) (PromotionSummary, error) {
	summary := PromotionSummary{MatchIDs: []string{}}

	var pending []models.Match
	if err := s.DB.WithContext(ctx).
		Preload("Participants").
		Where("status = ?", models.MatchStatusPending).
		Order("created_at ASC").
		Limit(promotionScanLimit).
		Find(&pending).Error; err != nil {
		return summary, err
	}

	var candidates []models.Match
	for _, m := range pending {
		if rosterComplete(m.Participants, m.MaxPlayers) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return summary, nil
	}

	now := time.Now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range candidates {
			// Re-verify the roster at commit time; participants may have
			// left since the scan, or another tick may have promoted it.
			var parts []models.MatchParticipant
			if err := tx.Where("match_id = ?", m.ID).Find(&parts).Error; err != nil {
				return err
			}
			if !rosterComplete(parts, m.MaxPlayers) {
				continue
			}

			res := tx.Model(&models.Match{}).
				Where("id = ? AND status = ?", m.ID, models.MatchStatusPending).
				Updates(map[string]interface{}{
					"status":     models.MatchStatusActive,
					"started_at": &now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue // lost the race to another tick
			}

			// Promoted players no longer wait in any queue.
			userIDs := make([]string, 0, len(parts))
			for _, p := range parts {
				userIDs = append(userIDs, p.UserID)
			}
			if err := tx.Where("user_id IN ?", userIDs).Delete(&models.QueueEntry{}).Error; err != nil {
				return err
			}

			summary.Started++
			summary.MatchIDs = append(summary.MatchIDs, m.ID)
		}
		return nil
	})
	if err != nil {
		return PromotionSummary{MatchIDs: []string{}}, err
	}

	if summary.Started > 0 {
		s.Cache.InvalidateQueueStatus(ctx)
		for _, id := range summary.MatchIDs {
			s.Cache.InvalidateMatch(ctx, id)
		}
		log.Printf("🚀 [PROMOTE] %d match(es) promoted to active: %v", summary.Started, summary.MatchIDs)
	}
	return summary, nil
}

// rosterComplete checks full, balanced team composition.
func rosterComplete(parts []models.MatchParticipant, maxPlayers int) bool {
	if maxPlayers <= 0 || len(parts) != maxPlayers {
		return false
	}
	red := 0
	for _, p := range parts {
		if p.Team == models.TeamRed {
			red++
		}
	}
	return red == maxPlayers/2 && len(parts)-red == maxPlayers/2
}
