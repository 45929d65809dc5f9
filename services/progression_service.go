package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"valorant-hub/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XP rewards (tunable via config/env later)
const (
	BaseMatchXP = 100
	WinBonusXP  = 50
)

// LevelConfig: XP needed for *next* level grows with a gentle power curve.
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to go from currentLevel to the next one.
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// LevelForXP derives the level from total XP. Monotonic: XP never goes down,
// so neither does the level.
func LevelForXP(totalXP int64) int {
	level := 1
	var threshold int64
	for {
		threshold += xpForNextLevel(level)
		if totalXP < threshold {
			return level
		}
		level++
	}
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// ApplyMatchDeltas mutates one user's rating and XP inside the caller's
// transaction, so the update commits or rolls back with the match
// finalization it belongs to. Rating never drops below zero.
func (s *ProgressionService) ApplyMatchDeltas(tx *gorm.DB, userID string, ratingDelta int, xpDelta int64) error {
	var user models.HubUser
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("user %s not found for delta apply: %w", userID, err)
	}

	user.Rating += ratingDelta
	if user.Rating < 0 {
		user.Rating = 0
	}
	user.TierLabel = models.TierForRating(user.Rating)
	user.XP += xpDelta
	user.Level = LevelForXP(user.XP)

	return tx.Save(&user).Error
}

// AwardXP adds XP in its own transaction and recomputes the level.
func (s *ProgressionService) AwardXP(userID string, xp int64, reason string) (*models.HubUser, error) {
	var updated models.HubUser
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.HubUser
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("user %s not found: %w", userID, err)
		}
		user.XP += xp
		user.Level = LevelForXP(user.XP)
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🎮 XP awarded: %s +%d → XP=%d, Lvl=%d (reason: %s)",
		userID, xp, updated.XP, updated.Level, reason)
	return &updated, nil
}

// CompleteMission records a (user, mission) completion at most once. Only the
// insert that actually created the row grants XP, and both happen in one
// transaction: a failed award rolls the completion back, leaving it
// retryable instead of permanently marked as granted.
func (s *ProgressionService) CompleteMission(ctx context.Context, userID, missionID string) (bool, error) {
	var mission models.Mission
	if err := s.DB.WithContext(ctx).First(&mission, "id = ?", missionID).Error; err != nil {
		return false, err
	}
	if !mission.IsActive {
		return false, nil
	}

	record := models.UserMission{
		ID:          uuid.NewString(),
		UserID:      userID,
		MissionID:   missionID,
		XPGranted:   mission.XPReward,
		CompletedAt: time.Now(),
	}
	granted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "mission_id"}},
			DoNothing: true,
		}).Create(&record)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already completed, nothing granted
		}
		granted = true
		return s.ApplyMatchDeltas(tx, userID, 0, mission.XPReward)
	})
	if err != nil {
		return false, err
	}
	if granted {
		log.Printf("🎮 XP awarded: %s +%d (reason: mission_%s)", userID, mission.XPReward, mission.Slug)
	}
	return granted, nil
}

// VerifyMissions evaluates the built-in mission criteria for a user and
// completes whichever are newly satisfied. Running it twice in a row grants
// nothing the second time.
func (s *ProgressionService) VerifyMissions(ctx context.Context, userID string) (int, error) {
	var user models.HubUser
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}

	var missions []models.Mission
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Find(&missions).Error; err != nil {
		return 0, err
	}

	granted := 0
	for _, m := range missions {
		ok, err := s.missionSatisfied(ctx, &user, m)
		if err != nil {
			log.Printf("[MISSION] skipping %s for %s: %v", m.Slug, userID, err)
			continue
		}
		if !ok {
			continue
		}
		created, err := s.CompleteMission(ctx, userID, m.ID)
		if err != nil {
			log.Printf("[MISSION] failed to complete %s for %s: %v", m.Slug, userID, err)
			continue
		}
		if created {
			granted++
		}
	}
	return granted, nil
}

func (s *ProgressionService) missionSatisfied(ctx context.Context, user *models.HubUser, m models.Mission) (bool, error) {
	switch m.Slug {
	case "link-your-account":
		return user.HasLinkedAccount(), nil
	case "play-your-first-match":
		n, err := s.finishedMatchCount(ctx, user.ID)
		return n >= 1, err
	case "play-five-matches":
		n, err := s.finishedMatchCount(ctx, user.ID)
		return n >= 5, err
	case "reach-level-five":
		return user.Level >= 5, nil
	default:
		// Unknown slugs are completed manually via CompleteMission.
		return false, nil
	}
}

func (s *ProgressionService) finishedMatchCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.MatchParticipant{}).
		Joins("JOIN matches ON matches.id = match_participants.match_id").
		Where("match_participants.user_id = ? AND matches.status = ?", userID, models.MatchStatusFinished).
		Count(&n).Error
	return n, err
}

// RecomputeTierLabels refreshes every user's tier label from their rating.
// Admin-only maintenance; ratings themselves are untouched.
func (s *ProgressionService) RecomputeTierLabels(ctx context.Context) (int64, error) {
	var users []models.HubUser
	if err := s.DB.WithContext(ctx).Find(&users).Error; err != nil {
		return 0, err
	}
	var changed int64
	for _, u := range users {
		want := models.TierForRating(u.Rating)
		if u.TierLabel == want {
			continue
		}
		if err := s.DB.WithContext(ctx).Model(&models.HubUser{}).
			Where("id = ?", u.ID).
			Update("tier_label", want).Error; err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// defaultMissions seeds the built-in mission catalog.
var defaultMissions = []struct {
	Title   string
	Cadence string
	XP      int64
}{
	{"Link your account", models.MissionCadenceOnce, 200},
	{"Play your first match", models.MissionCadenceOnce, 300},
	{"Play five matches", models.MissionCadenceOnce, 500},
	{"Reach level five", models.MissionCadenceOnce, 400},
}

// SeedDefaultMissions inserts the built-in catalog, skipping slugs that
// already exist.
func SeedDefaultMissions(db *gorm.DB) error {
	for _, dm := range defaultMissions {
		mission := models.Mission{
			ID:       uuid.NewString(),
			Slug:     slug.Make(dm.Title),
			Title:    dm.Title,
			Cadence:  dm.Cadence,
			XPReward: dm.XP,
			IsActive: true,
		}
		var existing models.Mission
		err := db.Where("slug = ?", mission.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&mission).Error; err != nil {
			return err
		}
	}
	return nil
}
