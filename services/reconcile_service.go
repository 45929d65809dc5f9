package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"valorant-hub/cache"
	"valorant-hub/models"
	"valorant-hub/valorantapi"

	"gorm.io/gorm"
)

// MatchResolver is the slice of the external API the engine needs; the tests
// substitute a fake for it.
type MatchResolver interface {
	ResolveCompletedMatch(ctx context.Context, region string, ident valorantapi.PlayerIdentity, hint valorantapi.SessionHint) (*valorantapi.ResolvedMatch, error)
}

// ReconcileService syncs authoritative external game results onto local
// matches and distributes rating/XP exactly once.
type ReconcileService struct {
	DB          *gorm.DB
	Cache       *cache.StatusCache
	Resolver    MatchResolver
	Progression *ProgressionService
}

func NewReconcileService(db *gorm.DB, statusCache *cache.StatusCache, resolver MatchResolver) *ReconcileService {
	return &ReconcileService{
		DB:          db,
		Cache:       statusCache,
		Resolver:    resolver,
		Progression: NewProgressionService(db),
	}
}

// ReconcileResult reports the outcome for one match.
type ReconcileResult struct {
	MatchID     string `json:"match_id"`
	Finished    bool   `json:"finished"`
	WinningTeam string `json:"winning_team,omitempty"`
	Mapped      int    `json:"mapped_players,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// ReconcileSummary reports one batch pass over all active matches.
type ReconcileSummary struct {
	Scanned     int      `json:"scanned"`
	Finalized   int      `json:"finalized"`
	Skipped     int      `json:"skipped"`
	RateLimited bool     `json:"rate_limited"`
	MatchIDs    []string `json:"finalized_match_ids"`
}

// ReconcileMatch checks whether the external game behind an active match has
// finished and, if so, commits stats, rating/XP deltas and the terminal state
// transition as one unit.
//
// Distinguished outcomes:
//   - ErrMatchNotActive: the match is pending or already terminal; rejected
//     before any external call.
//   - ErrNoLinkedAccount: the creator has no Riot identity on record.
//   - valorantapi.ErrRateLimited: propagated so callers can back off.
//   - result with Finished=false and nil error: the game simply isn't over.
func (s *ReconcileService) ReconcileMatch(ctx context.Context, matchID string) (*ReconcileResult, error) {
	var match models.Match
	if err := s.DB.WithContext(ctx).
		Preload("Participants.User").
		First(&match, "id = ?", matchID).Error; err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusActive {
		return nil, ErrMatchNotActive
	}

	var creator *models.HubUser
	for i := range match.Participants {
		if match.Participants[i].UserID == match.CreatorID {
			creator = &match.Participants[i].User
			break
		}
	}
	if creator == nil || !creator.HasLinkedAccount() {
		return nil, ErrNoLinkedAccount
	}

	hint := valorantapi.SessionHint{
		StartedAt:  match.CreatedAt,
		Identities: trackedIdentities(match.Participants),
	}
	if match.StartedAt != nil {
		hint.StartedAt = *match.StartedAt
	}
	if match.ExternalMatchID != nil {
		hint.ExternalMatchID = *match.ExternalMatchID
	}

	creatorIdent := valorantapi.PlayerIdentity{Name: *creator.GameName, Tag: *creator.GameTag}
	resolved, err := s.Resolver.ResolveCompletedMatch(ctx, creator.Region, creatorIdent, hint)
	if err != nil {
		if errors.Is(err, valorantapi.ErrNotFound) {
			// Not over yet; leave the match untouched and try next tick.
			return &ReconcileResult{MatchID: matchID, Finished: false, Reason: "external match not finished"}, nil
		}
		if errors.Is(err, valorantapi.ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("resolving match %s: %w", matchID, err)
	}

	result, err := s.commitResolved(ctx, &match, resolved)
	if err != nil {
		if errors.Is(err, errCommitConflict) {
			// Another tick finalized it between our read and the commit.
			return &ReconcileResult{MatchID: matchID, Finished: false, Reason: "already handled by a concurrent pass"}, nil
		}
		return nil, err
	}

	s.Cache.InvalidateQueueStatus(ctx)
	s.Cache.InvalidateMatch(ctx, matchID)
	log.Printf("🏁 [RECONCILE] match %s finished, winner=%s, mapped=%d/%d",
		match.ShortCode, result.WinningTeam, result.Mapped, len(match.Participants))
	return result, nil
}

// commitResolved applies all participant stats, user progression updates and
// the terminal transition atomically. Partial application is never
// observable: either the transaction lands whole or not at all.
func (s *ReconcileService) commitResolved(ctx context.Context, match *models.Match, resolved *valorantapi.ResolvedMatch) (*ReconcileResult, error) {
	now := time.Now()
	mapped := 0

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Optimistic status check at write time; losing this race means
		// another pass already distributed the points.
		res := tx.Model(&models.Match{}).
			Where("id = ? AND status = ?", match.ID, models.MatchStatusActive).
			Updates(map[string]interface{}{
				"status":            models.MatchStatusFinished,
				"finished_at":       &now,
				"winning_team":      resolved.WinningTeam,
				"duration_sec":      resolved.DurationSec,
				"external_match_id": resolved.ExternalMatchID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errCommitConflict
		}

		for i := range match.Participants {
			p := &match.Participants[i]
			won := p.Team == resolved.WinningTeam

			xpDelta := int64(BaseMatchXP)
			if won {
				xpDelta += WinBonusXP
			}
			ratingDelta := 0

			updates := map[string]interface{}{}
			if ext := findExternalPlayer(&p.User, resolved.Players); ext != nil {
				mapped++
				ratingDelta = ratingDeltaForTier(ext.Tier, won)
				updates["kills"] = ext.Kills
				updates["deaths"] = ext.Deaths
				updates["assists"] = ext.Assists
				updates["score"] = ext.Score
			}
			// Participants absent from the external result keep nil stats
			// and an unchanged rating; the match still finalizes.
			updates["rating_delta"] = ratingDelta
			updates["xp_delta"] = xpDelta

			if err := tx.Model(&models.MatchParticipant{}).
				Where("id = ?", p.ID).
				Updates(updates).Error; err != nil {
				return err
			}
			if err := s.Progression.ApplyMatchDeltas(tx, p.UserID, ratingDelta, xpDelta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{
		MatchID:     match.ID,
		Finished:    true,
		WinningTeam: resolved.WinningTeam,
		Mapped:      mapped,
	}, nil
}

// ReconcileAllActive runs ReconcileMatch over every active match, oldest
// first. One match's failure never aborts the scan; a rate-limit signal stops
// the pass early and flags the summary as retryable.
func (s *ReconcileService) ReconcileAllActive(ctx context.Context) (ReconcileSummary, error) {
	summary := ReconcileSummary{MatchIDs: []string{}}

	var active []models.Match
	if err := s.DB.WithContext(ctx).
		Where("status = ?", models.MatchStatusActive).
		Order("created_at ASC").
		Find(&active).Error; err != nil {
		return summary, err
	}

	for _, m := range active {
		summary.Scanned++
		result, err := s.ReconcileMatch(ctx, m.ID)
		if err != nil {
			if errors.Is(err, valorantapi.ErrRateLimited) {
				summary.RateLimited = true
				log.Printf("⏳ [RECONCILE] upstream throttled, pausing pass after %d of %d", summary.Scanned, len(active))
				break
			}
			summary.Skipped++
			log.Printf("[RECONCILE] match %s skipped: %v", m.ID, err)
			continue
		}
		if result.Finished {
			summary.Finalized++
			summary.MatchIDs = append(summary.MatchIDs, m.ID)
		}
	}
	return summary, nil
}

// ratingDeltaForTier is the fixed rating rule: gains shrink and losses grow
// slightly with the rank band the player held at match time.
func ratingDeltaForTier(tier int, won bool) int {
	band := tier / 3 // API tiers come in bands of three per named rank
	if band > 8 {
		band = 8
	}
	if won {
		return 30 - band*2 // 30 down to 14
	}
	return -(14 + band) // -14 down to -22
}

func trackedIdentities(parts []models.MatchParticipant) []valorantapi.PlayerIdentity {
	idents := make([]valorantapi.PlayerIdentity, 0, len(parts))
	for i := range parts {
		u := &parts[i].User
		if u.HasLinkedAccount() {
			idents = append(idents, valorantapi.PlayerIdentity{Name: *u.GameName, Tag: *u.GameTag})
		}
	}
	return idents
}

func findExternalPlayer(u *models.HubUser, players []valorantapi.PlayerResult) *valorantapi.PlayerResult {
	if !u.HasLinkedAccount() {
		return nil
	}
	for i := range players {
		if strings.EqualFold(players[i].Identity.Name, *u.GameName) &&
			strings.EqualFold(players[i].Identity.Tag, *u.GameTag) {
			return &players[i]
		}
	}
	return nil
}
