package services

import (
	"context"
	"testing"

	"valorant-hub/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoteFullBalancedMatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewPromotionService(db, nil)

	match, users := createLobby(t, db, models.MatchStatusPending, 5, 5, false)

	// Promoted players should also be cleared from the queue.
	for _, u := range users {
		require.NoError(t, db.Create(&models.QueueEntry{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			QueueTier: models.QueueTierCompetitive,
		}).Error)
	}

	summary, err := svc.PromotePendingMatches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Started)
	assert.Equal(t, []string{match.ID}, summary.MatchIDs)

	var got models.Match
	require.NoError(t, db.First(&got, "id = ?", match.ID).Error)
	assert.Equal(t, models.MatchStatusActive, got.Status)
	require.NotNil(t, got.StartedAt)

	var queued int64
	db.Model(&models.QueueEntry{}).Count(&queued)
	assert.Zero(t, queued)
}

func TestPromotionSkipsIncompleteAndUnbalanced(t *testing.T) {
	tests := []struct {
		name  string
		nRed  int
		nBlue int
	}{
		{"nine of ten", 5, 4},
		{"unbalanced six four", 6, 4},
		{"empty lobby", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			svc := NewPromotionService(db, nil)

			match, _ := createLobby(t, db, models.MatchStatusPending, tt.nRed, tt.nBlue, false)

			summary, err := svc.PromotePendingMatches(context.Background())
			require.NoError(t, err)
			assert.Zero(t, summary.Started)

			var got models.Match
			require.NoError(t, db.First(&got, "id = ?", match.ID).Error)
			assert.Equal(t, models.MatchStatusPending, got.Status)
			assert.Nil(t, got.StartedAt)
		})
	}
}

func TestPromotionIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewPromotionService(db, nil)

	createLobby(t, db, models.MatchStatusPending, 5, 5, false)

	first, err := svc.PromotePendingMatches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Started)

	second, err := svc.PromotePendingMatches(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Started)
	assert.Empty(t, second.MatchIDs)
}

func TestPromotionPromotesOnlyEligibleAmongMany(t *testing.T) {
	db := newTestDB(t)
	svc := NewPromotionService(db, nil)

	full, _ := createLobby(t, db, models.MatchStatusPending, 5, 5, false)
	partial, _ := createLobby(t, db, models.MatchStatusPending, 3, 2, false)

	summary, err := svc.PromotePendingMatches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Started)
	assert.Equal(t, []string{full.ID}, summary.MatchIDs)

	var got models.Match
	require.NoError(t, db.First(&got, "id = ?", partial.ID).Error)
	assert.Equal(t, models.MatchStatusPending, got.Status)
}
