package services

import (
	"context"
	"testing"

	"valorant-hub/models"
	"valorant-hub/valorantapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileFullMapping(t *testing.T) {
	db := newTestDB(t)
	match, users := createLobby(t, db, models.MatchStatusActive, 5, 5, true)

	resolver := &fakeResolver{result: resolvedFor(match, users, 5, nil)}
	svc := NewReconcileService(db, nil, resolver)

	result, err := svc.ReconcileMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.True(t, result.Finished)
	assert.Equal(t, models.TeamRed, result.WinningTeam)
	assert.Equal(t, 10, result.Mapped)

	var got models.Match
	require.NoError(t, db.Preload("Participants").First(&got, "id = ?", match.ID).Error)
	assert.Equal(t, models.MatchStatusFinished, got.Status)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.WinningTeam)
	assert.Equal(t, models.TeamRed, *got.WinningTeam)
	assert.Equal(t, 2100, got.DurationSec)
	require.NotNil(t, got.ExternalMatchID)
	assert.Equal(t, "ext-"+match.ID, *got.ExternalMatchID)

	for _, p := range got.Participants {
		require.NotNil(t, p.Kills, "every tracked participant gets stats")
		assert.NotZero(t, p.RatingDelta)
		assert.NotZero(t, p.XPDelta)
		if p.Team == models.TeamRed {
			assert.Positive(t, p.RatingDelta)
			assert.Equal(t, int64(BaseMatchXP+WinBonusXP), p.XPDelta)
		} else {
			assert.Negative(t, p.RatingDelta)
			assert.Equal(t, int64(BaseMatchXP), p.XPDelta)
		}
	}

	// Winners gained rating, losers lost it, everyone gained XP.
	var winner, loser models.HubUser
	require.NoError(t, db.First(&winner, "id = ?", users[0].ID).Error)
	require.NoError(t, db.First(&loser, "id = ?", users[9].ID).Error)
	assert.Greater(t, winner.Rating, models.DefaultRating)
	assert.Less(t, loser.Rating, models.DefaultRating)
	assert.Positive(t, winner.XP)
	assert.Positive(t, loser.XP)
}

func TestReconcileExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	match, users := createLobby(t, db, models.MatchStatusActive, 5, 5, true)

	resolver := &fakeResolver{result: resolvedFor(match, users, 5, nil)}
	svc := NewReconcileService(db, nil, resolver)

	_, err := svc.ReconcileMatch(context.Background(), match.ID)
	require.NoError(t, err)
	require.Equal(t, 1, resolver.calls)

	var ratingAfterFirst int
	var user models.HubUser
	require.NoError(t, db.First(&user, "id = ?", users[0].ID).Error)
	ratingAfterFirst = user.Rating

	// Second invocation is rejected up front, before any external call.
	_, err = svc.ReconcileMatch(context.Background(), match.ID)
	assert.ErrorIs(t, err, ErrMatchNotActive)
	assert.Equal(t, 1, resolver.calls)

	require.NoError(t, db.First(&user, "id = ?", users[0].ID).Error)
	assert.Equal(t, ratingAfterFirst, user.Rating, "deltas applied at most once")
}

func TestReconcileRejectsPendingMatch(t *testing.T) {
	db := newTestDB(t)
	match, _ := createLobby(t, db, models.MatchStatusPending, 5, 5, true)

	resolver := &fakeResolver{result: nil}
	svc := NewReconcileService(db, nil, resolver)

	_, err := svc.ReconcileMatch(context.Background(), match.ID)
	assert.ErrorIs(t, err, ErrMatchNotActive)
	assert.Zero(t, resolver.calls, "a pending match never reaches the external API")

	var got models.Match
	require.NoError(t, db.First(&got, "id = ?", match.ID).Error)
	assert.Equal(t, models.MatchStatusPending, got.Status)
}

func TestReconcileNotFinishedLeavesMatchUntouched(t *testing.T) {
	db := newTestDB(t)
	match, _ := createLobby(t, db, models.MatchStatusActive, 5, 5, true)

	resolver := &fakeResolver{err: valorantapi.ErrNotFound}
	svc := NewReconcileService(db, nil, resolver)

	result, err := svc.ReconcileMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.False(t, result.Finished)

	var got models.Match
	require.NoError(t, db.First(&got, "id = ?", match.ID).Error)
	assert.Equal(t, models.MatchStatusActive, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.Nil(t, got.WinningTeam)
}

func TestReconcilePartialMappingStillFinalizes(t *testing.T) {
	db := newTestDB(t)
	match, users := createLobby(t, db, models.MatchStatusActive, 5, 5, true)

	omit := map[string]bool{users[3].ID: true, users[7].ID: true}
	resolver := &fakeResolver{result: resolvedFor(match, users, 5, omit)}
	svc := NewReconcileService(db, nil, resolver)

	result, err := svc.ReconcileMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.True(t, result.Finished)
	assert.Equal(t, 8, result.Mapped)

	var got models.Match
	require.NoError(t, db.Preload("Participants").First(&got, "id = ?", match.ID).Error)
	assert.Equal(t, models.MatchStatusFinished, got.Status)

	for _, p := range got.Participants {
		if omit[p.UserID] {
			assert.Nil(t, p.Kills, "unmatched participants keep null stats")
			assert.Zero(t, p.RatingDelta)
			assert.Equal(t, int64(BaseMatchXP+WinBonusXP), p.XPDelta, "omitted red player still gets the match XP")
		} else {
			assert.NotNil(t, p.Kills)
		}
	}
}

func TestReconcileMissingLinkedAccount(t *testing.T) {
	db := newTestDB(t)
	match, _ := createLobby(t, db, models.MatchStatusActive, 5, 5, false)

	resolver := &fakeResolver{}
	svc := NewReconcileService(db, nil, resolver)

	_, err := svc.ReconcileMatch(context.Background(), match.ID)
	assert.ErrorIs(t, err, ErrNoLinkedAccount)
	assert.Zero(t, resolver.calls, "validation failures never reach the external API")
}

func TestReconcileAllActiveStopsOnRateLimit(t *testing.T) {
	db := newTestDB(t)
	createLobby(t, db, models.MatchStatusActive, 5, 5, true)
	createLobby(t, db, models.MatchStatusActive, 5, 5, true)

	resolver := &fakeResolver{err: valorantapi.ErrRateLimited}
	svc := NewReconcileService(db, nil, resolver)

	summary, err := svc.ReconcileAllActive(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.RateLimited)
	assert.Equal(t, 1, summary.Scanned, "pass pauses instead of hammering the API")
	assert.Equal(t, 1, resolver.calls)
	assert.Zero(t, summary.Finalized)

	// Nothing was marked failed or finished.
	var active int64
	db.Model(&models.Match{}).Where("status = ?", models.MatchStatusActive).Count(&active)
	assert.Equal(t, int64(2), active)
}

func TestReconcileAllActiveSkipsBadMatchesAndContinues(t *testing.T) {
	db := newTestDB(t)
	// First match has no linked creator and must not abort the batch.
	createLobby(t, db, models.MatchStatusActive, 5, 5, false)
	good, goodUsers := createLobby(t, db, models.MatchStatusActive, 5, 5, true)

	resolver := &fakeResolver{result: resolvedFor(good, goodUsers, 5, nil)}
	svc := NewReconcileService(db, nil, resolver)

	summary, err := svc.ReconcileAllActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Finalized)
	assert.Equal(t, []string{good.ID}, summary.MatchIDs)
}
