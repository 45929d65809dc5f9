package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"valorant-hub/models"
	"valorant-hub/valorantapi"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.HubUser{},
		&models.QueueEntry{},
		&models.Match{},
		&models.MatchParticipant{},
		&models.Mission{},
		&models.UserMission{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, linked bool) *models.HubUser {
	t.Helper()
	user := models.HubUser{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Region:    "eu",
		Rating:    models.DefaultRating,
		TierLabel: models.TierForRating(models.DefaultRating),
		Level:     1,
	}
	if linked {
		name := username
		tag := "EUW"
		user.GameName = &name
		user.GameTag = &tag
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// createLobby builds a match with nRed + nBlue participants; the first red
// player is the creator.
func createLobby(t *testing.T, db *gorm.DB, status string, nRed, nBlue int, linked bool) (*models.Match, []*models.HubUser) {
	t.Helper()

	var users []*models.HubUser
	lobbyTag := uuid.NewString()[:8]
	for i := 0; i < nRed+nBlue; i++ {
		users = append(users, createUser(t, db, fmt.Sprintf("%s-%s-p%d", strings.ReplaceAll(t.Name(), "/", "_"), lobbyTag, i), linked))
	}
	creatorID := uuid.NewString()
	if len(users) > 0 {
		creatorID = users[0].ID
	}

	now := time.Now()
	match := models.Match{
		ID:         uuid.NewString(),
		ShortCode:  uuid.NewString()[:6],
		Status:     status,
		CreatorID:  creatorID,
		MaxPlayers: models.DefaultMaxPlayers,
		QueueTier:  models.QueueTierCompetitive,
	}
	if status == models.MatchStatusActive {
		match.StartedAt = &now
	}
	require.NoError(t, db.Create(&match).Error)

	for i, u := range users {
		team := models.TeamRed
		if i >= nRed {
			team = models.TeamBlue
		}
		role := models.RoleMember
		if i == 0 {
			role = models.RoleCreator
		}
		require.NoError(t, db.Create(&models.MatchParticipant{
			ID:      uuid.NewString(),
			MatchID: match.ID,
			UserID:  u.ID,
			Team:    team,
			Role:    role,
		}).Error)
	}
	return &match, users
}

// fakeResolver substitutes the external API in reconciliation tests and
// counts how often it is consulted.
type fakeResolver struct {
	result *valorantapi.ResolvedMatch
	err    error
	calls  int
}

func (f *fakeResolver) ResolveCompletedMatch(ctx context.Context, region string, ident valorantapi.PlayerIdentity, hint valorantapi.SessionHint) (*valorantapi.ResolvedMatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// resolvedFor builds an external result covering the given users, red side
// winning, skipping any users listed in omit.
func resolvedFor(match *models.Match, users []*models.HubUser, nRed int, omit map[string]bool) *valorantapi.ResolvedMatch {
	out := &valorantapi.ResolvedMatch{
		ExternalMatchID: "ext-" + match.ID,
		Map:             "Ascent",
		Region:          "eu",
		StartedAt:       time.Now().Add(-40 * time.Minute),
		DurationSec:     2100,
		WinningTeam:     models.TeamRed,
	}
	for i, u := range users {
		if omit[u.ID] || u.GameName == nil {
			continue
		}
		team := models.TeamRed
		if i >= nRed {
			team = models.TeamBlue
		}
		out.Players = append(out.Players, valorantapi.PlayerResult{
			Identity: valorantapi.PlayerIdentity{Name: *u.GameName, Tag: *u.GameTag},
			Team:     team,
			Kills:    15 + i,
			Deaths:   12,
			Assists:  4,
			Score:    240,
			Tier:     12,
			TierName: "Gold 1",
		})
	}
	return out
}
