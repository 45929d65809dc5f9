package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"valorant-hub/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newMatchTestApp wires the queue/lobby handlers behind a stub user-context
// middleware that trusts the X-User-ID header.
func newMatchTestApp(db *gorm.DB) *fiber.App {
	svc := NewMatchService(db, nil)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", c.Get("X-User-ID"))
		return c.Next()
	})
	app.Post("/queue/join", svc.JoinQueue)
	app.Post("/matches/:match_id/join", svc.JoinMatch)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, userID, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJoinQueueRejectsSecondEntry(t *testing.T) {
	db := newTestDB(t)
	app := newMatchTestApp(db)
	user := createUser(t, db, "queuer", false)

	resp := doJSON(t, app, "POST", "/queue/join", user.ID, `{"queue_tier":"competitive"}`)
	assert.Equal(t, 201, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/queue/join", user.ID, `{"queue_tier":"unrated"}`)
	assert.Equal(t, 409, resp.StatusCode)

	var entries int64
	require.NoError(t, db.Model(&models.QueueEntry{}).Where("user_id = ?", user.ID).Count(&entries).Error)
	assert.Equal(t, int64(1), entries, "one entry across all tiers")
}

func TestJoinMatchEnforcesCapacity(t *testing.T) {
	db := newTestDB(t)
	app := newMatchTestApp(db)
	match, _ := createLobby(t, db, models.MatchStatusPending, 5, 4, false)

	// Red side is at its half of max players.
	redJoiner := createUser(t, db, "red-joiner", false)
	resp := doJSON(t, app, "POST", fmt.Sprintf("/matches/%s/join", match.ID), redJoiner.ID, `{"team":"red"}`)
	assert.Equal(t, 409, resp.StatusCode)

	// Blue still has one seat.
	blueJoiner := createUser(t, db, "blue-joiner", false)
	resp = doJSON(t, app, "POST", fmt.Sprintf("/matches/%s/join", match.ID), blueJoiner.ID, `{"team":"blue"}`)
	assert.Equal(t, 201, resp.StatusCode)

	// Now the lobby is full for everyone.
	lateJoiner := createUser(t, db, "late-joiner", false)
	resp = doJSON(t, app, "POST", fmt.Sprintf("/matches/%s/join", match.ID), lateJoiner.ID, `{"team":"blue"}`)
	assert.Equal(t, 409, resp.StatusCode)

	var total int64
	require.NoError(t, db.Model(&models.MatchParticipant{}).Where("match_id = ?", match.ID).Count(&total).Error)
	assert.Equal(t, int64(models.DefaultMaxPlayers), total)
}
