package models

import "time"

// Match status state machine: pending → active → finished | cancelled.
// finished and cancelled are terminal; only an explicit admin override may
// touch a terminal match.
const (
	MatchStatusPending   = "pending"
	MatchStatusActive    = "active"
	MatchStatusFinished  = "finished"
	MatchStatusCancelled = "cancelled"
)

const (
	TeamRed  = "red"
	TeamBlue = "blue"
)

const (
	RoleCreator = "creator"
	RoleMember  = "member"
)

// DefaultMaxPlayers is the standard 5v5 lobby size.
const DefaultMaxPlayers = 10

// Match is a lobby/game session.
type Match struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	ShortCode string `gorm:"uniqueIndex;type:varchar(8);not null" json:"short_code"`
	Status    string `gorm:"type:varchar(16);index;default:'pending';check:status IN ('pending','active','finished','cancelled')" json:"status"`
	CreatorID string `gorm:"index;not null" json:"creator_id"`

	MaxPlayers int     `gorm:"default:10" json:"max_players"`
	QueueTier  string  `gorm:"type:varchar(16);default:'competitive'" json:"queue_tier"`
	RoomCode   *string `json:"room_code,omitempty"` // custom-game code in the Valorant client

	// Set once the external game is located; later lookups become exact
	// instead of heuristic.
	ExternalMatchID *string `gorm:"index" json:"external_match_id,omitempty"`

	WinningTeam *string `gorm:"type:varchar(8)" json:"winning_team,omitempty"`
	DurationSec int     `gorm:"default:0" json:"duration_sec"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Participants []MatchParticipant `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`

	Timestamps
}

// IsTerminal reports whether the match reached a terminal status.
func (m *Match) IsTerminal() bool {
	return m.Status == MatchStatusFinished || m.Status == MatchStatusCancelled
}

// MatchParticipant links a user to a match with a team assignment.
// Owned by Match (cascade-deleted with it).
type MatchParticipant struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	MatchID string `gorm:"index:idx_match_user,unique;not null" json:"match_id"`
	UserID  string `gorm:"index:idx_match_user,unique;index;not null" json:"user_id"`
	Team    string `gorm:"type:varchar(8);not null;check:team IN ('red','blue')" json:"team"`
	Role    string `gorm:"type:varchar(8);default:'member'" json:"role"`

	User HubUser `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Stats stay nil until reconciliation maps the external result; a
	// participant missing from the external roster keeps nil stats.
	Kills   *int `json:"kills,omitempty"`
	Deaths  *int `json:"deaths,omitempty"`
	Assists *int `json:"assists,omitempty"`
	Score   *int `json:"score,omitempty"`

	RatingDelta int   `gorm:"default:0" json:"rating_delta"`
	XPDelta     int64 `gorm:"default:0" json:"xp_delta"`

	Timestamps
}
