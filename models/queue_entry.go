package models

import "time"

// Queue tiers users can wait in.
const (
	QueueTierUnrated     = "unrated"
	QueueTierCompetitive = "competitive"
	QueueTierSwiftplay   = "swiftplay"
)

func ValidQueueTier(tier string) bool {
	switch tier {
	case QueueTierUnrated, QueueTierCompetitive, QueueTierSwiftplay:
		return true
	}
	return false
}

// QueueEntry is one row per user waiting to be matched. The unique index on
// UserID enforces at most one entry per user across all tiers. Rows are
// deleted on leave, on promotion into a match, or by bulk admin reset.
type QueueEntry struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex;not null" json:"user_id"`
	QueueTier string    `gorm:"type:varchar(16);index;not null" json:"queue_tier"`
	JoinedAt  time.Time `gorm:"index;autoCreateTime" json:"joined_at"`

	// Optional duo partner; both entries carry the pairing.
	DuoPartnerID *string `gorm:"index" json:"duo_partner_id,omitempty"`

	User HubUser `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
