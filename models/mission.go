package models

import "time"

// Mission cadences.
const (
	MissionCadenceDaily  = "daily"
	MissionCadenceWeekly = "weekly"
	MissionCadenceOnce   = "once"
)

// Mission is a completable objective granting a fixed XP reward.
type Mission struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description,omitempty"`
	Cadence     string `gorm:"type:varchar(8);default:'once';check:cadence IN ('daily','weekly','once')" json:"cadence"`
	XPReward    int64  `gorm:"default:0" json:"xp_reward"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Timestamps
}

// UserMission marks a user's completion of a mission. The unique (user,
// mission) index makes completion at-most-once; re-verification must never
// double-grant XP.
type UserMission struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"index:idx_user_mission,unique;not null" json:"user_id"`
	MissionID   string    `gorm:"index:idx_user_mission,unique;not null" json:"mission_id"`
	XPGranted   int64     `gorm:"default:0" json:"xp_granted"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`

	Mission Mission `gorm:"foreignKey:MissionID" json:"mission,omitempty"`
}
