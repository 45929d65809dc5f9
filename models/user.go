package models

import (
	"time"

	"gorm.io/gorm"
)

// Rating tier cutoffs, highest first. The tier label is always derived from
// the rating score, never stored independently of it.
var TierCutoffs = []struct {
	Min  int
	Name string
}{
	{4500, "Radiant"},
	{4000, "Immortal"},
	{3500, "Ascendant"},
	{3000, "Diamond"},
	{2500, "Platinum"},
	{2000, "Gold"},
	{1500, "Silver"},
	{1000, "Bronze"},
	{0, "Iron"},
}

const DefaultRating = 1500

func TierForRating(rating int) string {
	for _, c := range TierCutoffs {
		if rating >= c.Min {
			return c.Name
		}
	}
	return "Iron"
}

// HubUser is the long-lived root entity. Queue, match and mission records
// reference it but never own it.
type HubUser struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"index;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`

	// Linked in-game identity (Riot name + tag). Nil until the user links
	// their account; reconciliation needs the creator's identity at minimum.
	GameName *string `json:"game_name,omitempty"`
	GameTag  *string `json:"game_tag,omitempty"`
	Region   string  `gorm:"type:varchar(4);default:'eu'" json:"region"`

	// Progression. Mutated only by match finalization, mission completion
	// or an explicit admin recompute.
	Rating    int    `gorm:"default:1500" json:"rating"`
	TierLabel string `gorm:"type:varchar(16);default:'Silver'" json:"tier_label"`
	XP        int64  `gorm:"default:0" json:"xp"`
	Level     int    `gorm:"default:1" json:"level"`

	// Last rank tier seen on the external API, refreshed by the rank sync
	// worker. Display-only; rating math uses per-match tiers.
	ExternalTier     *int       `json:"external_tier,omitempty"`
	ExternalTierName *string    `json:"external_tier_name,omitempty"`
	RankSyncedAt     *time.Time `json:"rank_synced_at,omitempty"`

	IsAdmin bool `gorm:"default:false" json:"is_admin"`

	Timestamps
}

// HasLinkedAccount reports whether the user has a usable Riot identity.
func (u *HubUser) HasLinkedAccount() bool {
	return u.GameName != nil && *u.GameName != "" && u.GameTag != nil && *u.GameTag != ""
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
