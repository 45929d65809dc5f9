package valorantapi

import "time"

// Regions the match-history API can be queried against.
var Regions = []string{"eu", "na", "ap", "kr"}

// PlayerIdentity is a Riot name + tag pair.
type PlayerIdentity struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// apiEnvelope is the top-level wrapper every endpoint returns.
type apiEnvelope struct {
	Status int `json:"status"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

type matchListResponse struct {
	apiEnvelope
	Data []APIMatch `json:"data"`
}

// APIMatch is one entry of the v3 match-history response.
type APIMatch struct {
	Metadata APIMatchMetadata `json:"metadata"`
	Players  struct {
		AllPlayers []APIMatchPlayer `json:"all_players"`
	} `json:"players"`
	Teams struct {
		Red  APITeam `json:"red"`
		Blue APITeam `json:"blue"`
	} `json:"teams"`
}

type APIMatchMetadata struct {
	MatchID    string `json:"matchid"`
	Map        string `json:"map"`
	Mode       string `json:"mode"`
	GameStart  int64  `json:"game_start"`  // unix seconds
	GameLength int    `json:"game_length"` // seconds
	Region     string `json:"region"`
}

func (m APIMatchMetadata) StartedAt() time.Time {
	return time.Unix(m.GameStart, 0)
}

type APIMatchPlayer struct {
	PUUID           string `json:"puuid"`
	Name            string `json:"name"`
	Tag             string `json:"tag"`
	Team            string `json:"team"` // "Red" or "Blue"
	CurrentTier     int    `json:"currenttier"`
	CurrentTierName string `json:"currenttier_patched"`
	Stats           struct {
		Score   int `json:"score"`
		Kills   int `json:"kills"`
		Deaths  int `json:"deaths"`
		Assists int `json:"assists"`
	} `json:"stats"`
}

type APITeam struct {
	HasWon    bool `json:"has_won"`
	RoundsWon int  `json:"rounds_won"`
}

type mmrResponse struct {
	apiEnvelope
	Data struct {
		CurrentData MMRData `json:"current_data"`
	} `json:"data"`
}

// MMRData is the current competitive standing of a player.
type MMRData struct {
	CurrentTier     int    `json:"currenttier"`
	CurrentTierName string `json:"currenttier_patched"`
	RankingInTier   int    `json:"ranking_in_tier"`
	Elo             int    `json:"elo"`
}

// PlayerResult is one mapped per-player row of a finished game.
type PlayerResult struct {
	Identity PlayerIdentity
	Team     string // "red" or "blue"
	Kills    int
	Deaths   int
	Assists  int
	Score    int
	Tier     int // rank tier at match time
	TierName string
}

// ResolvedMatch is the authoritative outcome of a finished external game.
type ResolvedMatch struct {
	ExternalMatchID string
	Map             string
	Region          string
	StartedAt       time.Time
	DurationSec     int
	WinningTeam     string // "red" or "blue"
	Players         []PlayerResult
}
