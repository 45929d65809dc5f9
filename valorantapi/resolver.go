package valorantapi

import (
	"context"
	"strings"
	"time"
)

// The external API knows nothing about our match codes, so a tracked session
// is located heuristically: the external game must have started inside
// [local start − startSlack, local start + startWindow] and its roster must
// contain at least half of the tracked identities. Once a game is resolved
// its external id is persisted by the caller, making later lookups exact.
const (
	startSlack     = 5 * time.Minute
	startWindow    = 30 * time.Minute
	minOverlapFrac = 0.5
)

// SessionHint describes the locally tracked session to locate externally.
type SessionHint struct {
	ExternalMatchID string // exact lookup when already known
	StartedAt       time.Time
	Identities      []PlayerIdentity // tracked participants with linked accounts
}

// Resolver locates a tracked session in a player's external match history.
type Resolver struct {
	client *Client
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// ResolveCompletedMatch fetches the player's recent history (with regional
// fallback) and returns the finished game matching the hint. ErrNotFound
// means the game isn't over yet or could not be located; ErrRateLimited
// propagates the upstream throttle signal.
func (r *Resolver) ResolveCompletedMatch(ctx context.Context, region string, ident PlayerIdentity, hint SessionHint) (*ResolvedMatch, error) {
	matches, foundRegion, err := r.client.RecentMatchesAnyRegion(ctx, region, ident)
	if err != nil {
		return nil, err
	}

	for _, m := range matches {
		if !r.matchesHint(m, hint) {
			continue
		}
		if !isFinal(m) {
			return nil, ErrNotFound
		}
		return buildResolved(m, foundRegion), nil
	}
	return nil, ErrNotFound
}

func (r *Resolver) matchesHint(m APIMatch, hint SessionHint) bool {
	if hint.ExternalMatchID != "" {
		return m.Metadata.MatchID == hint.ExternalMatchID
	}

	start := m.Metadata.StartedAt()
	if start.Before(hint.StartedAt.Add(-startSlack)) || start.After(hint.StartedAt.Add(startWindow)) {
		return false
	}
	if len(hint.Identities) == 0 {
		return false
	}

	overlap := 0
	for _, ident := range hint.Identities {
		for _, p := range m.Players.AllPlayers {
			if sameIdentity(ident, p) {
				overlap++
				break
			}
		}
	}
	return float64(overlap) >= minOverlapFrac*float64(len(hint.Identities))
}

func sameIdentity(ident PlayerIdentity, p APIMatchPlayer) bool {
	return strings.EqualFold(ident.Name, p.Name) && strings.EqualFold(ident.Tag, p.Tag)
}

// isFinal reports whether the external game carries a decided outcome.
func isFinal(m APIMatch) bool {
	return m.Metadata.GameLength > 0 && (m.Teams.Red.HasWon || m.Teams.Blue.HasWon)
}

func buildResolved(m APIMatch, region string) *ResolvedMatch {
	winner := "blue"
	if m.Teams.Red.HasWon {
		winner = "red"
	}

	out := &ResolvedMatch{
		ExternalMatchID: m.Metadata.MatchID,
		Map:             m.Metadata.Map,
		Region:          region,
		StartedAt:       m.Metadata.StartedAt(),
		DurationSec:     m.Metadata.GameLength,
		WinningTeam:     winner,
	}
	for _, p := range m.Players.AllPlayers {
		out.Players = append(out.Players, PlayerResult{
			Identity: PlayerIdentity{Name: p.Name, Tag: p.Tag},
			Team:     strings.ToLower(p.Team),
			Kills:    p.Stats.Kills,
			Deaths:   p.Stats.Deaths,
			Assists:  p.Stats.Assists,
			Score:    p.Stats.Score,
			Tier:     p.CurrentTier,
			TierName: p.CurrentTierName,
		})
	}
	return out
}
