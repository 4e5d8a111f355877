package fantamarket

import (
	"maps"
	"slices"
)

// RosterLimits is the maximum number of players per role in a squad.
type RosterLimits map[Role]int

// DefaultRosterLimits is the classic 3/8/8/6 squad.
func DefaultRosterLimits() RosterLimits {
	return RosterLimits{Goalkeeper: 3, Defender: 8, Midfielder: 8, Forward: 6}
}

// Counts returns how many roster slots each role occupies.
// Players with a pending option do not occupy a slot.
func (l RosterLimits) Counts(roster []Player) map[Role]int {
	counts := make(map[Role]int, len(Roles))
	for _, p := range roster {
		if p.PendingOption() {
			continue
		}
		counts[canonicalRole(p.Role)]++
	}
	return counts
}

// CanAdd reports whether a player of role fits in roster.
func (l RosterLimits) CanAdd(roster []Player, role Role) bool {
	role = canonicalRole(role)
	return l.Counts(roster)[role] < l[role]
}

// canonicalRole collapses the legacy goalkeeper code.
func canonicalRole(r Role) Role {
	if r == "G" {
		return Goalkeeper
	}
	return r
}

// RosterSummary describes a squad: who is in it, how full each role is and what it cost.
type RosterSummary struct {
	Team    Team
	Balance Balance
	Players []Player
	Counts  map[Role]int
	Limits  RosterLimits
	// Spent sums the cost of the players occupying a slot.
	Spent Credits
}

// Summarize builds the summary of a squad. Players are sorted by role then name.
func (l RosterLimits) Summarize(team Team, balance Balance, roster []Player) RosterSummary {
	players := slices.Clone(roster)
	order := make(map[Role]int, len(Roles))
	for i, r := range Roles {
		order[r] = i
	}
	slices.SortStableFunc(players, func(a, b Player) int {
		if d := order[canonicalRole(a.Role)] - order[canonicalRole(b.Role)]; d != 0 {
			return d
		}
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	var spent Credits
	for _, p := range players {
		if !p.PendingOption() {
			spent = spent.Add(p.Cost)
		}
	}
	return RosterSummary{
		Team:    team,
		Balance: balance,
		Players: players,
		Counts:  l.Counts(players),
		Limits:  maps.Clone(l),
		Spent:   spent,
	}
}

// Free returns the remaining slots for role.
func (s RosterSummary) Free(role Role) int { return s.Limits[role] - s.Counts[role] }
