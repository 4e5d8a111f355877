package fantamarket

import (
	"fmt"
	"strings"
)

// Role is a player position, stored as its single-letter code.
type Role string

const (
	Goalkeeper Role = "P"
	Defender   Role = "D"
	Midfielder Role = "C"
	Forward    Role = "A"
)

// Roles lists all roles in roster order.
var Roles = []Role{Goalkeeper, Defender, Midfielder, Forward}

func (r Role) String() string {
	switch r {
	case Goalkeeper:
		return "goalkeeper"
	case Defender:
		return "defender"
	case Midfielder:
		return "midfielder"
	case Forward:
		return "forward"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the four canonical codes.
func (r Role) Valid() bool {
	switch r {
	case Goalkeeper, Defender, Midfielder, Forward:
		return true
	}
	return false
}

// ParseRole parses a role as found in rosters: a code (P, D, C, A, legacy G) or a full
// name whose first letter is the code (Portiere, Difensore, Centrocampista, Attaccante).
// English names are accepted as well.
func ParseRole(s string) (Role, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "GOALKEEPER", "GK":
		return Goalkeeper, nil
	case "DEFENDER", "DEF":
		return Defender, nil
	case "MIDFIELDER", "MID":
		return Midfielder, nil
	case "FORWARD", "FW", "STRIKER":
		return Forward, nil
	}
	if s == "" {
		return "", &ValidationError{Field: "role", Reason: "empty role"}
	}
	code := Role(s[:1])
	if code == "G" {
		code = Goalkeeper
	}
	if !code.Valid() {
		return "", &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", s)}
	}
	return code, nil
}

// PlayerID identifies a player row.
type PlayerID int64

// Player is a footballer that can be bought by a team.
type Player struct {
	ID       PlayerID `json:"id"`
	Name     string   `json:"name"`
	Role     Role     `json:"role"`
	RealClub string   `json:"realClub,omitempty"`
	Cost     Credits  `json:"cost"`
	// Owner is empty for free agents.
	Owner TeamID `json:"owner,omitempty"`
	// ContractYears is 0 when no contract is recorded, 1 to 3 otherwise.
	ContractYears int  `json:"contractYears,omitempty"`
	Option        bool `json:"option,omitempty"`
}

// IsFreeAgent reports whether no team owns the player.
func (p Player) IsFreeAgent() bool { return p.Owner == "" }

// PendingOption reports whether the player is held by an option whose contract years are
// not confirmed yet. Such players do not take a roster slot nor weigh on the team cash.
func (p Player) PendingOption() bool { return p.Option && p.ContractYears == 0 }

// MaxContractYears is the longest contract a player can sign.
const MaxContractYears = 3

// validateContract checks an assignment's cost and contract.
func validateContract(cost Credits, years int) error {
	if err := checkCredits("cost", cost); err != nil {
		return err
	}
	if years < 1 || years > MaxContractYears {
		return &ValidationError{Field: "contractYears", Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxContractYears, years)}
	}
	return nil
}
