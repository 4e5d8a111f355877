package fantamarket

import "time"

// TeamID identifies a fantasy team.
type TeamID string

// Team is a canonical fantasy team.
type Team struct {
	ID     TeamID `json:"id"`
	Name   string `json:"name"`
	League string `json:"league,omitempty"`
}

// Balance is the cash record of a team.
type Balance struct {
	Starting Credits `json:"starting"`
	Current  Credits `json:"current"`
}

// Spent returns what the team has committed since the start.
func (b Balance) Spent() Credits { return b.Starting.Sub(b.Current) }

// TeamAlias is a free-text variant of a team name met during imports.
type TeamAlias struct {
	ID     int64  `json:"id"`
	TeamID TeamID `json:"teamId"`
	Alias  string `json:"alias"`
}

// CanonicalMapping is an operator override: any text folding to Variant resolves to the
// team named Canonical.
type CanonicalMapping struct {
	Variant   string `json:"variant"`
	Canonical string `json:"canonical"`
}

// ImportAudit records the outcome of a bulk import.
type ImportAudit struct {
	ID             int64     `json:"id"`
	At             time.Time `json:"at"`
	Filename       string    `json:"filename,omitempty"`
	User           string    `json:"user,omitempty"`
	Inserted       int       `json:"inserted"`
	Updated        int       `json:"updated"`
	AliasesCreated int       `json:"aliasesCreated"`
	Skipped        int       `json:"skipped"`
	Success        bool      `json:"success"`
	Message        string    `json:"message,omitempty"`
}
