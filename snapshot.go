package fantamarket

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// SnapshotPlayer is a player line of a roster snapshot.
type SnapshotPlayer struct {
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	RealClub string  `json:"realClub,omitempty"`
	Cost     Credits `json:"cost"`
}

// UnmarshalJSON also accepts the column names of the legacy spreadsheet export
// (Nome, Ruolo, Sq., Costo).
func (p *SnapshotPlayer) UnmarshalJSON(data []byte) error {
	var j struct {
		Name     string   `json:"name"`
		Role     string   `json:"role"`
		RealClub string   `json:"realClub"`
		Cost     *Credits `json:"cost"`
		Nome     string   `json:"Nome"`
		Ruolo    string   `json:"Ruolo"`
		Squadra  string   `json:"Sq."`
		Costo    *Credits `json:"Costo"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*p = SnapshotPlayer{
		Name:     strings.TrimSpace(firstNonEmpty(j.Name, j.Nome)),
		Role:     strings.TrimSpace(firstNonEmpty(j.Role, j.Ruolo)),
		RealClub: strings.TrimSpace(firstNonEmpty(j.RealClub, j.Squadra)),
	}
	switch {
	case j.Cost != nil:
		p.Cost = *j.Cost
	case j.Costo != nil:
		p.Cost = *j.Costo
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SnapshotTeam is the squad of one team as written in the snapshot.
type SnapshotTeam struct {
	Name    string
	Players []SnapshotPlayer
}

// Snapshot is an authoritative picture of all squads, as exported from the league
// spreadsheet.
type Snapshot struct {
	Teams []SnapshotTeam
}

// SnapshotIssue is a suspicious line of a snapshot.
type SnapshotIssue struct {
	Team   string
	Reason string
}

// DecodeSnapshot reads a snapshot: a JSON object mapping team names to player lists.
// When path is not empty it is a JSONPath expression selecting that object inside a larger
// document, e.g. "$.rosters". Teams are sorted by name.
func DecodeSnapshot(r io.Reader, path string) (Snapshot, error) {
	var doc any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot document: %w", err)
	}
	if path = strings.TrimSpace(path); path != "" {
		v, err := jsonpath.Get(path, doc)
		if err != nil {
			return Snapshot{}, fmt.Errorf("error selecting %q in snapshot: %w", path, err)
		}
		// jsonpath may wrap a single answer in a list.
		if list, ok := v.([]any); ok && len(list) == 1 {
			if _, isObject := list[0].(map[string]any); isObject {
				v = list[0]
			}
		}
		doc = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot document: %w", err)
	}
	var teams map[string][]SnapshotPlayer
	if err := json.Unmarshal(raw, &teams); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot is not an object of team player lists: %w", err)
	}

	var s Snapshot
	for name, players := range teams {
		kept := players[:0]
		for _, p := range players {
			if p.Name != "" {
				kept = append(kept, p)
			}
		}
		s.Teams = append(s.Teams, SnapshotTeam{Name: NormalizeText(name), Players: kept})
	}
	slices.SortFunc(s.Teams, func(a, b SnapshotTeam) int { return strings.Compare(a.Name, b.Name) })
	return s, nil
}

// Issues lists teams without players and players with a negative cost.
func (s Snapshot) Issues() []SnapshotIssue {
	var issues []SnapshotIssue
	for _, t := range s.Teams {
		if len(t.Players) == 0 {
			issues = append(issues, SnapshotIssue{Team: t.Name, Reason: "no players found"})
		}
		for _, p := range t.Players {
			if p.Cost.IsNegative() {
				issues = append(issues, SnapshotIssue{Team: t.Name, Reason: fmt.Sprintf("negative cost for %s", p.Name)})
			}
		}
	}
	return issues
}

// Size returns the number of player lines.
func (s Snapshot) Size() int {
	n := 0
	for _, t := range s.Teams {
		n += len(t.Players)
	}
	return n
}
