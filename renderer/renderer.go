package renderer

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/etnz/fantamarket"
)

//go:embed templates/*.md
var templates embed.FS

// TeamBalance is a line of the balances table.
type TeamBalance struct {
	Team    fantamarket.Team
	Balance fantamarket.Balance
}

// RenderBalances renders a table of team cash.
func RenderBalances(lines []TeamBalance) string {
	return renderTemplate("balances", "balances.md", nil, lines)
}

// RenderRoster renders a squad with its slots and players.
func RenderRoster(s fantamarket.RosterSummary) string {
	partials := map[string]string{
		"roster_title":   "roster_title.md",
		"roster_slots":   "roster_slots.md",
		"roster_players": "roster_players.md",
	}
	return renderTemplate("roster", "roster.md", partials, s)
}

// RenderImport renders the summary of a bulk import.
func RenderImport(s fantamarket.ImportSummary) string {
	partials := map[string]string{
		"import_counts":   "import_counts.md",
		"import_teams":    "import_teams.md",
		"import_problems": "import_problems.md",
	}
	return renderTemplate("import", "import.md", partials, s)
}

// RenderAliasReport renders the outcome of an alias population run.
func RenderAliasReport(r fantamarket.AliasReport) string {
	return renderTemplate("aliases", "aliases.md", nil, r)
}

// RenderSuggestions renders canonical mapping suggestions.
func RenderSuggestions(s []fantamarket.Suggestion) string {
	return renderTemplate("suggestions", "suggestions.md", nil, s)
}

// RenderAudits renders the import history.
func RenderAudits(a []fantamarket.ImportAudit) string {
	return renderTemplate("audits", "audits.md", nil, a)
}

// RenderResolution renders how a team name was resolved.
func RenderResolution(r fantamarket.Resolution) string {
	return renderTemplate("resolution", "resolution.md", nil, r)
}

// RenderIssues lists suspicious snapshot lines. It returns "" when there is none.
func RenderIssues(issues []fantamarket.SnapshotIssue) string {
	var b strings.Builder
	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Snapshot issues\n\n")
		for _, i := range issues {
			fmt.Fprintf(w, "- %s: %s\n", i.Team, i.Reason)
		}
		return len(issues) > 0
	})
	return b.String()
}

var funcs = template.FuncMap{
	"roles":    func() []fantamarket.Role { return fantamarket.Roles },
	"roleName": roleName,
	"code":     func(r fantamarket.Role) string { return string(r) },
	"contract": contract,
	"current":  func(b fantamarket.Balance) fantamarket.Credits { return b.Current },
}

func roleName(r fantamarket.Role) string {
	name := r.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// contract describes the contract of a player: "2y", "2y + option" or "option pending".
func contract(p fantamarket.Player) string {
	switch {
	case p.PendingOption():
		return "option pending"
	case p.ContractYears == 0:
		return ""
	case p.Option:
		return fmt.Sprintf("%dy + option", p.ContractYears)
	default:
		return fmt.Sprintf("%dy", p.ContractYears)
	}
}

// renderTemplate renders mainFile with its partials, each partial being defined under its
// alias. Errors are rendered in place of the report.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, path.Join("templates", mainFile))
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}
	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}
	for name, file := range partials {
		content, err := fs.ReadFile(templates, path.Join("templates", file))
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
