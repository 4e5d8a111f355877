package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/fantamarket"
	"github.com/etnz/fantamarket/renderer"
	"github.com/google/subcommands"
)

// readNames reads team names from a file: a JSON list of {"team", "cash"} rows when the file
// has a .json extension, one name per line otherwise.
func readNames(filename string) ([]fantamarket.AliasRow, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []fantamarket.AliasRow
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		if err := json.NewDecoder(f).Decode(&rows); err != nil {
			return nil, fmt.Errorf("invalid names file %q: %w", filename, err)
		}
		return rows, nil
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if text := strings.TrimSpace(scanner.Text()); text != "" {
			rows = append(rows, fantamarket.AliasRow{Text: text})
		}
	}
	return rows, scanner.Err()
}

// resolveCmd holds the flags for the 'resolve' subcommand.
type resolveCmd struct {
	cash string
}

func (*resolveCmd) Name() string     { return "resolve" }
func (*resolveCmd) Synopsis() string { return "tell which team a name refers to" }
func (*resolveCmd) Usage() string {
	return `fmk resolve [-cash <credits>] <name>

  Resolves a free-text team name and tells how it was matched.
`
}

func (c *resolveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cash, "cash", "", "Cash reported next to the name, used to tell teams apart")
}

func (c *resolveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a name is required.")
		return subcommands.ExitUsageError
	}
	text := strings.Join(f.Args(), " ")
	return run(ctx, func(ctx context.Context, a *app) error {
		var hint *fantamarket.Credits
		if c.cash != "" {
			cash, err := parseAmount(c.cash)
			if err != nil {
				return err
			}
			hint = &cash
		}
		dir, err := fantamarket.LoadDirectory(ctx, a.store, a.market.Ledger())
		if err != nil {
			return err
		}
		res := a.resolver.Resolve(text, dir, hint)
		printMarkdown(renderer.RenderResolution(res))
		if !res.Resolved() {
			return &fantamarket.UnresolvedTeamNameError{Text: text}
		}
		return nil
	})
}

// aliasesCmd is a container for alias subcommands.
type aliasesCmd struct{}

func (*aliasesCmd) Name() string     { return "aliases" }
func (*aliasesCmd) Synopsis() string { return "manage team aliases" }
func (*aliasesCmd) Usage() string {
	return `aliases <subcommand> [args]

Commands:
  list     - List aliases with their team.
  populate - Record the names found in a file as aliases.
  dedup    - Remove aliases pointing to several teams.
`
}

func (c *aliasesCmd) SetFlags(f *flag.FlagSet) {}
func (c *aliasesCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "aliases")
	commander.Register(&aliasesListCmd{}, "")
	commander.Register(&aliasesPopulateCmd{}, "")
	commander.Register(&aliasesDedupCmd{}, "")
	return commander.Execute(ctx, args...)
}

type aliasesListCmd struct{}

func (*aliasesListCmd) Name() string     { return "list" }
func (*aliasesListCmd) Synopsis() string { return "list aliases" }
func (*aliasesListCmd) Usage() string    { return "aliases list\n" }
func (*aliasesListCmd) SetFlags(f *flag.FlagSet) {}

func (*aliasesListCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		teams, err := a.store.Teams(ctx)
		if err != nil {
			return err
		}
		names := make(map[fantamarket.TeamID]string, len(teams))
		for _, t := range teams {
			names[t.ID] = t.Name
		}
		aliases, err := a.store.Aliases(ctx)
		if err != nil {
			return err
		}
		for _, al := range aliases {
			fmt.Fprintf(stdout, "%s\t%s\n", al.Alias, names[al.TeamID])
		}
		return nil
	})
}

type aliasesPopulateCmd struct{}

func (*aliasesPopulateCmd) Name() string     { return "populate" }
func (*aliasesPopulateCmd) Synopsis() string { return "record names as aliases of the teams they resolve to" }
func (*aliasesPopulateCmd) Usage() string {
	return `aliases populate <names file>

  Resolves every name of the file and records it as an alias of its team. A .json file is
  a list of {"team": <name>, "cash": <credits>} rows; any other file has one name per line.
`
}
func (*aliasesPopulateCmd) SetFlags(f *flag.FlagSet) {}

func (*aliasesPopulateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a single names file is required.")
		return subcommands.ExitUsageError
	}
	rows, err := readNames(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading names: %v\n", err)
		return subcommands.ExitFailure
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		report, err := fantamarket.PopulateAliases(ctx, a.store, a.market.Ledger(), a.resolver, rows)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderAliasReport(report))
		return nil
	})
}

type aliasesDedupCmd struct{}

func (*aliasesDedupCmd) Name() string     { return "dedup" }
func (*aliasesDedupCmd) Synopsis() string { return "remove aliases pointing to several teams" }
func (*aliasesDedupCmd) Usage() string    { return "aliases dedup\n" }
func (*aliasesDedupCmd) SetFlags(f *flag.FlagSet) {}

func (*aliasesDedupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		n, err := fantamarket.DedupAliases(ctx, a.store)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d aliases removed\n", n)
		return nil
	})
}

// suggestions scores the names of a file against the canonical teams.
func suggestions(ctx context.Context, a *app, filename string) ([]fantamarket.Suggestion, error) {
	rows, err := readNames(filename)
	if err != nil {
		return nil, err
	}
	variants := make([]string, len(rows))
	for i, r := range rows {
		variants[i] = r.Text
	}
	teams, err := a.store.Teams(ctx)
	if err != nil {
		return nil, err
	}
	scorer, err := fantamarket.ParseScorer(a.cfg.Scorer)
	if err != nil {
		return nil, err
	}
	return fantamarket.SuggestMappings(variants, teams, scorer, a.cfg.FuzzyThreshold), nil
}

// suggestCmd holds the flags for the 'suggest' subcommand.
type suggestCmd struct {
	jsonOut bool
}

func (*suggestCmd) Name() string     { return "suggest" }
func (*suggestCmd) Synopsis() string { return "suggest canonical mappings for unknown names" }
func (*suggestCmd) Usage() string {
	return `fmk suggest [-json] <names file>

  Scores every name of the file that is not a team name against the teams.
`
}

func (c *suggestCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.jsonOut, "json", false, "print suggestions as JSON")
}

func (c *suggestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a single names file is required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		s, err := suggestions(ctx, a, f.Arg(0))
		if err != nil {
			return err
		}
		if c.jsonOut {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		printMarkdown(renderer.RenderSuggestions(s))
		return nil
	})
}

// mappingCmd holds the flags for the 'mapping' subcommand.
type mappingCmd struct {
	dryRun bool
}

func (*mappingCmd) Name() string     { return "mapping" }
func (*mappingCmd) Synopsis() string { return "store high confidence suggestions as overrides" }
func (*mappingCmd) Usage() string {
	return `fmk mapping [-dry-run=false] <names file>

  Stores the high confidence suggestions as canonical mappings, which take precedence over
  any other way of resolving a name. Nothing is written unless -dry-run=false.
`
}

func (c *mappingCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "dry-run", true, "only print the mappings that would be stored")
}

func (c *mappingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a single names file is required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		s, err := suggestions(ctx, a, f.Arg(0))
		if err != nil {
			return err
		}
		applied, err := fantamarket.ApplyMappings(ctx, a.store, s, c.dryRun)
		if err != nil {
			return err
		}
		verb := "stored"
		if c.dryRun {
			verb = "would store"
		}
		for _, m := range applied {
			fmt.Fprintf(stdout, "%s %q -> %q\n", verb, m.Variant, m.Canonical)
		}
		return nil
	})
}
