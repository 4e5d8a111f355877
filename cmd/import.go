package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/etnz/fantamarket"
	"github.com/etnz/fantamarket/renderer"
	"github.com/google/subcommands"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	path   string
	check  bool
	strict bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "apply a roster snapshot" }
func (*importCmd) Usage() string {
	return `fmk import [-path <jsonpath>] [-check] [-strict] <snapshot.json>

  Applies an authoritative roster snapshot: teams are resolved or created, players are
  upserted by name and team cash is recomputed from the squads.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.path, "path", "", "JSONPath selecting the snapshot in a larger document, e.g. $.rosters")
	f.BoolVar(&c.check, "check", false, "only decode the snapshot and report its issues")
	f.BoolVar(&c.strict, "strict", false, "fail when some lines were skipped")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a single snapshot file is required.")
		return subcommands.ExitUsageError
	}
	filename := f.Arg(0)
	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening snapshot: %v\n", err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	snap, err := fantamarket.DecodeSnapshot(file, c.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
		return subcommands.ExitFailure
	}
	if issues := renderer.RenderIssues(snap.Issues()); issues != "" {
		printMarkdown(issues)
	}
	if c.check {
		fmt.Fprintf(stdout, "%d teams, %d players\n", len(snap.Teams), snap.Size())
		return subcommands.ExitSuccess
	}

	return run(ctx, func(ctx context.Context, a *app) error {
		im := fantamarket.NewImporter(a.store, a.market.Ledger(), a.resolver)
		sum, err := im.Apply(ctx, snap, fantamarket.ImportInfo{Filename: filepath.Base(filename), User: username()})
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderImport(sum))
		if c.strict {
			return sum.Err()
		}
		return nil
	})
}

func username() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// auditsCmd holds the flags for the 'audits' subcommand.
type auditsCmd struct {
	jsonl bool
}

func (*auditsCmd) Name() string     { return "audits" }
func (*auditsCmd) Synopsis() string { return "list past imports" }
func (*auditsCmd) Usage() string {
	return `fmk audits [-jsonl]

  Lists the recorded imports, most recent last.
`
}

func (c *auditsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.jsonl, "jsonl", false, "print audits as JSON lines")
}

func (c *auditsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		audits, err := a.store.ImportAudits(ctx)
		if err != nil {
			return err
		}
		if c.jsonl {
			return fantamarket.EncodeAudits(stdout, audits)
		}
		printMarkdown(renderer.RenderAudits(audits))
		return nil
	})
}
