// Package cmd implements the fmk command line application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/fantamarket"
	"github.com/etnz/fantamarket/logger"
	"github.com/etnz/fantamarket/sqlite"
	"github.com/google/subcommands"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")
	c.Register(&topicCmd{}, "")

	c.Register(&teamAddCmd{}, "teams")
	c.Register(&balanceCmd{}, "teams")
	c.Register(&rosterCmd{}, "teams")

	c.Register(&chargeCmd{}, "ledger")
	c.Register(&refundCmd{}, "ledger")
	c.Register(&transferCmd{}, "ledger")
	c.Register(&correctCmd{}, "ledger")

	c.Register(&playerAddCmd{}, "market")
	c.Register(&assignCmd{}, "market")
	c.Register(&releaseCmd{}, "market")
	c.Register(&moveCmd{}, "market")

	c.Register(&importCmd{}, "import")
	c.Register(&auditsCmd{}, "import")

	c.Register(&resolveCmd{}, "names")
	c.Register(&aliasesCmd{}, "names")
	c.Register(&suggestCmd{}, "names")
	c.Register(&mappingCmd{}, "names")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dbPath = flag.String("db", "", "Path to the SQLite database. Defaults to $FANTAMARKET_DB or fantamarket.db")

// Verbose turns on debug logs.
var Verbose = flag.Bool("v", false, "verbose output")

var rawOutput = flag.Bool("raw", false, "print markdown without terminal formatting")

// stdout receives the command outputs.
var stdout io.Writer = os.Stdout

// app is what a command needs to run: the configuration and an open store.
type app struct {
	cfg      fantamarket.Config
	store    *sqlite.Store
	market   *fantamarket.Market
	resolver *fantamarket.Resolver
}

// openApp loads the configuration, opens the database and installs the logger in ctx.
// Callers must close the app.
func openApp(ctx context.Context) (context.Context, *app, error) {
	cfg, err := fantamarket.LoadConfig()
	if err != nil {
		return ctx, nil, err
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	level := cfg.LogLevel
	if *Verbose {
		level = "debug"
	}
	ctx = logger.WithContext(ctx, logger.New(level))

	resolver, err := fantamarket.NewResolver(cfg)
	if err != nil {
		return ctx, nil, err
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, &app{
		cfg:      cfg,
		store:    store,
		market:   fantamarket.NewMarket(store, cfg),
		resolver: resolver,
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

// team resolves a free-text team name to a canonical team.
func (a *app) team(ctx context.Context, name string) (fantamarket.Team, error) {
	dir, err := fantamarket.LoadDirectory(ctx, a.store, a.market.Ledger())
	if err != nil {
		return fantamarket.Team{}, err
	}
	res := a.resolver.Resolve(name, dir, nil)
	if !res.Resolved() {
		return fantamarket.Team{}, &fantamarket.UnresolvedTeamNameError{Text: name}
	}
	if res.Method != fantamarket.ByName {
		logger.FromContext(ctx).Info().Str("text", name).Str("team", res.Team.Name).Stringer("method", res.Method).Msg("team name resolved")
	}
	return res.Team, nil
}

// run opens the app, calls fn and reports its error on stderr.
func run(ctx context.Context, fn func(ctx context.Context, a *app) error) subcommands.ExitStatus {
	ctx, a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening market: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	if err := fn(ctx, a); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// ExitTransient is returned when a store failure may succeed on retry.
const ExitTransient subcommands.ExitStatus = 75

// fail prints err and maps it to an exit status: usage errors for invalid input, a
// distinct status for transient failures so that scripts can retry.
func fail(err error) subcommands.ExitStatus {
	var (
		verr *fantamarket.ValidationError
		ferr *fantamarket.InsufficientFundsError
	)
	switch {
	case errors.As(err, &ferr):
		fmt.Fprintf(os.Stderr, "Refused: need %s, %s available\n", ferr.Needed, ferr.Available)
		return subcommands.ExitFailure
	case errors.As(err, &verr):
		fmt.Fprintf(os.Stderr, "Invalid %s: %s\n", verr.Field, verr.Reason)
		return subcommands.ExitUsageError
	case fantamarket.IsTransient(err):
		fmt.Fprintf(os.Stderr, "Temporary failure, try again: %v\n", err)
		return ExitTransient
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
}

// parseAmount parses a positional credit amount.
func parseAmount(s string) (fantamarket.Credits, error) {
	c, err := fantamarket.ParseCredits(s)
	if err != nil {
		return fantamarket.Credits{}, &fantamarket.ValidationError{Field: "amount", Reason: err.Error()}
	}
	return c, nil
}

// parsePlayerID parses a positional player id.
func parsePlayerID(s string) (fantamarket.PlayerID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, &fantamarket.ValidationError{Field: "player", Reason: fmt.Sprintf("invalid player id %q", s)}
	}
	return fantamarket.PlayerID(id), nil
}

// printMarkdown renders md for the terminal, or prints it as is with -raw.
func printMarkdown(md string) {
	if *rawOutput {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}

// IsCommand reports whether name is a command registered in c.
func IsCommand(c *subcommands.Commander, name string) bool {
	found := false
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		found = found || cmd.Name() == name
	})
	return found
}
