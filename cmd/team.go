package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fantamarket"
	"github.com/etnz/fantamarket/renderer"
	"github.com/google/subcommands"
)

// teamAddCmd holds the flags for the 'team-add' subcommand.
type teamAddCmd struct {
	league string
	cash   fantamarket.Credits
	set    bool
}

func (*teamAddCmd) Name() string     { return "team-add" }
func (*teamAddCmd) Synopsis() string { return "create a team with its starting cash" }
func (*teamAddCmd) Usage() string {
	return `fmk team-add [-league <league>] [-cash <credits>] <name>

  Creates a canonical team. Without -cash the team starts with the default cash.
`
}

func (c *teamAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.league, "league", "", "League of the team. Defaults to $FANTAMARKET_LEAGUE")
	f.Func("cash", "Starting cash of the team", func(s string) error {
		c.set = true
		return c.cash.Set(s)
	})
}

func (c *teamAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: team name is required.")
		return subcommands.ExitUsageError
	}
	name := strings.Join(f.Args(), " ")
	return run(ctx, func(ctx context.Context, a *app) error {
		cash := a.cfg.DefaultCredits()
		if c.set {
			cash = c.cash
		}
		league := c.league
		if league == "" {
			league = a.cfg.League
		}
		t, err := a.market.AddTeam(ctx, name, league, cash)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Created team %s (%s) with %s\n", t.Name, t.ID, cash)
		return nil
	})
}

// balanceCmd lists team cash.
type balanceCmd struct{}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "display the cash of teams" }
func (*balanceCmd) Usage() string {
	return `fmk balance [<team>...]

  Displays the starting, spent and current cash of the given teams, or of all teams.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app) error {
		var teams []fantamarket.Team
		if f.NArg() == 0 {
			all, err := a.store.Teams(ctx)
			if err != nil {
				return err
			}
			teams = all
		}
		for _, name := range f.Args() {
			t, err := a.team(ctx, name)
			if err != nil {
				return err
			}
			teams = append(teams, t)
		}

		lines := make([]renderer.TeamBalance, 0, len(teams))
		for _, t := range teams {
			b, err := a.market.Ledger().Balance(ctx, t.ID)
			if err != nil {
				return err
			}
			lines = append(lines, renderer.TeamBalance{Team: t, Balance: b})
		}
		printMarkdown(renderer.RenderBalances(lines))
		return nil
	})
}

// rosterCmd displays a team squad.
type rosterCmd struct{}

func (*rosterCmd) Name() string     { return "roster" }
func (*rosterCmd) Synopsis() string { return "display the squad of a team" }
func (*rosterCmd) Usage() string {
	return `fmk roster <team>

  Displays the players of a team, its free slots per role and its cash.
`
}

func (c *rosterCmd) SetFlags(f *flag.FlagSet) {}

func (c *rosterCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: team is required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		t, err := a.team(ctx, strings.Join(f.Args(), " "))
		if err != nil {
			return err
		}
		s, err := a.market.Roster(ctx, t.ID)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderRoster(s))
		return nil
	})
}
