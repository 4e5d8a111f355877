package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/fantamarket"
	"github.com/google/subcommands"
)

// playerAddCmd holds the flags for the 'player-add' subcommand.
type playerAddCmd struct {
	role string
	club string
}

func (*playerAddCmd) Name() string     { return "player-add" }
func (*playerAddCmd) Synopsis() string { return "register a free agent" }
func (*playerAddCmd) Usage() string {
	return `fmk player-add -role <P|D|C|A> [-club <club>] <name>

  Registers a player without team and prints its id.
`
}

func (c *playerAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.role, "role", "", "Role of the player: P, D, C or A")
	f.StringVar(&c.club, "club", "", "Real club of the player")
}

func (c *playerAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: player name is required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		p, err := a.market.AddPlayer(ctx, strings.Join(f.Args(), " "), fantamarket.Role(c.role), c.club)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d\t%s\t%s\n", p.ID, string(p.Role), p.Name)
		return nil
	})
}

// assignCmd holds the flags for the 'assign' subcommand.
type assignCmd struct {
	team   string
	cost   fantamarket.Credits
	years  int
	option bool
}

func (*assignCmd) Name() string     { return "assign" }
func (*assignCmd) Synopsis() string { return "buy a free agent for a team" }
func (*assignCmd) Usage() string {
	return `fmk assign -team <team> -cost <credits> [-years <1-3>] [-option] <player id>

  Charges the team and gives it the player.
`
}

func (c *assignCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.team, "team", "", "Team buying the player")
	f.Var(&c.cost, "cost", "Price paid")
	f.IntVar(&c.years, "years", 1, "Contract length in years, from 1 to 3")
	f.BoolVar(&c.option, "option", false, "Attach a purchase option, only for contracts shorter than 3 years")
}

func (c *assignCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.team == "" || f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: -team and a single player id are required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		id, err := parsePlayerID(f.Arg(0))
		if err != nil {
			return err
		}
		t, err := a.team(ctx, c.team)
		if err != nil {
			return err
		}
		p, err := a.market.Assign(ctx, id, t.ID, c.cost, c.years, c.option)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s assigned to %s for %s\n", p.Name, t.Name, p.Cost)
		return nil
	})
}

// releaseCmd releases players.
type releaseCmd struct{}

func (*releaseCmd) Name() string     { return "release" }
func (*releaseCmd) Synopsis() string { return "release a player and refund its team" }
func (*releaseCmd) Usage() string {
	return `fmk release <player id>

  Makes the player a free agent and refunds its team for the price paid.
`
}

func (c *releaseCmd) SetFlags(f *flag.FlagSet) {}

func (c *releaseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: a single player id is required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		id, err := parsePlayerID(f.Arg(0))
		if err != nil {
			return err
		}
		p, err := a.market.Release(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s released\n", p.Name)
		return nil
	})
}

// moveCmd holds the flags for the 'move' subcommand.
type moveCmd struct {
	team string
	cost fantamarket.Credits
}

func (*moveCmd) Name() string     { return "move" }
func (*moveCmd) Synopsis() string { return "move a player to another team or change its cost" }
func (*moveCmd) Usage() string {
	return `fmk move -team <team> -cost <credits> <player id>

  Refunds the current owner, then charges the new one. If the new owner cannot pay the
  player stays where it is, but the previous owner keeps the refund.
  Within the same team only the change of cost is charged or refunded.
`
}

func (c *moveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.team, "team", "", "New owner")
	f.Var(&c.cost, "cost", "New cost")
}

func (c *moveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.team == "" || f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: -team and a single player id are required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		id, err := parsePlayerID(f.Arg(0))
		if err != nil {
			return err
		}
		t, err := a.team(ctx, c.team)
		if err != nil {
			return err
		}
		p, err := a.market.Move(ctx, id, t.ID, c.cost)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s now plays for %s at %s\n", p.Name, t.Name, p.Cost)
		return nil
	})
}
