package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/fantamarket"
	"github.com/google/subcommands"
)

// chargeCmd holds the flags for the 'charge' subcommand.
type chargeCmd struct {
	team string
}

func (*chargeCmd) Name() string     { return "charge" }
func (*chargeCmd) Synopsis() string { return "debit a team if it can afford it" }
func (*chargeCmd) Usage() string {
	return `fmk charge -team <team> <amount>

  Debits amount from the team cash. The charge is refused when the team cannot afford it.
`
}

func (c *chargeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.team, "team", "", "Team to charge")
}

func (c *chargeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.team == "" || f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: -team and a single amount are required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		amount, err := parseAmount(f.Arg(0))
		if err != nil {
			return err
		}
		t, err := a.team(ctx, c.team)
		if err != nil {
			return err
		}
		res, err := a.market.Ledger().Charge(ctx, t.ID, amount)
		if err != nil {
			return err
		}
		if !res.OK {
			return &fantamarket.InsufficientFundsError{Team: t.ID, Needed: amount, Available: res.Available}
		}
		fmt.Fprintf(stdout, "Charged %s to %s\n", amount, t.Name)
		return nil
	})
}

// refundCmd holds the flags for the 'refund' subcommand.
type refundCmd struct {
	team string
}

func (*refundCmd) Name() string     { return "refund" }
func (*refundCmd) Synopsis() string { return "credit a team" }
func (*refundCmd) Usage() string {
	return `fmk refund -team <team> <amount>

  Credits amount to the team cash.
`
}

func (c *refundCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.team, "team", "", "Team to refund")
}

func (c *refundCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.team == "" || f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: -team and a single amount are required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		amount, err := parseAmount(f.Arg(0))
		if err != nil {
			return err
		}
		t, err := a.team(ctx, c.team)
		if err != nil {
			return err
		}
		if err := a.market.Ledger().Refund(ctx, t.ID, amount); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Refunded %s to %s\n", amount, t.Name)
		return nil
	})
}

// transferCmd holds the flags for the 'transfer' subcommand.
type transferCmd struct {
	from, to string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move cash from a team to another" }
func (*transferCmd) Usage() string {
	return `fmk transfer -from <team> -to <team> <amount>

  Refunds amount to the source team, then charges it to the destination team.
  When the destination cannot pay, the source keeps the refund.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Team refunded")
	f.StringVar(&c.to, "to", "", "Team charged")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.to == "" || f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: -to and a single amount are required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		amount, err := parseAmount(f.Arg(0))
		if err != nil {
			return err
		}
		var from fantamarket.Team
		if c.from != "" {
			if from, err = a.team(ctx, c.from); err != nil {
				return err
			}
		}
		to, err := a.team(ctx, c.to)
		if err != nil {
			return err
		}
		res, err := a.market.Ledger().Transfer(ctx, from.ID, to.ID, amount)
		if err != nil {
			return err
		}
		if !res.OK {
			return &fantamarket.InsufficientFundsError{Team: to.ID, Needed: amount, Available: res.Available}
		}
		fmt.Fprintf(stdout, "Transferred %s to %s\n", amount, to.Name)
		return nil
	})
}

// correctCmd holds the flags for the 'correct' subcommand.
type correctCmd struct {
	team              string
	starting, current string
}

func (*correctCmd) Name() string     { return "correct" }
func (*correctCmd) Synopsis() string { return "overwrite the cash of a team" }
func (*correctCmd) Usage() string {
	return `fmk correct -team <team> [-starting <credits>] [-current <credits>]

  Overwrites the starting and current cash of a team. Omitted values are kept.
`
}

func (c *correctCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.team, "team", "", "Team to correct")
	f.StringVar(&c.starting, "starting", "", "New starting cash")
	f.StringVar(&c.current, "current", "", "New current cash")
}

func (c *correctCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.team == "" || (c.starting == "" && c.current == "") {
		fmt.Fprintln(os.Stderr, "Error: -team and at least one of -starting or -current are required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app) error {
		t, err := a.team(ctx, c.team)
		if err != nil {
			return err
		}
		b, err := a.market.Ledger().Balance(ctx, t.ID)
		if err != nil {
			return err
		}
		if c.starting != "" {
			if b.Starting, err = parseAmount(c.starting); err != nil {
				return err
			}
		}
		if c.current != "" {
			if b.Current, err = parseAmount(c.current); err != nil {
				return err
			}
		}
		if err := a.market.Ledger().Correct(ctx, t.ID, b.Starting, b.Current); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: starting %s, current %s\n", t.Name, b.Starting, b.Current)
		return nil
	})
}
