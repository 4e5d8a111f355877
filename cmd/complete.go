package cmd

import (
	"flag"

	"github.com/etnz/fantamarket/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// argPredictors predicts the positional arguments of commands that take files or topics.
func argPredictors() map[string]complete.Predictor {
	topics, _ := docs.GetAllTopics()
	return map[string]complete.Predictor{
		"import":  predict.Files("*.json"),
		"suggest": predict.Files("*"),
		"mapping": predict.Files("*"),
		"topic":   predict.Set(topics),
	}
}

// flagPredictors maps the flags of fs to predictors. Boolean flags predict nothing.
func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		flags[f.Name] = predict.Something
	})
	return flags
}

// CompletionCommand describes the commands registered in c for shell completion.
func CompletionCommand(c *subcommands.Commander) *complete.Command {
	args := argPredictors()
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flagPredictors(flag.CommandLine),
	}
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		cmd.SetFlags(fs)
		root.Sub[cmd.Name()] = &complete.Command{
			Flags: flagPredictors(fs),
			Args:  args[cmd.Name()],
		}
	})
	if aliases, ok := root.Sub["aliases"]; ok {
		aliases.Sub = map[string]*complete.Command{
			"list":     {},
			"populate": {Args: predict.Files("*")},
			"dedup":    {},
		}
	}
	return root
}

// Complete answers a shell completion request when COMP_LINE is set, and exits.
// Otherwise it returns.
func Complete(c *subcommands.Commander) {
	CompletionCommand(c).Complete(c.Name())
}
