package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/etnz/fantamarket/logger"
)

const (
	EnvDB      = "FANTAMARKET_DB"
	EnvVerbose = "FANTAMARKET_VERBOSE"
)

// extensionEnv returns the environment of an extension: the current one plus the global
// flags, so that the extension works on the same database.
func extensionEnv() []string {
	env := os.Environ()
	if *dbPath != "" {
		env = append(env, EnvDB+"="+*dbPath)
	}
	return append(env, EnvVerbose+"="+strconv.FormatBool(*Verbose))
}

// RunExtension attempts to find and execute an external fmk-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
func RunExtension(subcommand string, args []string) (bool, int) {
	name := "fmk-" + subcommand
	level := "warn"
	if *Verbose {
		level = "debug"
	}
	log := logger.New(level)

	lp, err := exec.LookPath(name)
	if err != nil {
		log.Debug().Str("extension", name).Err(err).Msg("extension not found")
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	cmd.Env = extensionEnv()

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}
