package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/election-scraper/internal/usecase"
)

// Process exit codes.
const (
	exitOK          = 0
	exitFailure     = 1 // usage errors and anything not listed below
	exitUnreachable = 2 // index page could not be fetched
	exitNoEntities  = 3 // index page lists no municipalities
)

// usageError marks bad command-line input.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// NewRootCmd creates the root command. Flags of every subcommand are bound
// into v under their environment variable names.
func NewRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "Consolidate volby.cz municipality results into one table",
		Long: `scraper reads a volby.cz municipality index page, fetches the result page of
every municipality it lists and writes one row per municipality with a column
for every party that appeared on any page.

Settings are read from the environment and an optional .env file in the
working directory; command-line flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "Log format (json, console)")
	bindFlag(v, "LOG_LEVEL", cmd.PersistentFlags().Lookup("log-level"))
	bindFlag(v, "LOG_FORMAT", cmd.PersistentFlags().Lookup("log-format"))

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	cmd.AddCommand(NewRunCmd(v))
	cmd.AddCommand(NewServeCmd(v))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := NewRootCmd(viper.New()).Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, usecase.ErrSourceUnreachable):
		return exitUnreachable
	case errors.Is(err, usecase.ErrNoEntities):
		return exitNoEntities
	}
	return exitFailure
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return &usageError{msg: strings.TrimSpace(fmt.Sprintf("usage: %s %s", cmd.CommandPath(), usage))}
		}
		return nil
	}
}
