package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "logsmith",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Pattern sources
	flags.StringP("patterns", "p", "", "Directory of pattern definition files (*.yml, *.yaml)")
	flags.StringSlice("pattern-file", nil, "Individual pattern file to load (repeatable)")

	// Generation control
	flags.IntP("max-concurrent", "c", 0, "Max patterns generating simultaneously (0 means all)")
	flags.String("pacing", string(PacingModelWindow), "Pacing model: 'window', 'uniform' or 'poisson'")
	flags.Int64("seed", 0, "Random seed for reproducible runs (0 means time-based)")

	// Output flags
	flags.Bool("progress", true, "Show a progress line while generating")
	flags.Bool("json-output", false, "Emit JSON formatted summary")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.String("log-level", "warning", "Log level: debug, info, warning or error")
	flags.String("config", "", "Path to global configuration file (JSON or YAML)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("patterns") {
		val, err := fs.GetString("patterns")
		if err != nil {
			return err
		}
		cfg.PatternsDir = strings.TrimSpace(val)
	}
	if fs.Changed("pattern-file") {
		val, err := fs.GetStringSlice("pattern-file")
		if err != nil {
			return err
		}
		cfg.PatternFiles = val
	}
	if fs.Changed("max-concurrent") {
		val, err := fs.GetInt("max-concurrent")
		if err != nil {
			return err
		}
		cfg.MaxConcurrent = val
	}
	if fs.Changed("pacing") {
		val, err := fs.GetString("pacing")
		if err != nil {
			return err
		}
		cfg.Pacing = PacingModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = val
	}
	return nil
}
