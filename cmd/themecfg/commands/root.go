package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "themecfg",
		Short: "themecfg - utility-CSS build configuration tool",
		Long: `themecfg loads, validates and serializes the build configuration of a
utility-first CSS generator: which source files to scan for class names,
which design tokens to add to the default theme and which plugins to load.

Features:
  - CUE, JSON and YAML configuration files checked against a CUE schema
  - Solid and scaled design tokens with color validation
  - Content glob matching against a project tree
  - Built-in and Starlark plugin resolution
  - Live reload with optional Prometheus metrics`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: themecfg.{cue,json,yaml,yml} in the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newPluginsCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
