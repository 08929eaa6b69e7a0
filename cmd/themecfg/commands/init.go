package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/themecfg/pkg/config"
)

func newInitCommand() *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in configuration to a file",
		Long: `Write the built-in configuration to a new file so it can be edited.

The file is themecfg.<format> in the current directory unless --config is
given. Existing files are kept unless --force is set.`,
		Example: `  # Create themecfg.cue
  themecfg init

  # Create a YAML configuration at a custom path
  themecfg init --format yaml --config ./web/themecfg.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == config.FormatJS {
				return fmt.Errorf("format %s cannot be loaded back; use 'themecfg show --format js' instead", f)
			}

			path := configPath
			if path == "" {
				path = "themecfg." + string(f)
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}

			data, err := config.Marshal(config.Default(), f)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			log.Info().Str("path", path).Str("format", string(f)).Msg("Configuration initialized")
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created config file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatCUE), "file format (cue, json, yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
