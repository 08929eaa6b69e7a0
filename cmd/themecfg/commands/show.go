package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/themecfg/pkg/config"
)

func newShowCommand() *cobra.Command {
	var (
		format  string
		builtin bool
	)

	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"print"},
		Short:   "Print the effective configuration",
		Long: `Print the effective configuration in CUE, JSON, YAML or as a JavaScript
module for the style generator.

Without a configuration file the built-in configuration is printed.`,
		Example: `  # Print as CUE
  themecfg show

  # Emit the JavaScript module consumed by the style generator
  themecfg show --format js > tailwind.config.js

  # Print the built-in configuration as YAML
  themecfg show --builtin --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput && !cmd.Flags().Changed("format") {
				format = string(config.FormatJSON)
			}
			f, err := config.ParseFormat(format)
			if err != nil {
				return err
			}

			var cfg *config.BuildConfiguration
			if builtin {
				cfg = config.Default()
			} else {
				doc, err := loadDocument(cmd.Context(), "", false)
				if err != nil {
					printIssues(cmd.ErrOrStderr(), err)
					return err
				}
				cfg = doc.Config
			}

			data, err := config.Marshal(cfg, f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatCUE), "output format (cue, json, yaml, js)")
	cmd.Flags().BoolVar(&builtin, "builtin", false, "print the built-in configuration")

	return cmd
}
