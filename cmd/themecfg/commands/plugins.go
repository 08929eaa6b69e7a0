package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/themecfg/pkg/config"
	"github.com/openfroyo/themecfg/pkg/plugins"
)

type pluginStatus struct {
	*plugins.Plugin
	Error string `json:"error,omitempty"`
}

// acceptAll leaves plugin checks to the plugins command itself.
type acceptAll struct{}

func (acceptAll) Resolve(_ context.Context, _, ref string) (*plugins.Plugin, error) {
	return &plugins.Plugin{Ref: ref}, nil
}

func newPluginsCommand() *cobra.Command {
	var (
		builtins bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Resolve the configured plugins",
		Long: `Resolve every plugin reference in the configuration and report how it was
resolved. Starlark plugin files are loaded but their plugin function is
never called.`,
		Example: `  # Check the configured plugins
  themecfg plugins

  # List the plugin names known without a file
  themecfg plugins --builtins`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			resolver := plugins.NewResolver(log.Logger)
			resolver.WithTimeout(timeout)

			if builtins {
				if jsonOutput {
					return printJSON(out, resolver.Builtins())
				}
				for _, name := range resolver.Builtins() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			path, err := findConfig(".")
			if err != nil {
				return err
			}
			cfg := config.Default()
			if path != "" {
				// Plugin failures are reported per reference below, so the
				// document is only decoded here.
				doc, err := config.NewLoader(log.Logger, config.NewValidator(log.Logger, acceptAll{})).LoadFile(cmd.Context(), path)
				if err != nil {
					printIssues(cmd.ErrOrStderr(), err)
					return err
				}
				cfg = doc.Config
			}

			baseDir := filepath.Dir(path)
			var (
				statuses []pluginStatus
				failed   int
			)
			for _, ref := range cfg.Plugins {
				p, err := resolver.Resolve(cmd.Context(), baseDir, ref)
				st := pluginStatus{Plugin: p}
				if err != nil {
					failed++
					st.Plugin = &plugins.Plugin{Ref: ref}
					st.Error = err.Error()
				}
				statuses = append(statuses, st)
			}

			if jsonOutput {
				if err := printJSON(out, statuses); err != nil {
					return err
				}
			} else {
				if len(statuses) == 0 {
					fmt.Fprintln(out, "No plugins configured")
				}
				for _, st := range statuses {
					switch {
					case st.Error != "":
						fmt.Fprintf(out, "✗ %s: %s\n", st.Ref, st.Error)
					case st.Kind == plugins.KindStarlark:
						fmt.Fprintf(out, "✓ %s (%s, %s)\n", st.Ref, st.Kind, st.Path)
					default:
						fmt.Fprintf(out, "✓ %s (%s)\n", st.Ref, st.Kind)
					}
				}
			}

			if failed > 0 {
				return config.NewUnresolvablePluginError(fmt.Sprintf("%d plugin(s) cannot be resolved", failed), nil, nil).WithSource(path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&builtins, "builtins", false, "list the built-in plugin names")
	cmd.Flags().DurationVar(&timeout, "timeout", plugins.DefaultTimeout, "load timeout for Starlark plugin files")

	return cmd
}
