package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/themecfg/pkg/config"
	"github.com/openfroyo/themecfg/pkg/policy"
)

type validateResult struct {
	Source   string                   `json:"source"`
	Format   config.Format            `json:"format"`
	Valid    bool                     `json:"valid"`
	Error    string                   `json:"error,omitempty"`
	Issues   []config.ValidationError `json:"issues,omitempty"`
	Matches  map[string]int           `json:"matches,omitempty"`
	Warnings int                      `json:"warnings"`
	Policy   *policy.Result           `json:"policy,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var (
		root     string
		noScan   bool
		strict   bool
		noPolicy bool
		policies []string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the build configuration",
		Long: `Validate the build configuration.

This command checks:
  - Schema conformance (content list, token shapes, plugin list)
  - Token values (colors must be valid CSS colors, scaled tokens need DEFAULT)
  - Content globs (syntax, duplicates, and whether they match any file)
  - Plugin references (built-in names or loadable Starlark files)
  - Lint policies (built-in Rego policies plus any given with --policy)

Globs matching no file are reported as warnings; --strict turns them into
a failure.`,
		Example: `  # Validate themecfg.cue in the current directory
  themecfg validate

  # Validate a specific file against another project tree
  themecfg validate --config ./web/themecfg.yaml --root ./web

  # Apply the team's Rego policies
  themecfg validate --policy ./policies

  # Machine-readable output
  themecfg validate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			doc, err := loadDocument(cmd.Context(), root, !noScan)
			if err != nil {
				if jsonOutput {
					res := validateResult{Source: configPath, Error: err.Error()}
					var ce *config.ConfigError
					if errors.As(err, &ce) {
						res.Source = ce.Source
						res.Issues = ce.Issues
					}
					if perr := printJSON(out, res); perr != nil {
						return perr
					}
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "✗ configuration is invalid\n")
					printIssues(cmd.ErrOrStderr(), err)
				}
				return err
			}

			warnings := doc.Report.Warnings()

			var lint *policy.Result
			if !noPolicy {
				lint, err = evaluatePolicies(cmd.Context(), doc, policies)
				if err != nil {
					return err
				}
			}

			log.Debug().
				Str("source", doc.Source).
				Int("warnings", len(warnings)).
				Msg("Configuration validated")

			if jsonOutput {
				if err := printJSON(out, validateResult{
					Source:   doc.Source,
					Format:   doc.Format,
					Valid:    lint == nil || lint.Allowed,
					Issues:   doc.Report.Issues,
					Matches:  doc.Report.Matches,
					Warnings: len(warnings),
					Policy:   lint,
				}); err != nil {
					return err
				}
			} else {
				if lint == nil || lint.Allowed {
					fmt.Fprintf(out, "✓ %s is valid\n", doc.Source)
				} else {
					fmt.Fprintf(out, "✗ %s violates policy\n", doc.Source)
				}
				for _, w := range warnings {
					fmt.Fprintf(out, "  ! %s\n", w)
				}
				if lint != nil {
					for _, v := range lint.Violations {
						fmt.Fprintf(out, "  %s %s\n", severityMark(v.Severity), v)
					}
				}
			}

			if lint != nil {
				if err := lint.Err(); err != nil {
					return err
				}
			}

			if strict && len(warnings) > 0 {
				return fmt.Errorf("%d warning(s) in strict mode", len(warnings))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project root for content globs (default: the config file's directory)")
	cmd.Flags().BoolVar(&noScan, "no-scan", false, "skip matching content globs against the project tree")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	cmd.Flags().BoolVar(&noPolicy, "no-policy", false, "skip policy checks")
	cmd.Flags().StringArrayVar(&policies, "policy", nil, "Rego policy file or directory (repeatable)")

	return cmd
}

// evaluatePolicies runs the built-in policies and those found at paths.
func evaluatePolicies(ctx context.Context, doc *config.Document, paths []string) (*policy.Result, error) {
	eng, err := policy.NewEngine(log.Logger)
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		if err := eng.LoadPolicies(ctx, policy.NewLoader(log.Logger), paths); err != nil {
			return nil, err
		}
	}
	return eng.Evaluate(ctx, doc.Config, doc.Source)
}

func severityMark(s config.Severity) string {
	switch s {
	case config.SeverityError:
		return "✗"
	case config.SeverityWarning:
		return "!"
	default:
		return "-"
	}
}
