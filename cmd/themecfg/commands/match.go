package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/themecfg/pkg/content"
)

func newMatchCommand() *cobra.Command {
	var (
		root     string
		patterns []string
		skipDirs []string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "List the source files selected by the content globs",
		Long: `List the files under the project root that the configured content globs
select. Patterns starting with '!' exclude files matched by the others.`,
		Example: `  # Files the configuration selects
  themecfg match

  # Try patterns without editing the configuration
  themecfg match --pattern './src/**/*.svelte' --pattern '!./src/legacy/**'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(patterns) == 0 {
				doc, err := loadDocument(cmd.Context(), root, false)
				if err != nil {
					printIssues(cmd.ErrOrStderr(), err)
					return err
				}
				patterns = doc.Config.Content
				root = projectRoot(root, sourcePath(doc.Source))
			} else if root == "" {
				root = "."
			}

			scanner := content.NewScanner(log.Logger)
			if cmd.Flags().Changed("skip-dir") {
				scanner.WithSkipDirs(skipDirs...)
			}

			result, err := scanner.Scan(cmd.Context(), root, patterns)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(out, result)
			}

			for _, f := range result.Files {
				fmt.Fprintln(out, f)
			}
			for _, p := range result.Unmatched(patterns) {
				log.Warn().Str("pattern", p).Msg("Content glob matches no files")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project root (default: the config file's directory)")
	cmd.Flags().StringArrayVarP(&patterns, "pattern", "p", nil, "glob to evaluate instead of the configured content (repeatable)")
	cmd.Flags().StringSliceVar(&skipDirs, "skip-dir", content.DefaultSkipDirs, "directory names never descended into")

	return cmd
}
