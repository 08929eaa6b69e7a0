package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/themecfg/pkg/history"
)

const defaultHistoryPath = ".themecfg/history.db"

func newHistoryCommand() *cobra.Command {
	var (
		dbPath  string
		limit   int
		failed  bool
		all     bool
		pruneTo int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded configuration loads",
		Long: `List the configuration loads recorded by 'themecfg watch --history'.

By default only loads of the current configuration file are shown.`,
		Example: `  # Last 10 loads
  themecfg history --limit 10

  # Failed loads of any configuration
  themecfg history --all --failed

  # Keep only the 100 newest entries
  themecfg history --prune 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no history at %s: %w", dbPath, err)
			}
			db, err := openHistory(ctx, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if cmd.Flags().Changed("prune") {
				removed, err := db.Prune(ctx, pruneTo)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d entries\n", removed)
				return nil
			}

			opts := history.ListOptions{Limit: limit}
			if failed {
				opts.Result = history.ResultFailure
			}
			if !all {
				path, err := findConfig(".")
				if err != nil {
					return err
				}
				if path == "" {
					return fmt.Errorf("no configuration file found (use --config or --all)")
				}
				opts.Source = absPath(path)
			}

			entries, err := db.List(ctx, opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				if entries == nil {
					entries = []history.Entry{}
				}
				return printJSON(cmd.OutOrStdout(), entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No loads recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tRESULT\tFORMAT\tDIGEST\tDETAIL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.LoadedAt.Local().Format(time.DateTime),
					e.Result,
					e.Format,
					shortDigest(e.Digest),
					entryDetail(e),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", defaultHistoryPath, "history database")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	cmd.Flags().BoolVar(&failed, "failed", false, "only show failed loads")
	cmd.Flags().BoolVar(&all, "all", false, "show loads of every configuration file")
	cmd.Flags().IntVar(&pruneTo, "prune", 0, "delete all but the newest N entries")

	return cmd
}

// openHistory opens the database at path, creating its directory.
func openHistory(ctx context.Context, path string) (*history.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := history.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return db, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func entryDetail(e history.Entry) string {
	switch {
	case e.Result == history.ResultFailure && e.ErrorClass != "":
		return fmt.Sprintf("%s (%d issues)", e.ErrorClass, e.Issues)
	case e.Result == history.ResultFailure:
		return e.Error
	case e.Warnings > 0:
		return fmt.Sprintf("%d warnings", e.Warnings)
	}
	return ""
}
