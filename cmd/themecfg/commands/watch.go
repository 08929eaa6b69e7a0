package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/themecfg/pkg/config"
	"github.com/openfroyo/themecfg/pkg/history"
	"github.com/openfroyo/themecfg/pkg/store"
	"github.com/openfroyo/themecfg/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		root        string
		metricsAddr string
		debounce    time.Duration
		emit        string
		emitFormat  string
		historyPath string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the configuration whenever it changes",
		Long: `Watch the configuration file and reload it on every change.

A change that fails validation is reported and the previous configuration
stays active. With --emit the effective configuration is written to a file
after every successful reload. With --history every load, successful or
not, is recorded in a SQLite database (see 'themecfg history').`,
		Example: `  # Watch and regenerate the style generator's config module
  themecfg watch --emit tailwind.config.js

  # Expose reload metrics for Prometheus
  themecfg watch --metrics-addr :9090

  # Keep a reload history
  themecfg watch --history .themecfg/history.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			path, err := findConfig(".")
			if err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("no configuration file to watch (use --config or run 'themecfg init')")
			}

			tcfg := telemetry.DefaultConfig()
			if metricsAddr != "" {
				tcfg.Metrics.Enabled = true
				tcfg.Metrics.ListenAddress = metricsAddr
			}
			if err := tcfg.Validate(); err != nil {
				return err
			}
			metrics, err := telemetry.NewMetrics(tcfg.Metrics)
			if err != nil {
				return fmt.Errorf("failed to create metrics: %w", err)
			}

			var outFormat config.Format
			if emit != "" {
				outFormat, err = config.ParseFormat(emitFormat)
				if err != nil {
					return err
				}
			}

			var recorder *history.SQLiteStore
			if historyPath != "" {
				recorder, err = openHistory(ctx, historyPath)
				if err != nil {
					return err
				}
				defer recorder.Close()
			}

			loader := config.NewLoader(log.Logger, nil).WithRoot(projectRoot(root, path))
			timer := telemetry.NewTimer()
			doc, err := loader.LoadFile(ctx, path)
			if recorder != nil {
				if rerr := recorder.RecordReload(ctx, absPath(path), doc, err, timer.Duration()); rerr != nil {
					log.Warn().Err(rerr).Msg("Failed to record load")
				}
			}
			if err != nil {
				printIssues(cmd.ErrOrStderr(), err)
				return err
			}

			st := store.New(doc)
			watcher := store.NewWatcher(path, loader, st, log.Logger).
				WithMetrics(metrics).
				WithDebounce(debounce)
			if recorder != nil {
				watcher.WithRecorder(recorder)
			}

			if emit != "" {
				write := func(d *config.Document) {
					if err := emitConfig(emit, outFormat, d.Config); err != nil {
						log.Error().Err(err).Str("path", emit).Msg("Failed to write configuration")
					}
				}
				write(doc)
				cancel := st.Subscribe(write)
				defer cancel()
			}

			if _, err := metrics.StartMetricsServer(ctx, log.Logger); err != nil {
				return err
			}

			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = watcher.Stop() }()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", watcher.Path())

			select {
			case <-ctx.Done():
			case <-watcher.Done():
			}
			log.Info().Msg("Stopped watching configuration")
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project root for content globs (default: the config file's directory)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().DurationVar(&debounce, "debounce", store.DefaultDebounce, "quiet period before reloading")
	cmd.Flags().StringVar(&emit, "emit", "", "write the configuration to this file after every reload")
	cmd.Flags().StringVar(&emitFormat, "emit-format", string(config.FormatJS), "format for --emit (cue, json, yaml, js)")
	cmd.Flags().StringVar(&historyPath, "history", "", "record every load in this SQLite database")

	return cmd
}
