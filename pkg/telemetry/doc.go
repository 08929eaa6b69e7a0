// Package telemetry provides the logging and metrics used by themecfg.
//
// Logging is zerolog throughout. NewLogger builds the root logger from a
// LoggingConfig and ComponentLogger derives the per-component children that
// the loader, validator, scanner and watcher write to:
//
//	logger, err := telemetry.NewLogger(telemetry.DefaultConfig().Logging)
//	if err != nil {
//	    return err
//	}
//	watchLog := telemetry.ComponentLogger(logger, "config-watcher")
//
// Metrics are Prometheus collectors on a private registry. A disabled
// MetricsConfig yields a collector whose methods do nothing, so callers never
// need to check for nil:
//
//	m, _ := telemetry.NewMetrics(cfg.Metrics)
//	m.RecordReload(telemetry.ResultSuccess)
//	addr, err := m.StartMetricsServer(ctx, logger)
//
// Exported series:
//
//	themecfg_loads_total{format,result}
//	themecfg_load_duration_seconds{format}
//	themecfg_reloads_total{result}
//	themecfg_last_successful_reload_timestamp_seconds
//	themecfg_validation_issues_total{class,severity}
//	themecfg_content_glob_matches{pattern}
package telemetry
