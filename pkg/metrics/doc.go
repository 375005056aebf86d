/*
Package metrics defines and registers cogbot's Prometheus metrics and
exposes them for scraping. Reachability health checks live in pkg/health.

# Metrics Catalog

Dispatcher:

cogbot_commands_total{command, outcome}:
  - Counter incremented once per dispatched command.
  - outcome is one of "ok", "denied", "error".

cogbot_command_duration_seconds{command}:
  - Histogram of handler latency.

cogbot_errors_total{kind}:
  - Counter of errors surfaced to a user, keyed by kind (user_error,
    invalid_perms, no_match, more_than_one_match, validation_fail,
    sheet_parsing, remote_unavailable, integrity_conflict, critical).

cogbot_prompts_active:
  - Gauge of interactive "pick one of N" prompts currently open.

Scanner:

cogbot_scan_duration_seconds{scanner}:
  - Histogram of full-sheet scan time, by document name (fort,
    undermine_main, undermine_snipe, kos, carrier_ids).

cogbot_scan_failures_total{scanner}:
  - Counter of scans that raised a parsing error.

cogbot_sheet_write_failures_total{document}:
  - Counter of batch writes that failed after the handler had already
    changed the cache; the cache change is kept (spec's "cache wins"
    failure mode).

Feed ingester:

cogbot_carrier_alerts_total{reason}:
  - Counter of carrier sightings recorded by the feed ingester, by reason
    (first_sighting, jump). Nothing is posted to chat per sighting.

cogbot_feed_events_total{schema}:
  - Counter of feed events processed, by schema tag.

cogbot_feed_reconnects_total:
  - Counter of reconnects to the streaming event source.

cogbot_feed_lag_seconds:
  - Gauge set to 0 each time a feed message arrives; nothing raises it
    between messages.

Domain state (refreshed every 15s by Collector):

cogbot_admins_total, cogbot_tracked_carriers_total,
cogbot_tracked_systems_total, cogbot_kos_entries_total:
  - Gauges of current row counts.

cogbot_fort_targets_total{state}:
  - Gauge of fortification targets by state (cancelled, fortified,
    undermined, skipped, left), from selector.FortPartition.

cogbot_tasks_total{state}:
  - Gauge of supervised background tasks by state (running, stopped).

# Usage

	timer := metrics.NewTimer()
	err := handle(cmd)
	metrics.CommandDuration.WithLabelValues(cmd.Name).Observe(timer.Duration().Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.CommandsTotal.WithLabelValues(cmd.Name, outcome).Inc()

The /metrics endpoint is served by Handler() on the address configured
in Config.MetricsAddr.
*/
package metrics
