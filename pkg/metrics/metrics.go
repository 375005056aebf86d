package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatcher metrics
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cogbot_commands_total",
			Help: "Total number of chat commands dispatched by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cogbot_command_duration_seconds",
			Help:    "Time to handle a dispatched command in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cogbot_errors_total",
			Help: "Total number of handled errors by taxonomy kind",
		},
		[]string{"kind"},
	)

	PromptsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cogbot_prompts_active",
			Help: "Number of interactive disambiguation prompts currently awaiting a reply",
		},
	)

	// Scanner metrics
	ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cogbot_scan_duration_seconds",
			Help:    "Time to run a sheet scan by scanner kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scanner"},
	)

	ScanFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cogbot_scan_failures_total",
			Help: "Total number of sheet scans that failed to parse, by scanner kind",
		},
		[]string{"scanner"},
	)

	SheetWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cogbot_sheet_write_failures_total",
			Help: "Total number of batch writes to the remote document that failed; the cache change is kept",
		},
		[]string{"document"},
	)

	// Feed ingester metrics
	CarrierAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cogbot_carrier_alerts_total",
			Help: "Total number of fleet-carrier sightings recorded by the feed ingester, by reason",
		},
		[]string{"reason"},
	)

	FeedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cogbot_feed_events_total",
			Help: "Total number of feed events processed by schema",
		},
		[]string{"schema"},
	)

	FeedReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cogbot_feed_reconnects_total",
			Help: "Total number of times the feed ingester reconnected to its source",
		},
	)

	FeedLagSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cogbot_feed_lag_seconds",
			Help: "Seconds since the last feed heartbeat was acknowledged",
		},
	)

	// Domain-state gauges, refreshed periodically by Collector
	AdminsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cogbot_admins_total",
			Help: "Total number of users with admin permission",
		},
	)

	TrackedCarriersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cogbot_tracked_carriers_total",
			Help: "Total number of carriers currently tracked",
		},
	)

	TrackedSystemsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cogbot_tracked_systems_total",
			Help: "Total number of systems under carrier-jump watch",
		},
	)

	KosEntriesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cogbot_kos_entries_total",
			Help: "Total number of kill-on-sight entries",
		},
	)

	FortTargetsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cogbot_fort_targets_total",
			Help: "Total number of fortification targets by state",
		},
		[]string{"state"},
	)

	// Supervisor metrics
	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cogbot_tasks_total",
			Help: "Total number of supervised background tasks by state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(PromptsActive)
	prometheus.MustRegister(ScanDuration)
	prometheus.MustRegister(ScanFailuresTotal)
	prometheus.MustRegister(SheetWriteFailuresTotal)
	prometheus.MustRegister(CarrierAlertsTotal)
	prometheus.MustRegister(FeedEventsTotal)
	prometheus.MustRegister(FeedReconnectsTotal)
	prometheus.MustRegister(FeedLagSeconds)
	prometheus.MustRegister(AdminsTotal)
	prometheus.MustRegister(TrackedCarriersTotal)
	prometheus.MustRegister(TrackedSystemsTotal)
	prometheus.MustRegister(KosEntriesTotal)
	prometheus.MustRegister(FortTargetsTotal)
	prometheus.MustRegister(TasksTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
