package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cogbot/cogbot/pkg/config"
	"github.com/cogbot/cogbot/pkg/dispatcher"
	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/metrics"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/supervisor"
	"github.com/cogbot/cogbot/pkg/workerpool"
)

// healthPath and dashPath name the two plain-text introspection
// endpoints cmd/cogbot serves alongside /metrics.
const (
	healthPath = "/healthz"
	dashPath   = "/dash"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cogbot process",
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogging(cmd)
		return runBot(cmd)
	},
}

func runBot(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	logger := log.WithComponent("main")

	cfg, err := config.NewWatcher(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer cfg.Stop()

	if level, _ := cmd.Flags().GetString("log-level"); level == "" {
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(cfg.Get().Log.Level), JSONOutput: cfg.Get().Log.JSON || jsonOut})
	}

	store, err := storage.Open(cfg.Get().PrimaryDBPath, cfg.Get().ReferenceDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	systems, stations := buildCatalogs()
	pool := workerpool.New(workerpool.Config{Workers: cfg.Get().WorkerPoolSize})
	defer pool.Stop()

	super := supervisor.New()
	defer super.Stop()

	d := dispatcher.New(store, cfg, systems, stations, pool, super)
	d.Documents = buildDocuments(cfg.Get().Scanners)

	registerScanTasks(super, store, cfg, d.Documents)
	ingester, err := registerFeedTasks(super, store, cfg, resolveCarrierChannel(cfg.Get().CarrierChannel))
	if err != nil {
		return fmt.Errorf("wire feed pipeline: %w", err)
	}

	monitor := newHealthMonitor(buildHealthCheckers(store, d.Documents, ingester))
	super.Add("health-checks", "reachability checks for storage/sheets/feed", monitor.run)

	srv := newServer(cfg, super, monitor)
	go func() {
		logger.Info().Str("addr", cfg.Get().MetricsAddr).Msg("metrics/health/dash server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	logger.Info().Int("documents", len(d.Documents)).Msg("cogbot running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	return nil
}

func newServer(cfg *config.Watcher, super *supervisor.Supervisor, monitor *healthMonitor) *http.Server {
	addr := cfg.Get().MetricsAddr
	if addr == "" {
		addr = "127.0.0.1:9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc(healthPath, healthHandler(monitor))
	mux.HandleFunc(dashPath, dashHandler(super, monitor))

	return &http.Server{Addr: addr, Handler: mux}
}

// healthHandler reports 200 when every capability monitor checks is
// currently healthy, 503 with each unhealthy capability's cause
// otherwise.
func healthHandler(monitor *healthMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		snapshot := monitor.Snapshot()

		if monitor.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok\n"))
			return
		}

		w.WriteHeader(http.StatusServiceUnavailable)
		for _, c := range snapshot {
			if !c.Healthy {
				fmt.Fprintf(w, "%s: %s\n", c.Name, c.Message)
			}
		}
	}
}

// dashHandler renders status_table() plus each capability's health, as
// plain text, shared by the HTTP /dash endpoint and the `cogbot dash`
// CLI subcommand.
func dashHandler(super *supervisor.Supervisor, monitor *healthMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(renderDash(super.StatusTable(), monitor.Snapshot())))
	}
}

func renderDash(rows []supervisor.StatusRow, components []componentHealth) string {
	out := ""
	if len(rows) == 0 {
		out += "no background tasks registered\n"
	}
	for _, r := range rows {
		line := fmt.Sprintf("%-20s %-10s %-30s started %s\n", r.Name, r.State, r.Description, r.LastStart.Format(time.RFC3339))
		if r.Cause != "" {
			line = fmt.Sprintf("%-20s %-10s %-30s cause: %s\n", r.Name, r.State, r.Description, r.Cause)
		}
		out += line
	}

	out += "\ncapability health:\n"
	for _, c := range components {
		state := "healthy"
		if !c.Healthy {
			state = "unhealthy"
		}
		out += fmt.Sprintf("%-10s %-10s %s\n", c.Name, state, c.Message)
	}
	return out
}
