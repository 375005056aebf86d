package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cogbot/cogbot/pkg/dispatcher"
	"github.com/cogbot/cogbot/pkg/feed"
	"github.com/cogbot/cogbot/pkg/health"
	"github.com/cogbot/cogbot/pkg/storage"
)

// healthMonitor runs one health.Checker per external capability on a
// fixed interval and keeps a debounced health.Status per capability, so
// /healthz and `cogbot dash` can report *why* a task isn't
// running instead of just that it isn't (pkg/health's own package doc).
type healthMonitor struct {
	cfg      health.Config
	checkers map[string]health.Checker

	mu       sync.Mutex
	statuses map[string]*health.Status
}

func newHealthMonitor(checkers map[string]health.Checker) *healthMonitor {
	statuses := make(map[string]*health.Status, len(checkers))
	for name := range checkers {
		statuses[name] = health.NewStatus()
	}
	return &healthMonitor{cfg: health.DefaultConfig(), checkers: checkers, statuses: statuses}
}

// run is a supervisor.Factory: it probes every capability once at
// startup, then on cfg.Interval, until stopCh closes.
func (m *healthMonitor) run(stopCh <-chan struct{}) error {
	m.probeAll()
	for {
		select {
		case <-time.After(m.cfg.Interval):
			m.probeAll()
		case <-stopCh:
			return nil
		}
	}
}

func (m *healthMonitor) probeAll() {
	for name, checker := range m.checkers {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
		result := checker.Check(ctx)
		cancel()

		m.mu.Lock()
		status := m.statuses[name]
		if !status.InStartPeriod(m.cfg) {
			status.Update(result, m.cfg)
		} else {
			status.LastCheck = result.CheckedAt
			status.LastResult = result
		}
		m.mu.Unlock()
	}
}

// componentHealth is one capability's point-in-time snapshot.
type componentHealth struct {
	Name    string
	Healthy bool
	Message string
}

// Snapshot returns every capability's current status, sorted by name.
func (m *healthMonitor) Snapshot() []componentHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]componentHealth, 0, len(m.statuses))
	for name, status := range m.statuses {
		out = append(out, componentHealth{Name: name, Healthy: status.Healthy, Message: status.LastResult.Message})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Ready reports whether every capability is currently healthy.
func (m *healthMonitor) Ready() bool {
	for _, c := range m.Snapshot() {
		if !c.Healthy {
			return false
		}
	}
	return true
}

// buildHealthCheckers wires one Checker per external capability this
// process depends on: the local cache store, the configured spreadsheet
// documents, and the streaming event feed. Each is a FuncChecker over
// the capability's own Go interface rather than an HTTPChecker, since
// none of the three is reached over HTTP (spec.md §1/§6 boundary).
func buildHealthCheckers(store *storage.Store, docs map[string]*dispatcher.ManagedDocument, ingester *feed.Ingester) map[string]health.Checker {
	checkers := map[string]health.Checker{
		"storage": health.NewFuncChecker(func(ctx context.Context) (bool, string) {
			if err := store.Primary.PingContext(ctx); err != nil {
				return false, fmt.Sprintf("primary db unreachable: %v", err)
			}
			if err := store.Reference.PingContext(ctx); err != nil {
				return false, fmt.Sprintf("reference db unreachable: %v", err)
			}
			return true, "ok"
		}),
		"sheets": health.NewFuncChecker(func(ctx context.Context) (bool, string) {
			if len(docs) == 0 {
				return true, "no documents configured"
			}
			names := make([]string, 0, len(docs))
			for name := range docs {
				names = append(names, name)
			}
			sort.Strings(names)
			doc := docs[names[0]]
			if _, err := doc.Title(ctx); err != nil {
				return false, fmt.Sprintf("%s: %v", names[0], err)
			}
			return true, "ok"
		}),
		"feed": health.NewFuncChecker(func(ctx context.Context) (bool, string) {
			last := ingester.LastMessageAt()
			if last.IsZero() {
				return false, "no feed messages received yet"
			}
			return true, fmt.Sprintf("last message %s ago", time.Since(last).Round(time.Second))
		}),
	}
	return checkers
}
