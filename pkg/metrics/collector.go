package metrics

import (
	"context"
	"time"

	"github.com/cogbot/cogbot/pkg/selector"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/supervisor"
)

// Collector periodically refreshes the domain-state gauges that are
// cheapest to derive by scanning current storage rather than updating
// inline on every mutation.
type Collector struct {
	store  *storage.Store
	super  *supervisor.Supervisor
	stopCh chan struct{}
}

// NewCollector creates a collector over store's cache and super's task
// registry. super may be nil if task gauges are not wanted.
func NewCollector(store *storage.Store, super *supervisor.Supervisor) *Collector {
	return &Collector{
		store:  store,
		super:  super,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectTaskMetrics()

	sess, err := c.store.Begin(context.Background())
	if err != nil {
		return
	}
	defer sess.Finish(&err)

	c.collectAdminMetrics(sess)
	c.collectTrackingMetrics(sess)
	c.collectKosMetrics(sess)
	c.collectFortMetrics(sess)
}

func (c *Collector) collectTaskMetrics() {
	if c.super == nil {
		return
	}
	rows := c.super.StatusTable()
	counts := map[supervisor.State]int{}
	for _, r := range rows {
		counts[r.State]++
	}
	TasksTotal.WithLabelValues(string(supervisor.StateRunning)).Set(float64(counts[supervisor.StateRunning]))
	TasksTotal.WithLabelValues(string(supervisor.StateStopped)).Set(float64(counts[supervisor.StateStopped]))
}

func (c *Collector) collectAdminMetrics(sess *storage.Session) {
	admins, err := sess.ListAdmins()
	if err != nil {
		return
	}
	AdminsTotal.Set(float64(len(admins)))
}

func (c *Collector) collectTrackingMetrics(sess *storage.Session) {
	systems, err := sess.ListTrackedSystems()
	if err == nil {
		TrackedSystemsTotal.Set(float64(len(systems)))
	}
	carriers, err := sess.ListTrackedCarriers()
	if err == nil {
		TrackedCarriersTotal.Set(float64(len(carriers)))
	}
}

func (c *Collector) collectKosMetrics(sess *storage.Session) {
	entries, err := sess.ListKosEntries()
	if err != nil {
		return
	}
	KosEntriesTotal.Set(float64(len(entries)))
}

func (c *Collector) collectFortMetrics(sess *storage.Session) {
	partition, err := selector.FortPartition(sess)
	if err != nil {
		return
	}
	FortTargetsTotal.WithLabelValues("cancelled").Set(float64(len(partition.Cancelled)))
	FortTargetsTotal.WithLabelValues("fortified").Set(float64(len(partition.Fortified)))
	FortTargetsTotal.WithLabelValues("undermined").Set(float64(len(partition.Undermined)))
	FortTargetsTotal.WithLabelValues("skipped").Set(float64(len(partition.Skipped)))
	FortTargetsTotal.WithLabelValues("left").Set(float64(len(partition.Left)))
}
