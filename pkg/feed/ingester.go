package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/metrics"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// ReconnectBackoff is the fixed delay between a dropped subscription and
// the next Subscribe attempt (spec.md §4.5 step 1, "≈5 s").
const ReconnectBackoff = 5 * time.Second

// Ingester subscribes to a Source, logs every message verbatim, and
// correlates FleetCarrier Location/docking events against TrackedCarrier.
// Grounded on the original ingester's connect/receive/reconnect loop
// (extras/eddn.py's connect_loop), generalized from a raw ZMQ socket to
// the Source interface.
type Ingester struct {
	Source Source
	Store  *storage.Store
	Writer *LogWriter

	logger zerolog.Logger

	mu            sync.Mutex
	lastMessageAt time.Time
}

// NewIngester builds an Ingester. Writer may be nil to skip on-disk
// logging (e.g. in tests).
func NewIngester(source Source, store *storage.Store, writer *LogWriter) *Ingester {
	return &Ingester{Source: source, Store: store, Writer: writer, logger: log.WithComponent("feed")}
}

// LastMessageAt returns the time of the last message handled, or the
// zero Time if none has ever arrived — used by pkg/health to probe feed
// reachability without a dedicated transport-level ping.
func (in *Ingester) LastMessageAt() time.Time {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.lastMessageAt
}

// Run is a supervisor.Factory: it subscribes, processes messages until
// the subscription drops or stopCh closes, and reconnects on a fixed
// backoff. It observes stopCh promptly at every suspension point so
// shutdown never leaves a write in flight.
func (in *Ingester) Run(stopCh <-chan struct{}) error {
	ctx, cancel := contextFromStop(stopCh)
	defer cancel()

	for {
		select {
		case <-stopCh:
			return nil
		default:
		}

		msgs, err := in.Source.Subscribe(ctx)
		if err != nil {
			in.logger.Error().Err(err).Msg("feed subscribe failed, reconnecting")
			metrics.FeedReconnectsTotal.Inc()
			if !sleepOrStop(ReconnectBackoff, stopCh) {
				return nil
			}
			continue
		}

		keepGoing := in.drain(msgs, stopCh)
		if !keepGoing {
			return nil
		}
		metrics.FeedReconnectsTotal.Inc()
		if !sleepOrStop(ReconnectBackoff, stopCh) {
			return nil
		}
	}
}

// drain reads msgs until it closes (subscription dropped, caller should
// reconnect) or stopCh fires (caller should exit). Returns false only in
// the stopCh case.
func (in *Ingester) drain(msgs <-chan Message, stopCh <-chan struct{}) bool {
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return true
			}
			in.handle(msg)
			metrics.FeedLagSeconds.Set(0)
		case <-stopCh:
			return false
		}
	}
}

func (in *Ingester) handle(msg Message) {
	in.mu.Lock()
	in.lastMessageAt = time.Now()
	in.mu.Unlock()

	key := schemaKey(msg.SchemaRef)
	metrics.FeedEventsTotal.WithLabelValues(key).Inc()
	if in.Writer != nil {
		if err := in.Writer.Append(key, msg); err != nil {
			in.logger.Error().Err(err).Str("schema", key).Msg("feed log write failed")
		}
	}

	if strings.HasSuffix(msg.SchemaRef, spySnapshotSchemaSuffix) {
		in.handleSpySnapshot(msg)
		return
	}
	if !strings.HasSuffix(msg.SchemaRef, journalSchemaSuffix) {
		return
	}
	var body Body
	if err := json.Unmarshal(msg.Raw, &body); err != nil {
		in.logger.Warn().Err(err).Msg("feed journal body decode failed")
		return
	}
	if !interpretedEvents[body.Event] || body.StationType != "FleetCarrier" {
		return
	}
	if body.StationName == "" || body.StarSystem == "" {
		return
	}
	in.correlateCarrier(body)
}

// correlateCarrier implements spec.md §4.5 step 3-4: a carrier sighting
// is only recorded when its system is watched or the carrier already
// carries a manual override, and a recorded move posts a
// cogbot_carrier_alerts_total increment the dashboard/notification layer
// can key off.
func (in *Ingester) correlateCarrier(body Body) {
	sess, err := in.Store.Begin(context.Background())
	if err != nil {
		in.logger.Error().Err(err).Msg("feed session open failed")
		return
	}
	var commitErr error
	defer sess.Finish(&commitErr)

	tracked, err := sess.IsTrackedSystem(body.StarSystem)
	if err != nil {
		commitErr = err
		return
	}

	existing, err := sess.GetTrackedCarrier(body.StationName)
	if err != nil && !errors.Is(err, storage.ErrNoMatch) {
		commitErr = err
		return
	}
	hasOverride := existing != nil && existing.Override
	if !tracked && !hasOverride {
		return
	}
	if existing != nil && existing.CurrentSystem == body.StarSystem {
		return
	}

	commitErr = sess.UpsertTrackedCarrier(&types.TrackedCarrier{
		ID:            body.StationName,
		CurrentSystem: body.StarSystem,
		LastUpdated:   time.Now().UTC(),
	})
	if commitErr != nil {
		in.logger.Error().Err(commitErr).Str("carrier", body.StationName).Msg("carrier upsert failed")
		return
	}

	reason := "jump"
	if existing == nil {
		reason = "first_sighting"
	}
	metrics.CarrierAlertsTotal.WithLabelValues(reason).Inc()
}

func contextFromStop(stopCh <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func sleepOrStop(d time.Duration, stopCh <-chan struct{}) bool {
	select {
	case <-time.After(d):
		return true
	case <-stopCh:
		return false
	}
}
