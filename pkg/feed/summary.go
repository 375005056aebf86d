package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/config"
	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// ReapWindow is how stale a non-overridden TrackedCarrier row must be
// before the summary task reaps it (spec.md §3: "4 days").
const ReapWindow = 4 * 24 * time.Hour

// SummaryPoster periodically posts a summary of carrier movement to a
// notification channel, posts a larger rollup covering the preceding 24h
// once a day, and reaps carriers nobody has seen in ReapWindow (spec.md
// §4.5 step 5; the reap responsibility is called out on TrackedCarrier's
// own doc comment in pkg/types).
type SummaryPoster struct {
	Store   *storage.Store
	Config  *config.Watcher
	Channel chatmodel.Channel

	logger    zerolog.Logger
	lastRun   time.Time
	lastDaily time.Time
}

// NewSummaryPoster builds a SummaryPoster. Channel may be nil, in which
// case summaries are computed and reaping still runs, but nothing is
// posted — useful where no notification channel is configured.
func NewSummaryPoster(store *storage.Store, cfg *config.Watcher, channel chatmodel.Channel) *SummaryPoster {
	now := time.Now()
	return &SummaryPoster{
		Store:     store,
		Config:    cfg,
		Channel:   channel,
		logger:    log.WithComponent("feed-summary"),
		lastRun:   now,
		lastDaily: now,
	}
}

// Run is a supervisor.Factory: it ticks every Config.SchedulerDelay
// seconds (default 60), posting a since-last-tick summary and reaping
// stale carriers, plus a once-a-day rollup of the preceding 24h.
func (p *SummaryPoster) Run(stopCh <-chan struct{}) error {
	for {
		delay := time.Duration(p.Config.Get().SchedulerDelay) * time.Second
		if delay <= 0 {
			delay = 60 * time.Second
		}
		select {
		case <-time.After(delay):
		case <-stopCh:
			return nil
		}

		since := p.lastRun
		p.lastRun = time.Now()
		if err := p.tick(since, stopCh); err != nil {
			p.logger.Error().Err(err).Msg("carrier summary tick failed")
		}
	}
}

func (p *SummaryPoster) tick(since time.Time, stopCh <-chan struct{}) error {
	if err := p.postSince(since, "carrier movement since "+since.Format("15:04 MST")); err != nil {
		return err
	}

	if time.Since(p.lastDaily) >= 24*time.Hour {
		select {
		case <-stopCh:
			return nil
		default:
		}
		dayAgo := p.lastRun.Add(-24 * time.Hour)
		if err := p.postSince(dayAgo, "daily carrier summary (last 24h)"); err != nil {
			p.logger.Error().Err(err).Msg("daily carrier summary post failed")
		}
		p.lastDaily = time.Now()
	}

	return p.reapStale()
}

func (p *SummaryPoster) postSince(since time.Time, heading string) error {
	moved, err := p.movedSince(since)
	if err != nil {
		return err
	}
	if len(moved) == 0 || p.Channel == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", heading)
	for _, c := range moved {
		fmt.Fprintf(&b, "%s (%s): %s -> %s\n", c.ID, c.Squad, c.PreviousSystem, c.CurrentSystem)
	}
	_, err = p.Channel.Send(context.Background(), strings.TrimRight(b.String(), "\n"))
	return err
}

func (p *SummaryPoster) movedSince(since time.Time) ([]*types.TrackedCarrier, error) {
	sess, err := p.Store.Begin(context.Background())
	if err != nil {
		return nil, err
	}
	var commitErr error
	defer sess.Finish(&commitErr)

	carriers, err := sess.ListTrackedCarriers()
	if err != nil {
		commitErr = err
		return nil, err
	}

	var moved []*types.TrackedCarrier
	for _, c := range carriers {
		if c.LastUpdated.After(since) {
			moved = append(moved, c)
		}
	}
	sort.Slice(moved, func(i, j int) bool { return moved[i].LastUpdated.Before(moved[j].LastUpdated) })
	return moved, nil
}

func (p *SummaryPoster) reapStale() error {
	sess, err := p.Store.Begin(context.Background())
	if err != nil {
		return err
	}
	var commitErr error
	defer sess.Finish(&commitErr)

	ids, err := sess.ReapStaleCarriers(time.Now().Add(-ReapWindow))
	commitErr = err
	if err == nil && len(ids) > 0 {
		p.logger.Info().Strs("carriers", ids).Msg("reaped stale carriers")
	}
	return err
}
