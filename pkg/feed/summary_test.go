package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/config"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

func newTestConfigWatcher(t *testing.T, yaml string) *config.Watcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	w, err := config.NewWatcher(path)
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w
}

// a carrier that moved since the poster's last tick is summarized to the
// notification channel.
func TestSummaryPosterPostsMovedCarriers(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, withStoreSession(t, store, func(sess *storage.Session) error {
		return sess.UpsertTrackedCarrier(&types.TrackedCarrier{
			ID: "K2X-44F", Squad: "EWING", CurrentSystem: "Sol", LastUpdated: time.Now(),
		})
	}))

	cfg := newTestConfigWatcher(t, "scheduler_delay: 1\n")
	channel := &chatmodel.FakeChannel{IDValue: "chan1"}
	poster := NewSummaryPoster(store, cfg, channel)
	poster.lastRun = time.Now().Add(-time.Hour)

	require.NoError(t, poster.tick(poster.lastRun, make(chan struct{})))

	require.Len(t, channel.Sent, 1)
	assert.Contains(t, channel.Sent[0], "K2X-44F")
	assert.Contains(t, channel.Sent[0], "Sol")
}

// with no carrier movement since the window start, no post is made.
func TestSummaryPosterSkipsWhenNothingMoved(t *testing.T) {
	store := newTestStore(t)

	cfg := newTestConfigWatcher(t, "scheduler_delay: 1\n")
	channel := &chatmodel.FakeChannel{IDValue: "chan1"}
	poster := NewSummaryPoster(store, cfg, channel)

	require.NoError(t, poster.tick(time.Now().Add(-time.Hour), make(chan struct{})))
	assert.Empty(t, channel.Sent)
}

// a carrier with no override older than the reap window is deleted on tick.
func TestSummaryPosterReapsStaleCarriers(t *testing.T) {
	store := newTestStore(t)
	stale := time.Now().Add(-ReapWindow - time.Hour)
	require.NoError(t, withStoreSession(t, store, func(sess *storage.Session) error {
		return sess.RegisterCarrierRoster("OLD-001", "EWING", stale)
	}))

	cfg := newTestConfigWatcher(t, "scheduler_delay: 1\n")
	poster := NewSummaryPoster(store, cfg, nil)

	require.NoError(t, poster.reapStale())

	err := withStoreSession(t, store, func(sess *storage.Session) error {
		_, err := sess.GetTrackedCarrier("OLD-001")
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}
