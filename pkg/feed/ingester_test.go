package feed

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogbot/cogbot/pkg/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.Open(filepath.Join(dir, "primary.db"), filepath.Join(dir, "reference.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func withStoreSession(t *testing.T, s *storage.Store, fn func(sess *storage.Session) error) error {
	t.Helper()
	sess, err := s.Begin(context.Background())
	require.NoError(t, err)
	err = fn(sess)
	sess.Finish(&err)
	return err
}

func journalMessage(t *testing.T, body Body) Message {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return Message{
		SchemaRef: "https://eddn.edcd.io/schemas/journal/1",
		Header:    Header{SoftwareName: "test-client"},
		Raw:       raw,
	}
}

// runIngester starts ing in the background, lets it run for dur, then
// stops it and waits for Run to return, failing the test if it doesn't
// observe stopCh within a reasonable margin.
func runIngester(t *testing.T, ing *Ingester, dur time.Duration) {
	t.Helper()
	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() { ing.Run(stopCh); close(done) }()

	time.Sleep(dur)
	close(stopCh)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingester did not stop after stopCh closed")
	}
}

// a carrier sighted in a watched system is recorded in TrackedCarrier.
func TestIngesterCorrelatesTrackedCarrier(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, withStoreSession(t, store, func(sess *storage.Session) error {
		return sess.AddTrackedSystem("Sol", 0, nil)
	}))

	ch := make(chan Message, 1)
	ch <- journalMessage(t, Body{Event: "Location", StarSystem: "Sol", StationName: "K2X-44F", StationType: "FleetCarrier"})

	runIngester(t, NewIngester(NewFakeSource(ch), store, nil), 50*time.Millisecond)

	err := withStoreSession(t, store, func(sess *storage.Session) error {
		c, err := sess.GetTrackedCarrier("K2X-44F")
		require.NoError(t, err)
		assert.Equal(t, "Sol", c.CurrentSystem)
		return nil
	})
	require.NoError(t, err)
}

// a carrier sighted in an unwatched system with no override is ignored.
func TestIngesterIgnoresUntrackedCarrier(t *testing.T) {
	store := newTestStore(t)

	ch := make(chan Message, 1)
	ch <- journalMessage(t, Body{Event: "Location", StarSystem: "Deciat", StationName: "ABC-123", StationType: "FleetCarrier"})

	runIngester(t, NewIngester(NewFakeSource(ch), store, nil), 50*time.Millisecond)

	err := withStoreSession(t, store, func(sess *storage.Session) error {
		_, err := sess.GetTrackedCarrier("ABC-123")
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

// a non-carrier station in a watched system is not recorded as a carrier.
func TestIngesterIgnoresNonCarrierStations(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, withStoreSession(t, store, func(sess *storage.Session) error {
		return sess.AddTrackedSystem("Sol", 0, nil)
	}))

	ch := make(chan Message, 1)
	ch <- journalMessage(t, Body{Event: "Location", StarSystem: "Sol", StationName: "Abraham Lincoln", StationType: "Coriolis"})

	runIngester(t, NewIngester(NewFakeSource(ch), store, nil), 50*time.Millisecond)

	err := withStoreSession(t, store, func(sess *storage.Session) error {
		carriers, err := sess.ListTrackedCarriers()
		require.NoError(t, err)
		assert.Empty(t, carriers)
		return nil
	})
	require.NoError(t, err)
}

// a previously-seen carrier with an override is tracked even once it
// leaves every watched system.
func TestIngesterHonorsOverride(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, withStoreSession(t, store, func(sess *storage.Session) error {
		if err := sess.RegisterCarrierRoster("OVE-111", "EWING", time.Now()); err != nil {
			return err
		}
		return sess.SetTrackedCarrierOverride("OVE-111", true)
	}))

	ch := make(chan Message, 1)
	ch <- journalMessage(t, Body{Event: "Location", StarSystem: "Nanomam", StationName: "OVE-111", StationType: "FleetCarrier"})

	runIngester(t, NewIngester(NewFakeSource(ch), store, nil), 50*time.Millisecond)

	err := withStoreSession(t, store, func(sess *storage.Session) error {
		c, err := sess.GetTrackedCarrier("OVE-111")
		require.NoError(t, err)
		assert.Equal(t, "Nanomam", c.CurrentSystem)
		return nil
	})
	require.NoError(t, err)
}

// messages on a schema other than journal/1 are not interpreted but do
// not crash the ingester.
func TestIngesterSkipsOtherSchemas(t *testing.T) {
	store := newTestStore(t)

	ch := make(chan Message, 1)
	ch <- Message{SchemaRef: "https://eddn.edcd.io/schemas/commodity/3", Raw: json.RawMessage(`{"some":"thing"}`)}

	runIngester(t, NewIngester(NewFakeSource(ch), store, nil), 50*time.Millisecond)
}

// Run returns promptly once stopCh closes, even mid reconnect-backoff.
func TestIngesterStopsDuringBackoff(t *testing.T) {
	store := newTestStore(t)
	src := NewFakeSource()
	src.FailNextSubscribe(errSubscribeFailed{})

	ing := NewIngester(src, store, nil)
	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() { ing.Run(stopCh); close(done) }()

	close(stopCh)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingester did not observe stopCh during reconnect backoff")
	}
}

// a spy snapshot message upserts every table it carries into the
// reference database.
func TestIngesterIngestsSpySnapshot(t *testing.T) {
	store := newTestStore(t)

	raw, err := json.Marshal(spySnapshotBody{
		Systems: []spySystemEntry{{SystemName: "Nanomam", ControllingPower: "Zemina Torval", UpdatedAt: time.Now().UTC()}},
		Votes:   []spyVoteEntry{{SystemName: "Nanomam", Power: "Zemina Torval", Percent: 62.5, UpdatedAt: time.Now().UTC()}},
		Preps:   []spyPrepEntry{{SystemName: "Nanomam", Power: "Zemina Torval", Merits: 12000, UpdatedAt: time.Now().UTC()}},
		Traffic: []spyTrafficEntry{{SystemName: "Nanomam", Traffic: 340, UpdatedAt: time.Now().UTC()}},
		Bounties: []spyBountyEntry{
			{SystemName: "Nanomam", CmdrName: "EWING", Bounty: 500000, UpdatedAt: time.Now().UTC()},
		},
	})
	require.NoError(t, err)

	ch := make(chan Message, 1)
	ch <- Message{SchemaRef: "https://cogbot.internal/schemas/spy_squirrel/1", Raw: raw}

	runIngester(t, NewIngester(NewFakeSource(ch), store, nil), 50*time.Millisecond)

	sys, err := store.GetSpySystem(context.Background(), "Nanomam")
	require.NoError(t, err)
	assert.Equal(t, "Zemina Torval", sys.ControllingPower)

	votes, err := store.ListSpyVotes(context.Background(), "Nanomam")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.InDelta(t, 62.5, votes[0].Percent, 0.001)

	preps, err := store.ListSpyPreps(context.Background(), "Nanomam")
	require.NoError(t, err)
	require.Len(t, preps, 1)
	assert.Equal(t, 12000, preps[0].Merits)

	traffic, err := store.GetSpyTraffic(context.Background(), "Nanomam")
	require.NoError(t, err)
	assert.Equal(t, 340, traffic.Traffic)

	bounties, err := store.ListSpyBounties(context.Background(), "Nanomam")
	require.NoError(t, err)
	require.Len(t, bounties, 1)
	assert.Equal(t, "EWING", bounties[0].CmdrName)
}

type errSubscribeFailed struct{}

func (errSubscribeFailed) Error() string { return "subscribe failed" }
