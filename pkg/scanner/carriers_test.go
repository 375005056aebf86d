package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func carrierFixture() *sheets.FakeDocument {
	grid := blankGrid(3, 2)
	grid[1] = []string{"ab1-2c3", "Strike"}
	grid[2] = []string{"XYZ-999", "Support"}
	return &sheets.FakeDocument{Cells: grid}
}

func TestCarrierScannerRegistersRosterWithoutPosition(t *testing.T) {
	store := newTestStore(t)
	doc := carrierFixture()
	scan := NewCarrierScanner(doc)
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess, now)
	})
	require.NoError(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		carriers, err := sess.ListTrackedCarriers()
		require.NoError(t, err)
		require.Len(t, carriers, 2)

		c, err := sess.GetTrackedCarrier("AB1-2C3")
		require.NoError(t, err)
		assert.Equal(t, "Strike", c.Squad)
		assert.Equal(t, "", c.CurrentSystem)
		return nil
	})
	require.NoError(t, err)
}

func TestCarrierScannerDoesNotClobberKnownPosition(t *testing.T) {
	store := newTestStore(t)
	doc := carrierFixture()
	scan := NewCarrierScanner(doc)
	firstSeen := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess, firstSeen)
	})
	require.NoError(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		return sess.UpsertTrackedCarrier(&types.TrackedCarrier{
			ID:            "AB1-2C3",
			CurrentSystem: "Sol",
			LastUpdated:   firstSeen,
		})
	})
	require.NoError(t, err)

	laterScan := firstSeen.Add(time.Hour)
	err = withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess, laterScan)
	})
	require.NoError(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		c, err := sess.GetTrackedCarrier("AB1-2C3")
		require.NoError(t, err)
		assert.Equal(t, "Sol", c.CurrentSystem, "rescanning the roster must not clear a known carrier position")
		assert.Equal(t, "Strike", c.Squad)
		return nil
	})
	require.NoError(t, err)
}
