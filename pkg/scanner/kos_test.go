package scanner

import (
	"context"
	"testing"

	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kosFixture() *sheets.FakeDocument {
	grid := blankGrid(3, 4)
	grid[1] = []string{"Alice", "XYZ", "5", "friendly"}
	grid[2] = []string{"Bob", "ABC", "bad", "hostile"}
	return &sheets.FakeDocument{Cells: grid}
}

func TestKosScannerParsesEntries(t *testing.T) {
	store := newTestStore(t)
	doc := kosFixture()
	scan := NewKosScanner(doc)

	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess)
	})
	require.NoError(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		entries, err := sess.ListKosEntries()
		require.NoError(t, err)
		require.Len(t, entries, 2)

		byName := map[string]bool{}
		reasons := map[string]string{}
		for _, e := range entries {
			byName[e.CmdrName] = e.Friendly
			reasons[e.CmdrName] = e.Reason
		}
		assert.True(t, byName["Alice"])
		assert.False(t, byName["Bob"])
		assert.Equal(t, "5", reasons["Alice"])
		assert.Equal(t, "0", reasons["Bob"])
		return nil
	})
	require.NoError(t, err)
}

func TestKosScannerFailsWholeScanOnDuplicateCmdr(t *testing.T) {
	store := newTestStore(t)
	doc := kosFixture()
	doc.Cells[2][0] = "alice" // duplicates row 2's "Alice", case-insensitively

	scan := NewKosScanner(doc)
	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess)
	})
	require.Error(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		entries, err := sess.ListKosEntries()
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	})
	require.NoError(t, err)
}
