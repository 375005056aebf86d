package scanner

import (
	"context"
	"testing"

	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fortFixture builds a 5-column (A-E), 12-row worksheet: column D is an
// inactive ("TBA") prep slot, column E is the one live system "Sol", and
// rows 11-12 hold two contributors with drops against Sol.
func fortFixture() *sheets.FakeDocument {
	grid := blankGrid(12, 5)

	// header rows 0-8 for the Sol column (index 4)
	grid[0][4] = "0.25"  // undermine %
	grid[1][4] = "0"     // fort override %
	grid[2][4] = "4822"  // trigger
	grid[5][4] = "0"     // manual fort status
	grid[6][4] = "0"     // manual um status
	grid[7][4] = "120.5" // distance

	// row 9 (header index 9): TBA marker / name row
	grid[9] = []string{"", "", "", "TBA", "Sol"}

	// contributor rows
	grid[10] = []string{"o7", "Alice", "", "", "5000"}
	grid[11] = []string{"hi", "Bob", "", "", "3000"}

	return &sheets.FakeDocument{Cells: grid}
}

func TestFortScannerParsesSystemAndContributors(t *testing.T) {
	store := newTestStore(t)
	doc := fortFixture()
	scan := NewFortScanner(doc)

	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess)
	})
	require.NoError(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		targets, err := sess.ListFortTargets()
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "Sol", targets[0].Name)
		assert.Equal(t, "E", targets[0].SheetColumn)
		assert.Equal(t, 4822, targets[0].Trigger)
		assert.InDelta(t, 0.25, targets[0].Undermine, 0.001)
		assert.InDelta(t, 120.5, targets[0].DistanceLy, 0.001)

		contributors, err := sess.ListFortContributors()
		require.NoError(t, err)
		require.Len(t, contributors, 2)
		assert.Equal(t, "Alice", contributors[0].Name)
		assert.Equal(t, 11, contributors[0].Row)
		assert.Equal(t, "Bob", contributors[1].Name)
		assert.Equal(t, 12, contributors[1].Row)

		sum, err := sess.SumFortContributions(targets[0].ID)
		require.NoError(t, err)
		assert.Equal(t, 8000, sum)
		return nil
	})
	require.NoError(t, err)
}

func TestFortScannerRescanReplacesRows(t *testing.T) {
	store := newTestStore(t)
	doc := fortFixture()
	scan := NewFortScanner(doc)

	run := func() error {
		return withSession(t, store, func(sess *storage.Session) error {
			return scan.Scan(context.Background(), sess)
		})
	}
	require.NoError(t, run())
	require.NoError(t, run())

	err := withSession(t, store, func(sess *storage.Session) error {
		targets, err := sess.ListFortTargets()
		require.NoError(t, err)
		assert.Len(t, targets, 1)
		contributors, err := sess.ListFortContributors()
		require.NoError(t, err)
		assert.Len(t, contributors, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestFortScannerDetectsDuplicateContributorNames(t *testing.T) {
	store := newTestStore(t)
	doc := fortFixture()
	doc.Cells[11][1] = "alice" // collides with row 11's "Alice", case-insensitively

	scan := NewFortScanner(doc)
	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess)
	})
	require.Error(t, err)
}
