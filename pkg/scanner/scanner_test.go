package scanner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "primary.db"), filepath.Join(dir, "reference.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func withSession(t *testing.T, s *storage.Store, fn func(sess *storage.Session) error) error {
	t.Helper()
	sess, err := s.Begin(context.Background())
	require.NoError(t, err)
	err = fn(sess)
	sess.Finish(&err)
	return err
}

// blankGrid builds a rows x cols grid of empty strings, the base every
// fixture below fills in by row/column index.
func blankGrid(rows, cols int) [][]string {
	grid := make([][]string, rows)
	for r := range grid {
		grid[r] = make([]string, cols)
	}
	return grid
}

func TestTransposeIsSelfInverseOnSquareGrid(t *testing.T) {
	grid := [][]string{{"a", "b"}, {"c", "d"}}
	got := transpose(transpose(grid))
	assert.Equal(t, grid, got)
}

func TestTransposePadsRaggedRows(t *testing.T) {
	grid := [][]string{{"a", "b", "c"}, {"d"}}
	got := transpose(grid)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "d"}, got[0])
	assert.Equal(t, []string{"b", ""}, got[1])
	assert.Equal(t, []string{"c", ""}, got[2])
}
