package selector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
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

func TestFortCurrentDefaultOrder(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *storage.Session) error {
		if err := sess.CreateFortTarget(&types.FortTarget{
			Name: "Sol", Kind: types.FortTargetFort, Trigger: 1000, SheetColumn: "C", SheetOrder: 1,
		}); err != nil {
			return err
		}
		return sess.CreateFortTarget(&types.FortTarget{
			Name: "Rana", Kind: types.FortTargetFort, Trigger: 1000, SheetColumn: "D", SheetOrder: 2,
		})
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *storage.Session) error {
		current, err := FortCurrent(sess, 100)
		if err != nil {
			return err
		}
		require.Len(t, current, 1)
		assert.Equal(t, "Sol", current[0].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestFortCurrentHonorsManualOrder(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *storage.Session) error {
		for _, n := range []string{"Sol", "Rana"} {
			if err := sess.CreateFortTarget(&types.FortTarget{
				Name: n, Kind: types.FortTargetFort, Trigger: 1000, SheetColumn: "C" + n, SheetOrder: 1,
			}); err != nil {
				return err
			}
		}
		return sess.ReplaceFortOrder([]string{"Rana", "Sol"})
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *storage.Session) error {
		current, err := FortCurrent(sess, 100)
		if err != nil {
			return err
		}
		require.Len(t, current, 1)
		assert.Equal(t, "Rana", current[0].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestFortCurrentFallsBackAfterOverridesFortified(t *testing.T) {
	s := newTestStore(t)

	var solID, ranaID int64
	err := withSession(t, s, func(sess *storage.Session) error {
		sol := &types.FortTarget{Name: "Sol", Kind: types.FortTargetFort, Trigger: 100, SheetColumn: "C", SheetOrder: 1}
		if err := sess.CreateFortTarget(sol); err != nil {
			return err
		}
		solID = sol.ID
		rana := &types.FortTarget{Name: "Rana", Kind: types.FortTargetFort, Trigger: 100, SheetColumn: "D", SheetOrder: 2}
		if err := sess.CreateFortTarget(rana); err != nil {
			return err
		}
		ranaID = rana.ID
		return sess.ReplaceFortOrder([]string{"Sol", "Rana"})
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *storage.Session) error {
		contributor := &types.FortContributor{Name: "a", Row: 1}
		if err := sess.CreateFortContributor(contributor); err != nil {
			return err
		}
		if _, err := sess.ApplyFortDrop(contributor.ID, solID, 100); err != nil {
			return err
		}
		_, err := sess.ApplyFortDrop(contributor.ID, ranaID, 100)
		return err
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *storage.Session) error {
		current, err := FortCurrent(sess, 100)
		if err != nil {
			return err
		}
		assert.Empty(t, current, "both overrides fortified, no prep targets defined")
		return nil
	})
	require.NoError(t, err)
}

func TestFortDeferredBand(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *storage.Session) error {
		return sess.CreateFortTarget(&types.FortTarget{
			Name: "Sol", Kind: types.FortTargetFort, FortStatus: 950, Trigger: 1000, SheetColumn: "C", SheetOrder: 1,
		})
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *storage.Session) error {
		deferred, err := FortDeferred(sess, 100)
		if err != nil {
			return err
		}
		require.Len(t, deferred, 1)
		assert.Equal(t, "Sol", deferred[0].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestMeritsTieBreakStableByName(t *testing.T) {
	entries := []MeritsEntry{
		{Name: "Zeta", Merits: 500},
		{Name: "Alpha", Merits: 500},
		{Name: "Beta", Merits: 900},
	}
	sortRanked(entries)
	require.Len(t, entries, 3)
	assert.Equal(t, "Beta", entries[0].Name)
	assert.Equal(t, "Alpha", entries[1].Name)
	assert.Equal(t, "Zeta", entries[2].Name)
}
