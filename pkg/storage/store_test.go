package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cogbot/cogbot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "primary.db"), filepath.Join(dir, "reference.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func withSession(t *testing.T, s *Store, fn func(sess *Session) error) error {
	t.Helper()
	ctx := context.Background()
	sess, err := s.Begin(ctx)
	require.NoError(t, err)
	err = fn(sess)
	sess.Finish(&err)
	return err
}

func TestFindChatUserByName(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *Session) error {
		require.NoError(t, sess.CreateChatUser(&types.ChatUser{ID: "1", PreferredName: "Commander Shepard"}))
		require.NoError(t, sess.CreateChatUser(&types.ChatUser{ID: "2", PreferredName: "Commander Vasir"}))
		return nil
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		needle string
		err    error
	}{
		{"unambiguous", "shepard", nil},
		{"whitespace and case insensitive", "  COMMANDERSHEPARD ", nil},
		{"ambiguous", "commander", ErrMoreThanOneMatch},
		{"no match", "nonexistent", ErrNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := withSession(t, s, func(sess *Session) error {
				u, err := sess.FindChatUserByName(tt.needle)
				if tt.err == nil {
					require.NoError(t, err)
					assert.NotNil(t, u)
				}
				return err
			})
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmptyTablesPreservesPermanentByDefault(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *Session) error {
		if err := sess.CreateFortContributor(&types.FortContributor{Name: "a", Row: 1}); err != nil {
			return err
		}
		return sess.AddAdmin("admin-1")
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		return sess.EmptyTables(false)
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		contributors, err := sess.ListFortContributors()
		if err != nil {
			return err
		}
		assert.Empty(t, contributors)

		admins, err := sess.ListAdmins()
		if err != nil {
			return err
		}
		assert.Len(t, admins, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestEmptyTablesIncludePermanent(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *Session) error {
		return sess.AddAdmin("admin-1")
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		return sess.EmptyTables(true)
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		admins, err := sess.ListAdmins()
		if err != nil {
			return err
		}
		assert.Empty(t, admins)
		return nil
	})
	require.NoError(t, err)
}

func TestApplyFortDropClampsAtZero(t *testing.T) {
	s := newTestStore(t)

	var contributorID, targetID int64
	err := withSession(t, s, func(sess *Session) error {
		c := &types.FortContributor{Name: "a", Row: 1}
		if err := sess.CreateFortContributor(c); err != nil {
			return err
		}
		contributorID = c.ID
		target := &types.FortTarget{Name: "Sol", Kind: types.FortTargetFort, Trigger: 5000, SheetColumn: "C", SheetOrder: 1}
		if err := sess.CreateFortTarget(target); err != nil {
			return err
		}
		targetID = target.ID
		return nil
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		c, err := sess.ApplyFortDrop(contributorID, targetID, 100)
		if err != nil {
			return err
		}
		assert.Equal(t, 100, c.Amount)
		return nil
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		c, err := sess.ApplyFortDrop(contributorID, targetID, -500)
		if err != nil {
			return err
		}
		assert.Equal(t, 0, c.Amount)
		return nil
	})
	require.NoError(t, err)
}

func TestReplaceFortOrderRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *Session) error {
		return sess.ReplaceFortOrder([]string{"Sol", "Sol"})
	})
	require.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestReplaceFortOrderEmptyClears(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *Session) error {
		return sess.ReplaceFortOrder([]string{"Sol", "Achenar"})
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		order, err := sess.ListFortOrderOverrides()
		if err != nil {
			return err
		}
		assert.Len(t, order, 2)
		assert.Equal(t, 1, order[0].Ordinal)
		assert.Equal(t, "Sol", order[0].TargetName)
		return nil
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		return sess.ReplaceFortOrder(nil)
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		order, err := sess.ListFortOrderOverrides()
		if err != nil {
			return err
		}
		assert.Empty(t, order)
		return nil
	})
	require.NoError(t, err)
}

func TestGlobalUpdatedAtMonotonic(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	err := withSession(t, s, func(sess *Session) error {
		return sess.PutGlobal(&types.Global{Cycle: 1, Consolidation: 0.1, UpdatedAt: now})
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		return sess.PutGlobal(&types.Global{Cycle: 1, Consolidation: 0.2, UpdatedAt: now.Add(-time.Minute)})
	})
	require.Error(t, err)

	err = withSession(t, s, func(sess *Session) error {
		g, err := sess.GetGlobal()
		if err != nil {
			return err
		}
		assert.Equal(t, 0.1, g.Consolidation)
		return nil
	})
	require.NoError(t, err)
}

func TestAdminSeniority(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *Session) error {
		if err := sess.AddAdmin("senior"); err != nil {
			return err
		}
		time.Sleep(time.Millisecond)
		return sess.AddAdmin("junior")
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		ok, err := sess.IsSeniorAdmin("senior", "junior")
		if err != nil {
			return err
		}
		assert.True(t, ok)

		ok, err = sess.IsSeniorAdmin("junior", "senior")
		if err != nil {
			return err
		}
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestDuplicateCmdrNames(t *testing.T) {
	dups := DuplicateCmdrNames([]string{"CMDR Smith", "cmdr smith", "CMDR Jones"})
	assert.Len(t, dups, 1)
	for _, names := range dups {
		assert.ElementsMatch(t, []string{"CMDR Smith", "cmdr smith"}, names)
	}
}

func TestTrackedSystemOverlapUnionAndSubtract(t *testing.T) {
	s := newTestStore(t)

	err := withSession(t, s, func(sess *Session) error {
		if err := sess.AddTrackedSystem("Alpha", 15, []string{"Beta", "Gamma"}); err != nil {
			return err
		}
		return sess.AddTrackedSystem("Delta", 15, []string{"Beta"})
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		tracked, err := sess.IsTrackedSystem("Beta")
		if err != nil {
			return err
		}
		assert.True(t, tracked)
		return nil
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		return sess.RemoveTrackedSystem("Alpha", []string{"Beta", "Gamma"})
	})
	require.NoError(t, err)

	err = withSession(t, s, func(sess *Session) error {
		stillBeta, err := sess.IsTrackedSystem("Beta")
		if err != nil {
			return err
		}
		assert.True(t, stillBeta, "Beta remains covered by Delta")

		gamma, err := sess.IsTrackedSystem("Gamma")
		if err != nil {
			return err
		}
		assert.False(t, gamma, "Gamma had only Alpha covering it")
		return nil
	})
	require.NoError(t, err)
}

func TestReferenceSnapshotOverwriteOnlyIfNewer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.PutSpySystem(ctx, &types.SpySystem{SystemName: "Sol", ControllingPower: "A", UpdatedAt: now}))
	require.NoError(t, s.PutSpySystem(ctx, &types.SpySystem{SystemName: "Sol", ControllingPower: "B", UpdatedAt: now.Add(-time.Hour)}))

	sys, err := s.GetSpySystem(ctx, "Sol")
	require.NoError(t, err)
	assert.Equal(t, "A", sys.ControllingPower, "older snapshot must not overwrite newer")
}
