package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogbot/cogbot/pkg/catalog"
	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/config"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/supervisor"
	"github.com/cogbot/cogbot/pkg/types"
	"github.com/cogbot/cogbot/pkg/workerpool"
)

func newTestConfig(t *testing.T) *config.Watcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"command_prefix: \"!\"\nmax_drop: 5000\ndefer_missing: 1\nreply_ttl: 0\n",
	), 0o644))
	w, err := config.NewWatcher(path)
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.Open(filepath.Join(dir, "primary.db"), filepath.Join(dir, "reference.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pool := workerpool.New(workerpool.Config{Workers: 2})
	t.Cleanup(pool.Stop)

	systems := catalog.NewFakeSystems(
		catalog.SystemCoord{Name: "Sol", X: 0, Y: 0, Z: 0},
		catalog.SystemCoord{Name: "Othime", X: 1, Y: 0, Z: 0},
	)

	return New(store, newTestConfig(t), systems, &catalog.FakeStations{}, pool, supervisor.New())
}

func newEvent(authorID, authorName, content string, mentions ...chatmodel.User) *chatmodel.FakeEvent {
	return &chatmodel.FakeEvent{
		AuthorUser:   &chatmodel.FakeUser{IDValue: authorID, Name: authorName},
		ChannelValue: &chatmodel.FakeChannel{IDValue: "chan1", Guild: "guild1"},
		GuildValue:   &chatmodel.FakeGuild{IDValue: "guild1"},
		ContentValue: content,
		MentionUsers: mentions,
	}
}

var seededFortColumn = byte('B')

func seedFortTarget(t *testing.T, store *storage.Store, name string, trigger int) {
	t.Helper()
	seededFortColumn++
	col := string(seededFortColumn)
	err := withSession(t, store, func(sess *storage.Session) error {
		return sess.CreateFortTarget(&types.FortTarget{
			Name: name, Kind: types.FortTargetFort, Trigger: trigger,
			SheetColumn: col, SheetOrder: int(seededFortColumn),
		})
	})
	require.NoError(t, err)
}

func withSession(t *testing.T, s *storage.Store, fn func(sess *storage.Session) error) error {
	t.Helper()
	sess, err := s.Begin(context.Background())
	require.NoError(t, err)
	err = fn(sess)
	sess.Finish(&err)
	return err
}

// scenario 1 (spec.md §8): a drop that crosses trigger fortifies the
// target, creates the contributor on first sight, and replies with a
// congratulations line.
func TestDispatchDropFortifiesTarget(t *testing.T) {
	d := newTestDispatcher(t)
	seedFortTarget(t, d.Store, "Othime", 5000)

	event := newEvent("u1", "CMDR Alice", "!drop 5000 Othime")
	d.Dispatch(context.Background(), event)

	require.Len(t, event.ChannelValue.Sent, 1)
	reply := event.ChannelValue.Sent[0]
	assert.Contains(t, reply, "CMDR Alice dropped 5000 on Othime")
	assert.Contains(t, reply, "is fortified!")
}

// a drop that does not reach trigger gets a plain status reply and no
// congratulations line.
func TestDispatchDropBelowTrigger(t *testing.T) {
	d := newTestDispatcher(t)
	seedFortTarget(t, d.Store, "Othime", 5000)

	event := newEvent("u1", "CMDR Alice", "!drop 1000 Othime")
	d.Dispatch(context.Background(), event)

	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "1000/5000")
	assert.NotContains(t, event.ChannelValue.Sent[0], "fortified!")
}

// scenario: an unknown command gets a help-pointer reply rather than
// being silently dropped.
func TestDispatchUnknownCommand(t *testing.T) {
	d := newTestDispatcher(t)
	event := newEvent("u1", "CMDR Alice", "!bogus")
	d.Dispatch(context.Background(), event)

	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "unknown command")
}

// a message without the configured prefix is ignored entirely.
func TestDispatchIgnoresUnprefixedContent(t *testing.T) {
	d := newTestDispatcher(t)
	event := newEvent("u1", "CMDR Alice", "just chatting")
	d.Dispatch(context.Background(), event)
	assert.Empty(t, event.ChannelValue.Sent)
}

// scenario 2 (spec.md §8): hold then redeem moves held merits into
// redeemed for the acting user.
func TestDispatchHoldThenRedeem(t *testing.T) {
	d := newTestDispatcher(t)
	err := withSession(t, d.Store, func(sess *storage.Session) error {
		return sess.CreateUmTarget(&types.UmTarget{
			SheetKind: types.UmSheetMain, Name: "Othime", Subkind: types.UmSubkindControl,
			SheetColumn: "B", Goal: 10000,
		})
	})
	require.NoError(t, err)

	event := newEvent("u1", "CMDR Bob", "!hold 500 Othime")
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "CMDR Bob now holds 500 on Othime")
	assert.Contains(t, event.ChannelValue.Sent[0], "achievement unlocked: first hold")

	event2 := newEvent("u1", "CMDR Bob", "!hold --redeem")
	d.Dispatch(context.Background(), event2)
	require.Len(t, event2.ChannelValue.Sent, 1)
	assert.Contains(t, event2.ChannelValue.Sent[0], "redeemed 500 merits across 1 system(s)")
	assert.Contains(t, event2.ChannelValue.Sent[0], "Othime: 500")
}

// scenario 2 (spec.md §8), multi-system case: redeeming held merits
// across more than one system lists each system with its own moved
// amount, not just the aggregate total.
func TestDispatchHoldThenRedeemListsEverySystem(t *testing.T) {
	d := newTestDispatcher(t)
	err := withSession(t, d.Store, func(sess *storage.Session) error {
		if err := sess.CreateUmTarget(&types.UmTarget{
			SheetKind: types.UmSheetMain, Name: "Othime", Subkind: types.UmSubkindControl,
			SheetColumn: "B", Goal: 10000,
		}); err != nil {
			return err
		}
		return sess.CreateUmTarget(&types.UmTarget{
			SheetKind: types.UmSheetMain, Name: "Nanomam", Subkind: types.UmSubkindControl,
			SheetColumn: "C", Goal: 8000,
		})
	})
	require.NoError(t, err)

	d.Dispatch(context.Background(), newEvent("u1", "CMDR Bob", "!hold 500 Othime"))
	d.Dispatch(context.Background(), newEvent("u1", "CMDR Bob", "!hold 300 Nanomam"))

	event := newEvent("u1", "CMDR Bob", "!hold --redeem")
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	reply := event.ChannelValue.Sent[0]
	assert.Contains(t, reply, "redeemed 800 merits across 2 system(s)")
	assert.Contains(t, reply, "Othime: 500")
	assert.Contains(t, reply, "Nanomam: 300")
}

// scenario 3 (spec.md §8): a manual fort order set via --order is
// reflected in storage.
func TestDispatchFortOrderOverride(t *testing.T) {
	d := newTestDispatcher(t)
	seedFortTarget(t, d.Store, "Othime", 5000)
	seedFortTarget(t, d.Store, "Sol", 4000)

	event := newEvent("admin1", "Leader", "!fort --order Sol,Othime")
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "manual fort order set: Sol, Othime")

	err := withSession(t, d.Store, func(sess *storage.Session) error {
		overrides, lerr := sess.ListFortOrderOverrides()
		require.NoError(t, lerr)
		require.Len(t, overrides, 2)
		assert.Equal(t, "Sol", overrides[0].TargetName)
		assert.Equal(t, "Othime", overrides[1].TargetName)
		return nil
	})
	require.NoError(t, err)
}

// scenario 6 (spec.md §8): only a longer-serving admin may remove
// another admin.
func TestDispatchAdminRemoveRequiresSeniority(t *testing.T) {
	d := newTestDispatcher(t)
	err := withSession(t, d.Store, func(sess *storage.Session) error {
		if err := sess.AddAdmin("senior"); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
		return sess.AddAdmin("junior")
	})
	require.NoError(t, err)

	event := newEvent("senior", "Senior", "!admin remove junior")
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "no longer an admin")

	event2 := newEvent("senior", "Senior", "!admin add junior")
	d.Dispatch(context.Background(), event2)
	require.Len(t, event2.ChannelValue.Sent, 1)
	assert.Contains(t, event2.ChannelValue.Sent[0], "is now an admin")

	event3 := newEvent("junior", "Junior", "!admin remove senior")
	d.Dispatch(context.Background(), event3)
	require.Len(t, event3.ChannelValue.Sent, 1)
	assert.Contains(t, event3.ChannelValue.Sent[0], "only a longer-serving admin")
}

// a permission gate scoped to another channel denies the command.
func TestDispatchChannelPermissionDenies(t *testing.T) {
	d := newTestDispatcher(t)
	err := withSession(t, d.Store, func(sess *storage.Session) error {
		return sess.AllowChannel("drop", "guild1", "other-chan")
	})
	require.NoError(t, err)
	seedFortTarget(t, d.Store, "Othime", 5000)

	event := newEvent("u1", "CMDR Alice", "!drop 1000 Othime")
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "don't have permission")
}

// admin-only commands are denied to non-admins.
func TestDispatchAdminOnlyDeniesNonAdmin(t *testing.T) {
	d := newTestDispatcher(t)
	event := newEvent("u1", "CMDR Alice", "!track show")
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "don't have permission")
}

// the acting-user resolution rule (spec.md §4.4): a single mention
// delegates authority to the mentioned user.
func TestDispatchActingUserMention(t *testing.T) {
	d := newTestDispatcher(t)
	delegate := &chatmodel.FakeUser{IDValue: "u2", Name: "CMDR Carol"}
	event := newEvent("u1", "CMDR Alice", "!user @carol", delegate)
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "CMDR Carol")
}

// more than one mention is a user error, not a crash.
func TestDispatchTooManyMentionsIsUserError(t *testing.T) {
	d := newTestDispatcher(t)
	a := &chatmodel.FakeUser{IDValue: "u2", Name: "A"}
	b := &chatmodel.FakeUser{IDValue: "u3", Name: "B"}
	event := newEvent("u1", "CMDR Alice", "!user", a, b)
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "more than one mention")
}

// help always produces a reply even with no args.
func TestDispatchHelp(t *testing.T) {
	d := newTestDispatcher(t)
	event := newEvent("u1", "CMDR Alice", "!help")
	d.Dispatch(context.Background(), event)
	require.Len(t, event.ChannelValue.Sent, 1)
	assert.Contains(t, event.ChannelValue.Sent[0], "commands:")
	assert.Contains(t, event.ChannelValue.Sent[0], "fort —")
}
