package scanner

import (
	"context"
	"testing"

	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// undermineFixture builds a 7-column (A-G), 15-row worksheet: one live
// target at D/E ("Nanomam", a plain control system since its title cell
// is blank), a Template pair at F/G that stops the target scan, and two
// contributors with held/redeemed entries against Nanomam.
func undermineFixture() *sheets.FakeDocument {
	grid := blankGrid(15, 7)

	grid[1][3] = "500"         // expansion trigger
	grid[3][3] = "3000"        // goal
	grid[6][3] = "Sec: Medium" // security
	grid[7][3] = "High"        // close control
	grid[8][3] = "Nanomam"     // name
	grid[9][3] = "100"         // progress us
	grid[10][3] = "50%"        // progress them
	grid[12][3] = "2"          // map offset

	grid[6][4] = "some notes" // secondary notes
	grid[7][4] = "P1"         // secondary priority

	grid[8][5] = "Template" // marks the clone-source pair at F/G

	grid[13] = []string{"gg", "Carol", "", "200", "50", "", ""}
	grid[14] = []string{"hf", "Dave", "", "", "100", "", ""}

	return &sheets.FakeDocument{Cells: grid}
}

func TestUndermineScannerParsesTargetAndHolds(t *testing.T) {
	store := newTestStore(t)
	doc := undermineFixture()
	scan := NewUndermineScanner(doc, types.UmSheetMain)

	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess)
	})
	require.NoError(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		targets, err := sess.ListUmTargets(types.UmSheetMain)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		target := targets[0]
		assert.Equal(t, "Nanomam", target.Name)
		assert.Equal(t, types.UmSubkindControl, target.Subkind)
		assert.Equal(t, "D", target.SheetColumn)
		assert.Equal(t, 3000, target.Goal)
		assert.Equal(t, "Medium", target.Security)
		assert.Equal(t, "High", target.CloseControl)
		assert.Equal(t, "some notes", target.Notes)
		assert.Equal(t, "P1", target.Priority)
		assert.InDelta(t, 0.5, target.ProgressThem, 0.001)

		contributors, err := sess.ListUmContributors(types.UmSheetMain)
		require.NoError(t, err)
		require.Len(t, contributors, 2)
		assert.Equal(t, "Carol", contributors[0].Name)
		assert.Equal(t, 14, contributors[0].Row)
		assert.Equal(t, "Dave", contributors[1].Name)
		assert.Equal(t, 15, contributors[1].Row)

		sum, err := sess.SumUmContribution(target.ID)
		require.NoError(t, err)
		assert.Equal(t, 350, sum)
		return nil
	})
	require.NoError(t, err)
}

func TestUndermineScannerStopsAtTemplateColumn(t *testing.T) {
	store := newTestStore(t)
	doc := undermineFixture()
	scan := NewUndermineScanner(doc, types.UmSheetSnipe)

	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess)
	})
	require.NoError(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		targets, err := sess.ListUmTargets(types.UmSheetSnipe)
		require.NoError(t, err)
		assert.Len(t, targets, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestUndermineScannerExpansionSubkind(t *testing.T) {
	store := newTestStore(t)
	doc := undermineFixture()
	doc.Cells[0][3] = "Exp"

	scan := NewUndermineScanner(doc, types.UmSheetMain)
	err := withSession(t, store, func(sess *storage.Session) error {
		return scan.Scan(context.Background(), sess)
	})
	require.NoError(t, err)

	err = withSession(t, store, func(sess *storage.Session) error {
		targets, err := sess.ListUmTargets(types.UmSheetMain)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, types.UmSubkindExpansion, targets[0].Subkind)
		return nil
	})
	require.NoError(t, err)
}
