package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// umSystemStartCol is the 0-based column index of the first system pair
// (column D).
const umSystemStartCol = 3

// umUserStartRow is the 1-based row holding the first contributor,
// shared by the contributor list and the hold matrix beneath it.
const umUserStartRow = 14

// umHoldStartRow is the 1-based row the held/redeemed matrix begins at —
// the same row as umUserStartRow.
const umHoldStartRow = umUserStartRow

// UndermineScanner parses one undermining worksheet (main or snipe):
// target pairs of columns, contributor rows, and the held/redeemed
// matrix beneath each target.
type UndermineScanner struct {
	Scanner
	Kind types.UmSheetKind
}

// NewUndermineScanner wraps doc for scanning the given undermining sheet.
func NewUndermineScanner(doc sheets.Document, kind types.UmSheetKind) *UndermineScanner {
	return &UndermineScanner{
		Scanner: Scanner{Doc: doc, Logger: log.WithComponent("scanner.undermine").With().Str("sheet_kind", string(kind)).Logger()},
		Kind:    kind,
	}
}

// Scan refreshes the cells, parses the full sheet, and replaces every
// row owned by this sheet kind.
func (s *UndermineScanner) Scan(ctx context.Context, sess *storage.Session) error {
	if err := s.UpdateCells(ctx); err != nil {
		return err
	}

	targets := s.targets()
	users, err := s.users()
	if err != nil {
		return err
	}
	holds := s.holds(targets, users)

	if err := sess.DeleteUmScanned(s.Kind); err != nil {
		return fmt.Errorf("drop owned rows: %w", err)
	}

	for _, t := range targets {
		if err := sess.CreateUmTarget(t); err != nil {
			return err
		}
	}
	for _, c := range users {
		if err := sess.CreateUmContributor(c); err != nil {
			return err
		}
	}
	for _, h := range holds {
		if err := sess.CreateUmContribution(h); err != nil {
			return err
		}
	}

	s.Logger.Info().Int("targets", len(targets)).Int("contributors", len(users)).Msg("undermine scan complete")
	return nil
}

// targets parses adjacent column pairs starting at column D, stopping at
// the first pair whose header cell is blank or names a "Template" slot.
func (s *UndermineScanner) targets() []*types.UmTarget {
	var found []*types.UmTarget
	sysInd := umSystemStartCol
	for {
		main := umHeaderSlice(s.col(sysInd))
		sec := umHeaderSlice(s.col(sysInd + 1))

		name := strings.TrimSpace(main[8])
		if name == "" || strings.Contains(name, "Template") {
			break
		}

		column := sheets.IndexToColumn(sysInd + 1)
		found = append(found, parseUmHeader(main, sec, s.Kind, column))
		sysInd += 2
	}
	return found
}

// umHeaderSlice returns the first 13 header-row cells of col, padded so
// index access in parseUmHeader never panics on a ragged column.
func umHeaderSlice(col []string) [13]string {
	var out [13]string
	for i := 0; i < 13 && i < len(col); i++ {
		out[i] = col[i]
	}
	return out
}

// parseUmHeader maps a target's main/secondary header cells onto a
// UmTarget: 1 expansion trigger, 3 goal, 6 security|notes, 7 close
// control|priority, 8 name, 9 our progress, 10 their progress, 12 map
// offset. The subkind is read off the title cell (main[0]): an "Exp"
// prefix marks an expansion system, any other non-blank title marks an
// opposed system, and a blank title marks a plain control system.
func parseUmHeader(main, sec [13]string, kind types.UmSheetKind, column string) *types.UmTarget {
	title := strings.TrimSpace(main[0])
	subkind := types.UmSubkindControl
	switch {
	case strings.HasPrefix(title, "Exp"):
		subkind = types.UmSubkindExpansion
	case title != "":
		subkind = types.UmSubkindOppose
	}

	return &types.UmTarget{
		SheetKind:        kind,
		Name:             strings.TrimSpace(main[8]),
		Subkind:          subkind,
		SheetColumn:      column,
		ExpansionTrigger: parseIntTolerant(main[1]),
		Goal:             parseIntTolerant(main[3]),
		Security:         strings.ReplaceAll(strings.TrimSpace(main[6]), "Sec: ", ""),
		Notes:            strings.TrimSpace(sec[6]),
		CloseControl:     strings.TrimSpace(main[7]),
		Priority:         strings.TrimSpace(sec[7]),
		ProgressUs:       parseIntTolerant(main[9]),
		ProgressThem:     parsePercent(main[10]),
		MapOffset:        parseIntTolerant(main[12]),
	}
}

// users parses contributor rows the same way the fort scanner does, just
// starting at umUserStartRow.
func (s *UndermineScanner) users() ([]*types.UmContributor, error) {
	rows, err := s.parseContributorRows("undermine", umUserStartRow)
	if err != nil {
		return nil, err
	}
	found := make([]*types.UmContributor, len(rows))
	for i, r := range rows {
		found[i] = &types.UmContributor{SheetKind: s.Kind, Name: r.Name, Row: r.Row, BattleCry: r.BattleCry}
	}
	return found, nil
}

// holds reads the held/redeemed pair beneath each target column, aligned
// row-for-row with users (both start at the same sheet row).
func (s *UndermineScanner) holds(targets []*types.UmTarget, users []*types.UmContributor) []*types.UmContribution {
	var found []*types.UmContribution
	for _, target := range targets {
		idx := sheets.ColumnToIndex(target.SheetColumn) - 1
		heldCol := s.col(idx)
		redeemedCol := s.col(idx + 1)

		for ui, user := range users {
			cellIdx := umHoldStartRow - 1 + ui
			heldRaw := strings.TrimSpace(cellAt(heldCol, cellIdx))
			redeemedRaw := strings.TrimSpace(cellAt(redeemedCol, cellIdx))
			if heldRaw == "" && redeemedRaw == "" {
				continue
			}
			found = append(found, &types.UmContribution{
				SheetKind:     target.SheetKind,
				ContributorID: user.ID,
				TargetID:      target.ID,
				Held:          parseIntTolerant(heldRaw),
				Redeemed:      parseIntTolerant(redeemedRaw),
			})
		}
	}
	return found
}
