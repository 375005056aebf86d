package scanner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/selector"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// fortHeaderRow is the 1-based row scanned to locate the first system
// column: the first non-"TBA" cell after a "TBA" cell marks the start of
// real systems.
const fortHeaderRow = 10

// fortUserStartRow is the first 1-based row holding a contributor.
const fortUserStartRow = 11

// FortScanner parses the fortification worksheet: the prep block, the
// fort systems proper, every contributor row, and the drop matrix
// beneath each system column.
type FortScanner struct {
	Scanner
	systemCol string
}

// NewFortScanner wraps doc for fortification scanning.
func NewFortScanner(doc sheets.Document) *FortScanner {
	return &FortScanner{Scanner: Scanner{Doc: doc, Logger: log.WithComponent("scanner.fort")}}
}

// Scan refreshes the cells, parses the full sheet, and replaces every
// fort-owned row in dependency order: contributors and targets first,
// then the contributions that reference their ids.
func (s *FortScanner) Scan(ctx context.Context, sess *storage.Session) error {
	if err := s.UpdateCells(ctx); err != nil {
		return err
	}

	systemCol, err := s.systemColumn()
	if err != nil {
		return err
	}
	s.systemCol = systemCol

	preps, err := s.prepSystems()
	if err != nil {
		return err
	}
	systems, err := s.fortSystems()
	if err != nil {
		return err
	}
	all := append(preps, systems...)

	users, err := s.users()
	if err != nil {
		return err
	}

	if err := sess.DeleteFortScanned(); err != nil {
		return fmt.Errorf("drop owned rows: %w", err)
	}

	for _, t := range all {
		if err := sess.CreateFortTarget(t); err != nil {
			return err
		}
	}
	for _, c := range users {
		if err := sess.CreateFortContributor(c); err != nil {
			return err
		}
	}
	for _, d := range s.drops(all, users) {
		if err := sess.CreateFortContribution(d); err != nil {
			return err
		}
	}

	if err := s.logFortifiedDiscrepancies(sess, all); err != nil {
		return err
	}

	s.Logger.Info().Int("systems", len(all)).Int("contributors", len(users)).Msg("fort scan complete")
	return nil
}

// logFortifiedDiscrepancies warns on every target whose override-aware
// and raw is_fortified readings disagree, rather than silently picking
// one (spec.md's Open Question on the matter).
func (s *FortScanner) logFortifiedDiscrepancies(sess *storage.Session, targets []*types.FortTarget) error {
	for _, t := range targets {
		sum, err := sess.SumFortContributions(t.ID)
		if err != nil {
			return err
		}
		current := selector.FortCurrentStatus(t, sum)
		if selector.IsFortified(t, current) != selector.IsFortifiedRaw(current, t.Trigger) {
			s.Logger.Warn().Str("system", t.Name).Int("current_status", current).
				Int("trigger", t.Trigger).Float64("override", t.FortOverride).
				Msg("fort_override and raw status disagree on fortified-ness")
		}
	}
	return nil
}

// systemColumn scans fortHeaderRow for the first pair of cells where the
// prior cell reads "TBA" and the current one doesn't — the convention the
// sheet authors use to mark unused trailing prep slots.
func (s *FortScanner) systemColumn() (string, error) {
	if len(s.RowMajor) < fortHeaderRow {
		return "", &boterr.SheetParsingError{Document: "fort", Reason: "header row missing"}
	}
	header := s.RowMajor[fortHeaderRow-1]

	nextNotTBA := false
	for i, cell := range header {
		if nextNotTBA && strings.TrimSpace(cell) != "TBA" {
			return sheets.IndexToColumn(i + 1), nil
		}
		if cell == "TBA" {
			nextNotTBA = true
		}
	}
	return "", &boterr.SheetParsingError{Document: "fort", Reason: "unable to determine system column"}
}

// prepSystems parses every prep column between "C" and the system column,
// skipping any column whose header row still reads "TBA" (not yet active).
func (s *FortScanner) prepSystems() ([]*types.FortTarget, error) {
	firstPrep := sheets.ColumnToIndex("C")
	firstSystem := sheets.ColumnToIndex(s.systemCol) - 1

	var found []*types.FortTarget
	order := 0
	for idx := firstPrep; idx < firstSystem; idx++ {
		order++
		column := sheets.IndexToColumn(idx + 1)
		header := headerSlice(s.col(idx))

		if strings.TrimSpace(header[9]) == "TBA" {
			continue
		}
		t, err := parseFortHeader(header, order, column, types.FortTargetPrep)
		if err != nil {
			continue
		}
		found = append(found, t)
	}
	return found, nil
}

// fortSystems parses every system column from the system column onward,
// stopping at the first column with a blank name — the natural end of
// the sheet's system range.
func (s *FortScanner) fortSystems() ([]*types.FortTarget, error) {
	start := sheets.ColumnToIndex(s.systemCol) - 1

	var found []*types.FortTarget
	order := 1
	for idx := start; idx < len(s.ColMajor); idx++ {
		column := sheets.IndexToColumn(idx + 1)
		header := headerSlice(s.col(idx))

		if strings.TrimSpace(header[9]) == "" {
			break
		}
		t, err := parseFortHeader(header, order, column, types.FortTargetFort)
		if err != nil {
			return nil, err
		}
		found = append(found, t)
		order++
	}
	return found, nil
}

// headerSlice returns the first 10 header-row cells of col, padded to
// length 10 so index access below never panics on a ragged column.
func headerSlice(col []string) [10]string {
	var out [10]string
	for i := 0; i < 10 && i < len(col); i++ {
		out[i] = col[i]
	}
	return out
}

// parseFortHeader maps a column's 10 header cells onto a FortTarget, per
// the layout: 0 undermine%, 1 fort-override%, 2 trigger, 3 missing
// merits (derived, ignored), 4 dropped merits (derived, ignored), 5
// manual fort status, 6 manual um status, 7 distance, 8 notes, 9 name.
func parseFortHeader(header [10]string, order int, column string, kind types.FortTargetKind) (*types.FortTarget, error) {
	name := strings.TrimSpace(header[9])
	if name == "" {
		return nil, &boterr.SheetParsingError{Document: "fort", Reason: "blank system name at column " + column}
	}
	return &types.FortTarget{
		Name:         name,
		Kind:         kind,
		FortStatus:   parseIntTolerant(header[5]),
		Trigger:      parseIntTolerant(header[2]),
		FortOverride: parsePercent(header[1]),
		UmStatus:     parseIntTolerant(header[6]),
		Undermine:    parsePercent(header[0]),
		DistanceLy:   parseFloat(header[7]),
		Notes:        strings.TrimSpace(header[8]),
		SheetColumn:  column,
		SheetOrder:   order,
	}, nil
}

// users parses contributor rows from columns A (battle cry) and B (name)
// starting at fortUserStartRow, stopping at the end of the column.
func (s *FortScanner) users() ([]*types.FortContributor, error) {
	rows, err := s.parseContributorRows("fort", fortUserStartRow)
	if err != nil {
		return nil, err
	}
	found := make([]*types.FortContributor, len(rows))
	for i, r := range rows {
		found[i] = &types.FortContributor{Name: r.Name, Row: r.Row, BattleCry: r.BattleCry}
	}
	return found, nil
}

// drops reads the merit matrix under each system column, aligned
// row-for-row with users, skipping any cell that isn't a bare integer
// (blank, text, or a formula artifact).
func (s *FortScanner) drops(systems []*types.FortTarget, users []*types.FortContributor) []*types.FortContribution {
	var found []*types.FortContribution
	for _, system := range systems {
		idx := sheets.ColumnToIndex(system.SheetColumn) - 1
		col := s.col(idx)
		for ui, user := range users {
			cellIdx := fortUserStartRow - 1 + ui
			raw := strings.TrimSpace(cellAt(col, cellIdx))
			if raw == "" {
				continue
			}
			amount, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			found = append(found, &types.FortContribution{ContributorID: user.ID, TargetID: system.ID, Amount: amount})
		}
	}
	return found
}

func parseIntTolerant(s string) int {
	n, _ := parseInt(strings.ReplaceAll(s, ",", ""))
	return n
}

// parsePercent parses a percentage cell that may already be a 0-1
// fraction or may carry a trailing '%' (e.g. "45%" -> 0.45).
func parsePercent(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if strings.HasSuffix(s, "%") {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err == nil {
			return f / 100.0
		}
	}
	return 0
}
