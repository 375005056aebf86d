package scanner

import (
	"context"
	"strconv"
	"strings"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/sheets"
)

// TemplatePayload fills a freshly-inserted target's header cells.
type TemplatePayload struct {
	Name     string
	Power    string
	Trigger  int
	Priority string
}

// findTemplateColumn locates the first column pair at or after the live
// target range whose header names it a "Template" slot, the clone source
// for InsertTarget.
func (s *UndermineScanner) findTemplateColumn() (int, error) {
	sysInd := umSystemStartCol
	for sysInd+1 < len(s.ColMajor) {
		main := umHeaderSlice(s.col(sysInd))
		if strings.Contains(strings.TrimSpace(main[8]), "Template") {
			return sysInd, nil
		}
		sysInd += 2
	}
	return 0, &boterr.SheetParsingError{Document: "undermine", Reason: "no Template column pair found"}
}

// columnUpdate builds a tab-free single-column Update spanning rows
// 1..len(values) — this scanner's Document is already retargeted to the
// right tab via ChangeWorksheet, so writes need no sheet-name prefix.
func columnUpdate(col string, values []string) sheets.Update {
	last := len(values)
	return sheets.Update{
		Range:  col + "1:" + col + strconv.Itoa(last),
		Values: wrapColumnValues(values),
	}
}

func wrapColumnValues(values []string) [][]string {
	out := make([][]string, len(values))
	for i, v := range values {
		out[i] = []string{v}
	}
	return out
}

// InsertTarget clones the tab's rightmost Template column pair, fills it
// with payload, and slides it into position immediately before
// beforeCol — every column from beforeCol through the template's old
// position shifts two columns right, with formulas re-anchored by +2.
func (s *UndermineScanner) InsertTarget(ctx context.Context, beforeCol string, payload TemplatePayload) error {
	if err := s.UpdateCells(ctx); err != nil {
		return err
	}

	templateIdx, err := s.findTemplateColumn()
	if err != nil {
		return err
	}
	insertIdx := sheets.ColumnToIndex(beforeCol) - 1
	if insertIdx < umSystemStartCol || insertIdx > templateIdx {
		return &boterr.SheetParsingError{Document: "undermine", Reason: "insertion point out of range"}
	}

	height := len(s.RowMajor)
	var updates []sheets.Update

	// Slide every column from insertIdx through the template pair two
	// places right, offsetting formula references by +2 as they move.
	for src := templateIdx + 1; src >= insertIdx; src-- {
		dstCol := sheets.IndexToColumn(src + 2 + 1)
		values := make([]string, height)
		for r := 0; r < height; r++ {
			values[r] = offsetIfFormula(cellAt(s.col(src), r), 2)
		}
		updates = append(updates, columnUpdate(dstCol, values))
	}

	// Fill the vacated pair at insertIdx/insertIdx+1 with a clone of the
	// template pair (formulas re-anchored to the new position), then
	// overwrite the payload's header cells.
	shift := insertIdx - templateIdx
	main := make([]string, height)
	sec := make([]string, height)
	for r := 0; r < height; r++ {
		main[r] = offsetIfFormula(cellAt(s.col(templateIdx), r), shift)
		sec[r] = offsetIfFormula(cellAt(s.col(templateIdx+1), r), shift)
	}
	main[0] = payload.Power
	main[1] = strconv.Itoa(payload.Trigger)
	main[8] = payload.Name
	updates = append(updates, columnUpdate(sheets.IndexToColumn(insertIdx+1), main))

	sec[7] = payload.Priority
	updates = append(updates, columnUpdate(sheets.IndexToColumn(insertIdx+2), sec))

	return s.SendBatch(ctx, updates)
}

// RemoveTarget finds the target named name, slides every column to its
// right two places left (re-anchoring formulas by -2), and leaves the
// vacated rightmost pair blank.
func (s *UndermineScanner) RemoveTarget(ctx context.Context, name string) error {
	if err := s.UpdateCells(ctx); err != nil {
		return err
	}

	targets := s.targets()
	removeIdx := -1
	for _, t := range targets {
		if strings.EqualFold(t.Name, name) {
			removeIdx = sheets.ColumnToIndex(t.SheetColumn) - 1
			break
		}
	}
	if removeIdx < 0 {
		return &boterr.NotFound{Entity: "undermine target", Needle: name}
	}

	lastIdx, err := s.findTemplateColumn()
	if err != nil {
		return err
	}

	height := len(s.RowMajor)
	var updates []sheets.Update
	for src := removeIdx + 2; src < lastIdx; src++ {
		dstCol := sheets.IndexToColumn(src - 2 + 1)
		values := make([]string, height)
		for r := 0; r < height; r++ {
			values[r] = offsetIfFormula(cellAt(s.col(src), r), -2)
		}
		updates = append(updates, columnUpdate(dstCol, values))
	}

	for _, idx := range []int{lastIdx - 2, lastIdx - 1} {
		blank := make([]string, height)
		updates = append(updates, columnUpdate(sheets.IndexToColumn(idx+1), blank))
	}

	return s.SendBatch(ctx, updates)
}

// offsetIfFormula applies OffsetFormulaColumns to cells that look like a
// formula (leading '='); any other cell passes through unchanged.
func offsetIfFormula(cell string, n int) string {
	if strings.HasPrefix(cell, "=") {
		return sheets.OffsetFormulaColumns(cell, n)
	}
	return cell
}
