// Package scanner turns a remote worksheet into cache rows. One scanner
// type exists per document schema (fort, undermining, KOS, carrier
// roster); all of them share the base Scanner's cell-fetching and
// batch-write plumbing and layer their own column/row parsing on top.
package scanner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/rs/zerolog"
)

// Scanner holds the cells fetched from one Document and the operations
// every subclass scanner builds on: fetch, retarget, and batch-write.
type Scanner struct {
	Doc sheets.Document

	RowMajor [][]string // cells as fetched, row-major
	ColMajor [][]string // RowMajor transposed, lazily derived by UpdateCells

	Logger zerolog.Logger
}

// UpdateCells fetches the full worksheet and derives the column-major
// view. Idempotent — callers run it once per scan cycle.
func (s *Scanner) UpdateCells(ctx context.Context) error {
	rows, err := s.Doc.WholeSheet(ctx)
	if err != nil {
		return &boterr.RemoteError{Op: "whole_sheet", Err: err}
	}
	s.RowMajor = rows
	s.ColMajor = transpose(rows)
	return nil
}

// ChangeWorksheet retargets the underlying document to another tab and
// invalidates the cached cells; callers must call UpdateCells again
// before parsing.
func (s *Scanner) ChangeWorksheet(ctx context.Context, tabName string) error {
	if err := s.Doc.ChangeWorksheet(ctx, tabName); err != nil {
		return &boterr.RemoteError{Op: "change_worksheet", Err: err}
	}
	s.RowMajor = nil
	s.ColMajor = nil
	return nil
}

// GetBatch wraps a remote multi-range read.
func (s *Scanner) GetBatch(ctx context.Context, ranges []string, dim sheets.MajorDimension) ([]sheets.RangeBlock, error) {
	blocks, err := s.Doc.BatchGet(ctx, ranges, dim)
	if err != nil {
		return nil, &boterr.RemoteError{Op: "batch_get", Err: err}
	}
	return blocks, nil
}

// SendBatch wraps a remote multi-range write. Per spec, a failure here
// leaves the cache already updated — the caller is responsible for
// warning the user that the sheet itself needs a manual correction.
func (s *Scanner) SendBatch(ctx context.Context, updates []sheets.Update) error {
	if err := s.Doc.BatchUpdate(ctx, updates); err != nil {
		return &boterr.RemoteError{Op: "batch_update", Err: err}
	}
	return nil
}

// transpose converts a row-major grid to column-major, padding ragged
// rows with empty strings so every column has the same height.
func transpose(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	cols := make([][]string, width)
	for c := 0; c < width; c++ {
		col := make([]string, len(rows))
		for r, row := range rows {
			if c < len(row) {
				col[r] = row[c]
			}
		}
		cols[c] = col
	}
	return cols
}

// col returns column index i of ColMajor, or an empty slice if i is out
// of range (a ragged or too-narrow worksheet).
func (s *Scanner) col(i int) []string {
	if i < 0 || i >= len(s.ColMajor) {
		return nil
	}
	return s.ColMajor[i]
}

// cellAt returns row i of col, or "" past its end.
func cellAt(col []string, i int) string {
	if i < 0 || i >= len(col) {
		return ""
	}
	return col[i]
}

// parseInt mirrors the original scanner's tolerant int parse: a cell that
// doesn't parse is treated as absent rather than an error, matching
// spreadsheet cells left blank or holding stray text.
func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// contributorRow is one parsed battle-cry/name row, shared by every
// scanner that reads contributors from columns A (cry) and B (name).
type contributorRow struct {
	Name      string
	Row       int
	BattleCry string
}

// parseContributorRows parses contributor rows starting at the given
// 1-based row and running to the end of column B's data, failing with a
// SheetParsingError naming both rows on a case/whitespace-insensitive
// duplicate name.
func (s *Scanner) parseContributorRows(document string, startRow int) ([]contributorRow, error) {
	cryCol := s.col(0)
	nameCol := s.col(1)
	height := len(nameCol)
	if len(cryCol) > height {
		height = len(cryCol)
	}

	seen := make(map[string]int)
	var found []contributorRow
	for i := startRow - 1; i < height; i++ {
		row := i + 1
		name := strings.TrimSpace(cellAt(nameCol, i))
		if name == "" {
			continue
		}
		key := normalizeContributorName(name)
		if prevRow, ok := seen[key]; ok {
			return nil, &boterr.SheetParsingError{
				Document: document,
				Reason:   fmt.Sprintf("commander %q duplicated at rows %d and %d", name, prevRow, row),
			}
		}
		seen[key] = row
		found = append(found, contributorRow{Name: name, Row: row, BattleCry: cellAt(cryCol, i)})
	}
	return found, nil
}

func normalizeContributorName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
