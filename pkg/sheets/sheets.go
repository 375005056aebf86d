// Package sheets defines the remote tabular document capability cogbot
// consumes (spec.md §6), plus the column-arithmetic and batch-payload
// helpers the scanner builds on top of it. No concrete spreadsheet client
// is implemented here — this project's boundary stops at the interface
// and a recording fake for tests.
package sheets

import "context"

// MajorDimension selects row-major or column-major rendering for a range
// read, mirroring the remote capability's batch_get contract.
type MajorDimension string

const (
	MajorDimensionRows MajorDimension = "ROWS"
	MajorDimensionCols MajorDimension = "COLUMNS"
)

// Update is one `{range, values}` batch-write item.
type Update struct {
	Range  string // A1-style range, e.g. "Sheet1!C2:C5"
	Values [][]string
}

// RangeBlock is one `batch_get` result item.
type RangeBlock struct {
	Range  string
	Values [][]string
}

// Document is a single tab within a remote spreadsheet.
type Document interface {
	// Title returns the document's human-readable title.
	Title(ctx context.Context) (string, error)
	// WholeSheet returns the full worksheet as a row-major 2-D array,
	// padded to a uniform width per row.
	WholeSheet(ctx context.Context) ([][]string, error)
	// BatchGet reads multiple A1 ranges in one round trip.
	BatchGet(ctx context.Context, ranges []string, dim MajorDimension) ([]RangeBlock, error)
	// BatchUpdate writes multiple ranges in one round trip. Writes are
	// idempotent given a stable row/column layout.
	BatchUpdate(ctx context.Context, updates []Update) error
	// ChangeWorksheet retargets this Document to another tab within the
	// same underlying spreadsheet.
	ChangeWorksheet(ctx context.Context, tabName string) error
}
