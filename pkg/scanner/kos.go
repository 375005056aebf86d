package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// kosFirstRow is the 1-based row of the first CMDR entry (row 1 holds
// headers).
const kosFirstRow = 2

// KosScanner parses the kill-on-sight / friendly-whitelist worksheet: one
// CMDR per row, columns A-D (cmdr, squad, reason/danger, friendly).
type KosScanner struct {
	Scanner
}

// NewKosScanner wraps doc for KOS scanning.
func NewKosScanner(doc sheets.Document) *KosScanner {
	return &KosScanner{Scanner{Doc: doc, Logger: log.WithComponent("scanner.kos")}}
}

// Scan refreshes the cells, parses every row, and — all or nothing —
// replaces the roster. A duplicate CMDR name anywhere in the sheet fails
// the whole scan with a SheetParsingError enumerating every collision,
// leaving the cache at its previous state.
func (s *KosScanner) Scan(ctx context.Context, sess *storage.Session) error {
	if err := s.UpdateCells(ctx); err != nil {
		return err
	}

	entries := s.entries()

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.CmdrName
	}
	if dups := storage.DuplicateCmdrNames(names); len(dups) > 0 {
		return &boterr.SheetParsingError{Document: "kos", Reason: duplicateReport(dups)}
	}

	if err := sess.DeleteKosScanned(); err != nil {
		return fmt.Errorf("drop owned rows: %w", err)
	}
	for _, e := range entries {
		if err := sess.CreateKosEntry(e); err != nil {
			return err
		}
	}

	s.Logger.Info().Int("entries", len(entries)).Msg("kos scan complete")
	return nil
}

// entries parses one CMDR per row starting at kosFirstRow: column A cmdr
// name, B squad, C a numeric reason code (0 on a non-numeric cell), D
// friendly flag (true iff the cell starts with 'f' or 'F').
func (s *KosScanner) entries() []*types.KosEntry {
	var found []*types.KosEntry
	for i := kosFirstRow - 1; i < len(s.RowMajor); i++ {
		row := s.RowMajor[i]
		cmdr := strings.TrimSpace(cellAt(row, 0))
		if cmdr == "" {
			continue
		}
		squad := cellAt(row, 1)
		reason, _ := parseInt(cellAt(row, 2))
		friendly := strings.HasPrefix(strings.ToLower(strings.TrimSpace(cellAt(row, 3))), "f")

		found = append(found, &types.KosEntry{
			CmdrName: cmdr,
			Squad:    squad,
			Reason:   fmt.Sprintf("%d", reason),
			Friendly: friendly,
		})
	}
	return found
}

// duplicateReport renders DuplicateCmdrNames' groups as a stable,
// human-readable report.
func duplicateReport(dups map[string][]string) string {
	keys := make([]string, 0, len(dups))
	for k := range dups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("duplicate CMDRs in KOS sheet:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s\n", strings.Join(dups[k], ", "))
	}
	return b.String()
}
