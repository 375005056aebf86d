package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
)

// carrierFirstRow is the 1-based row of the first (id, squad) entry.
const carrierFirstRow = 2

// CarrierScanner parses the carrier-roster worksheet: one (id, squad)
// pair per row. Unlike the fort/undermine/KOS scanners it never drops
// rows wholesale — a carrier's current position is owned by the feed
// ingester, and the roster only ever adds or renames squads.
type CarrierScanner struct {
	Scanner
}

// NewCarrierScanner wraps doc for carrier-roster scanning.
func NewCarrierScanner(doc sheets.Document) *CarrierScanner {
	return &CarrierScanner{Scanner{Doc: doc, Logger: log.WithComponent("scanner.carriers")}}
}

// Scan refreshes the cells and registers every (id, squad) pair, leaving
// any already-tracked carrier's position untouched.
func (s *CarrierScanner) Scan(ctx context.Context, sess *storage.Session, now time.Time) error {
	if err := s.UpdateCells(ctx); err != nil {
		return err
	}

	count := 0
	for i := carrierFirstRow - 1; i < len(s.RowMajor); i++ {
		row := s.RowMajor[i]
		id := strings.ToUpper(strings.TrimSpace(cellAt(row, 0)))
		squad := strings.TrimSpace(cellAt(row, 1))
		if id == "" {
			continue
		}
		if err := sess.RegisterCarrierRoster(id, squad, now); err != nil {
			return err
		}
		count++
	}

	s.Logger.Info().Int("carriers", count).Msg("carrier roster scan complete")
	return nil
}
