package storage

import (
	"fmt"

	"github.com/cogbot/cogbot/pkg/types"
)

// DeleteFortScanned drops every row owned by a full fort-sheet scan —
// contributions, contributors, and targets — so the scanner can replace
// them atomically (spec.md §4.2's drop_owned_rows for the fort scanner).
func (sess *Session) DeleteFortScanned() error {
	for _, t := range []string{"fort_contributions", "fort_contributors", "fort_targets"} {
		if _, err := sess.tx.Exec("DELETE FROM " + t); err != nil {
			return fmt.Errorf("delete %s: %w", t, err)
		}
	}
	return nil
}

// DeleteUmScanned drops every row owned by a full scan of the given
// undermining sheet, leaving the other sheet kind untouched.
func (sess *Session) DeleteUmScanned(kind types.UmSheetKind) error {
	if _, err := sess.tx.Exec(`DELETE FROM um_contributions WHERE sheet_kind = ?`, kind); err != nil {
		return fmt.Errorf("delete um_contributions: %w", err)
	}
	if _, err := sess.tx.Exec(`DELETE FROM um_contributors WHERE sheet_kind = ?`, kind); err != nil {
		return fmt.Errorf("delete um_contributors: %w", err)
	}
	if _, err := sess.tx.Exec(`DELETE FROM um_targets WHERE sheet_kind = ?`, kind); err != nil {
		return fmt.Errorf("delete um_targets: %w", err)
	}
	return nil
}

// DeleteKosScanned drops every kill-on-sight entry, for a full KOS rescan.
func (sess *Session) DeleteKosScanned() error {
	_, err := sess.tx.Exec(`DELETE FROM kos_entries`)
	return err
}
