package storage

import (
	"database/sql"
	"errors"

	"github.com/cogbot/cogbot/pkg/types"
)

// GetGlobal returns the singleton Global record, or NoMatch if the cache
// has never been seeded.
func (sess *Session) GetGlobal() (*types.Global, error) {
	var g types.Global
	err := sess.tx.QueryRow(
		`SELECT cycle, consolidation, updated_at FROM globals WHERE id = 1`,
	).Scan(&g.Cycle, &g.Consolidation, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("global")
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// PutGlobal writes g as the singleton record, rejecting the write with
// ValidationFail if g.UpdatedAt would move the stored UpdatedAt backward —
// spec.md §3's monotonicity invariant on Global.updated_at.
func (sess *Session) PutGlobal(g *types.Global) error {
	existing, err := sess.GetGlobal()
	if err != nil && !errors.Is(err, ErrNoMatch) {
		return err
	}
	if existing != nil && g.UpdatedAt.Before(existing.UpdatedAt) {
		return validationFail("global", "updated_at would move backward")
	}
	_, err = sess.tx.Exec(
		`INSERT INTO globals (id, cycle, consolidation, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET cycle = excluded.cycle, consolidation = excluded.consolidation,
		   updated_at = excluded.updated_at`,
		g.Cycle, g.Consolidation, g.UpdatedAt,
	)
	return err
}
