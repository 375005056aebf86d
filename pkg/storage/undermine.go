package storage

import (
	"database/sql"

	"github.com/cogbot/cogbot/pkg/types"
)

// --- UmContributor -------------------------------------------------

// CreateUmContributor inserts a new undermining-sheet row.
func (sess *Session) CreateUmContributor(c *types.UmContributor) error {
	res, err := sess.tx.Exec(
		`INSERT INTO um_contributors (sheet_kind, name, row, battle_cry) VALUES (?, ?, ?, ?)`,
		c.SheetKind, c.Name, c.Row, c.BattleCry,
	)
	if isUniqueViolation(err) {
		return integrityConflict("um_contributor", "row already in use for sheet", err)
	}
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// NextFreeUmRow returns the smallest positive row not in use on kind.
func (sess *Session) NextFreeUmRow(kind types.UmSheetKind) (int, error) {
	rows, err := sess.tx.Query(`SELECT row FROM um_contributors WHERE sheet_kind = ? ORDER BY row ASC`, kind)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	used := make(map[int]bool)
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return 0, err
		}
		used[r] = true
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for n := 1; ; n++ {
		if !used[n] {
			return n, nil
		}
	}
}

// FindUmContributorByName substring-matches within one sheet kind.
func (sess *Session) FindUmContributorByName(kind types.UmSheetKind, needle string) (*types.UmContributor, error) {
	rows, err := sess.tx.Query(
		`SELECT id, sheet_kind, name, row, battle_cry FROM um_contributors
		 WHERE sheet_kind = ? AND REPLACE(LOWER(name), ' ', '') LIKE '%' || REPLACE(LOWER(?), ' ', '') || '%'`,
		kind, needle,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*types.UmContributor
	for rows.Next() {
		var c types.UmContributor
		if err := rows.Scan(&c.ID, &c.SheetKind, &c.Name, &c.Row, &c.BattleCry); err != nil {
			return nil, err
		}
		matches = append(matches, &c)
	}
	switch len(matches) {
	case 0:
		return nil, noMatch("um_contributor")
	case 1:
		return matches[0], nil
	default:
		return nil, moreThanOneMatch("um_contributor")
	}
}

// ListUmContributors returns every contributor row for one sheet kind.
func (sess *Session) ListUmContributors(kind types.UmSheetKind) ([]*types.UmContributor, error) {
	rows, err := sess.tx.Query(
		`SELECT id, sheet_kind, name, row, battle_cry FROM um_contributors WHERE sheet_kind = ? ORDER BY row ASC`,
		kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.UmContributor
	for rows.Next() {
		var c types.UmContributor
		if err := rows.Scan(&c.ID, &c.SheetKind, &c.Name, &c.Row, &c.BattleCry); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// --- UmTarget --------------------------------------------------------

const umTargetSelect = `SELECT id, sheet_kind, name, subkind, sheet_column, goal, security, notes,
	close_control, priority, progress_us, progress_them, map_offset, expansion_trigger FROM um_targets`

// CreateUmTarget inserts a new undermining target.
func (sess *Session) CreateUmTarget(t *types.UmTarget) error {
	res, err := sess.tx.Exec(
		`INSERT INTO um_targets (sheet_kind, name, subkind, sheet_column, goal, security, notes,
		 close_control, priority, progress_us, progress_them, map_offset, expansion_trigger)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SheetKind, t.Name, t.Subkind, t.SheetColumn, t.Goal, t.Security, t.Notes,
		t.CloseControl, t.Priority, t.ProgressUs, t.ProgressThem, t.MapOffset, t.ExpansionTrigger,
	)
	if isUniqueViolation(err) {
		return integrityConflict("um_target", "sheet_column already in use for sheet", err)
	}
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

// UpdateUmTarget persists t's mutable fields.
func (sess *Session) UpdateUmTarget(t *types.UmTarget) error {
	_, err := sess.tx.Exec(
		`UPDATE um_targets SET goal = ?, security = ?, notes = ?, close_control = ?, priority = ?,
		 progress_us = ?, progress_them = ?, map_offset = ?, expansion_trigger = ? WHERE id = ?`,
		t.Goal, t.Security, t.Notes, t.CloseControl, t.Priority,
		t.ProgressUs, t.ProgressThem, t.MapOffset, t.ExpansionTrigger, t.ID,
	)
	return err
}

// FindUmTargetByName substring-matches within one sheet kind.
func (sess *Session) FindUmTargetByName(kind types.UmSheetKind, needle string) (*types.UmTarget, error) {
	rows, err := sess.tx.Query(
		umTargetSelect+` WHERE sheet_kind = ? AND REPLACE(LOWER(name), ' ', '') LIKE '%' || REPLACE(LOWER(?), ' ', '') || '%'`,
		kind, needle,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*types.UmTarget
	for rows.Next() {
		t, err := scanUmTargetRows(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, t)
	}
	switch len(matches) {
	case 0:
		return nil, noMatch("um_target")
	case 1:
		return matches[0], nil
	default:
		return nil, moreThanOneMatch("um_target")
	}
}

// ListUmTargets returns every undermining target for one sheet kind.
func (sess *Session) ListUmTargets(kind types.UmSheetKind) ([]*types.UmTarget, error) {
	rows, err := sess.tx.Query(umTargetSelect+` WHERE sheet_kind = ? ORDER BY sheet_column ASC`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.UmTarget
	for rows.Next() {
		t, err := scanUmTargetRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanUmTargetRows(rows *sql.Rows) (*types.UmTarget, error) {
	var t types.UmTarget
	err := rows.Scan(&t.ID, &t.SheetKind, &t.Name, &t.Subkind, &t.SheetColumn, &t.Goal, &t.Security,
		&t.Notes, &t.CloseControl, &t.Priority, &t.ProgressUs, &t.ProgressThem, &t.MapOffset, &t.ExpansionTrigger)
	return &t, err
}

// --- UmContribution ---------------------------------------------------

// SetUmHold sets (not increments) the held amount for (contributorID,
// targetID), per spec.md §4.4's `hold` contract.
func (sess *Session) SetUmHold(kind types.UmSheetKind, contributorID, targetID int64, amount int) error {
	res, err := sess.tx.Exec(
		`UPDATE um_contributions SET held = ? WHERE sheet_kind = ? AND contributor_id = ? AND target_id = ?`,
		amount, kind, contributorID, targetID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = sess.tx.Exec(
		`INSERT INTO um_contributions (sheet_kind, contributor_id, target_id, held, redeemed) VALUES (?, ?, ?, ?, 0)`,
		kind, contributorID, targetID, amount,
	)
	return err
}

// CreateUmContribution inserts a contribution at its parsed held/redeemed
// amounts, used by the undermining scanner once DeleteUmScanned has
// cleared the table.
func (sess *Session) CreateUmContribution(c *types.UmContribution) error {
	res, err := sess.tx.Exec(
		`INSERT INTO um_contributions (sheet_kind, contributor_id, target_id, held, redeemed) VALUES (?, ?, ?, ?, ?)`,
		c.SheetKind, c.ContributorID, c.TargetID, c.Held, c.Redeemed,
	)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// ResetHeldForContributor zeroes every held amount for contributorID on
// kind, implementing `hold --died`.
func (sess *Session) ResetHeldForContributor(kind types.UmSheetKind, contributorID int64) error {
	_, err := sess.tx.Exec(
		`UPDATE um_contributions SET held = 0 WHERE sheet_kind = ? AND contributor_id = ?`, kind, contributorID,
	)
	return err
}

// RedeemHeldForContributor moves held into redeemed for contributorID,
// either for every target (targetIDs == nil) or for the given targets,
// implementing `hold --redeem[--redeem-systems]`. Returns the moved
// amount per target id.
func (sess *Session) RedeemHeldForContributor(kind types.UmSheetKind, contributorID int64, targetIDs []int64) (map[int64]int, error) {
	var rows *sql.Rows
	var err error
	if len(targetIDs) == 0 {
		rows, err = sess.tx.Query(
			`SELECT target_id, held FROM um_contributions WHERE sheet_kind = ? AND contributor_id = ? AND held > 0`,
			kind, contributorID,
		)
	} else {
		placeholders, args := inClause(targetIDs)
		args = append([]any{kind, contributorID}, args...)
		rows, err = sess.tx.Query(
			`SELECT target_id, held FROM um_contributions WHERE sheet_kind = ? AND contributor_id = ?
			 AND held > 0 AND target_id IN (`+placeholders+`)`,
			args...,
		)
	}
	if err != nil {
		return nil, err
	}
	moved := make(map[int64]int)
	for rows.Next() {
		var targetID int64
		var held int
		if err := rows.Scan(&targetID, &held); err != nil {
			rows.Close()
			return nil, err
		}
		moved[targetID] = held
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for targetID, held := range moved {
		if _, err := sess.tx.Exec(
			`UPDATE um_contributions SET held = 0, redeemed = redeemed + ?
			 WHERE sheet_kind = ? AND contributor_id = ? AND target_id = ?`,
			held, kind, contributorID, targetID,
		); err != nil {
			return nil, err
		}
	}
	return moved, nil
}

// SumUmContribution returns held+redeemed summed across every
// contributor against targetID, the basis of UmTarget.missing.
func (sess *Session) SumUmContribution(targetID int64) (int, error) {
	var sum sql.NullInt64
	err := sess.tx.QueryRow(
		`SELECT SUM(held + redeemed) FROM um_contributions WHERE target_id = ?`, targetID,
	).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return int(sum.Int64), nil
}

// ListUmContributionsByTarget returns every contributor's held+redeemed
// total against targetID, keyed by contributor id.
func (sess *Session) ListUmContributionsByTarget(targetID int64) (map[int64]int, error) {
	rows, err := sess.tx.Query(
		`SELECT contributor_id, held, redeemed FROM um_contributions WHERE target_id = ?`, targetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var contributorID int64
		var held, redeemed int
		if err := rows.Scan(&contributorID, &held, &redeemed); err != nil {
			return nil, err
		}
		out[contributorID] = held + redeemed
	}
	return out, rows.Err()
}

func inClause(ids []int64) (string, []any) {
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args[i] = id
	}
	return placeholders, args
}
