package storage

import (
	"database/sql"
	"errors"

	"github.com/cogbot/cogbot/pkg/types"
)

// --- FortContributor -------------------------------------------------

// CreateFortContributor inserts a new fortification-sheet row.
func (sess *Session) CreateFortContributor(c *types.FortContributor) error {
	res, err := sess.tx.Exec(
		`INSERT INTO fort_contributors (name, row, battle_cry) VALUES (?, ?, ?)`,
		c.Name, c.Row, c.BattleCry,
	)
	if isUniqueViolation(err) {
		return integrityConflict("fort_contributor", "row already in use", err)
	}
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// NextFreeFortRow returns the smallest positive row not currently in use,
// for sheet auto-enrollment (spec.md §4.4).
func (sess *Session) NextFreeFortRow() (int, error) {
	rows, err := sess.tx.Query(`SELECT row FROM fort_contributors ORDER BY row ASC`)
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

// FindFortContributorByName does a case/whitespace-insensitive substring
// match, per spec.md §4.1.
func (sess *Session) FindFortContributorByName(needle string) (*types.FortContributor, error) {
	rows, err := sess.tx.Query(
		`SELECT id, name, row, battle_cry FROM fort_contributors
		 WHERE REPLACE(LOWER(name), ' ', '') LIKE '%' || REPLACE(LOWER(?), ' ', '') || '%'`,
		needle,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*types.FortContributor
	for rows.Next() {
		var c types.FortContributor
		if err := rows.Scan(&c.ID, &c.Name, &c.Row, &c.BattleCry); err != nil {
			return nil, err
		}
		matches = append(matches, &c)
	}
	switch len(matches) {
	case 0:
		return nil, noMatch("fort_contributor")
	case 1:
		return matches[0], nil
	default:
		return nil, moreThanOneMatch("fort_contributor")
	}
}

// ListFortContributors returns every fortification-sheet row.
func (sess *Session) ListFortContributors() ([]*types.FortContributor, error) {
	rows, err := sess.tx.Query(`SELECT id, name, row, battle_cry FROM fort_contributors ORDER BY row ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.FortContributor
	for rows.Next() {
		var c types.FortContributor
		if err := rows.Scan(&c.ID, &c.Name, &c.Row, &c.BattleCry); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// --- FortTarget --------------------------------------------------------

// CreateFortTarget inserts a new fortification target.
func (sess *Session) CreateFortTarget(t *types.FortTarget) error {
	res, err := sess.tx.Exec(
		`INSERT INTO fort_targets
		 (name, kind, fort_status, trigger_val, fort_override, um_status, undermine,
		  distance_ly, notes, sheet_column, sheet_order, manual_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Kind, t.FortStatus, t.Trigger, t.FortOverride, t.UmStatus, t.Undermine,
		t.DistanceLy, t.Notes, t.SheetColumn, t.SheetOrder, t.ManualOrder,
	)
	if isUniqueViolation(err) {
		return integrityConflict("fort_target", "name or sheet_column already in use", err)
	}
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

// UpdateFortTarget persists every mutable field of t.
func (sess *Session) UpdateFortTarget(t *types.FortTarget) error {
	_, err := sess.tx.Exec(
		`UPDATE fort_targets SET fort_status = ?, trigger_val = ?, fort_override = ?,
		 um_status = ?, undermine = ?, distance_ly = ?, notes = ?, manual_order = ?
		 WHERE id = ?`,
		t.FortStatus, t.Trigger, t.FortOverride, t.UmStatus, t.Undermine,
		t.DistanceLy, t.Notes, t.ManualOrder, t.ID,
	)
	return err
}

// GetFortTargetByName looks up a target by its exact, unique name.
func (sess *Session) GetFortTargetByName(name string) (*types.FortTarget, error) {
	row := sess.tx.QueryRow(fortTargetSelect+` WHERE name = ?`, name)
	return scanFortTarget(row)
}

// FindFortTargetByName does a case/whitespace-insensitive substring match.
func (sess *Session) FindFortTargetByName(needle string) (*types.FortTarget, error) {
	rows, err := sess.tx.Query(
		fortTargetSelect+` WHERE REPLACE(LOWER(name), ' ', '') LIKE '%' || REPLACE(LOWER(?), ' ', '') || '%'`,
		needle,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*types.FortTarget
	for rows.Next() {
		t, err := scanFortTargetRows(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, t)
	}
	switch len(matches) {
	case 0:
		return nil, noMatch("fort_target")
	case 1:
		return matches[0], nil
	default:
		return nil, moreThanOneMatch("fort_target")
	}
}

// ListFortTargets returns every fortification target ordered by sheet
// order, the default iteration order for the target selector.
func (sess *Session) ListFortTargets() ([]*types.FortTarget, error) {
	rows, err := sess.tx.Query(fortTargetSelect + ` ORDER BY sheet_order ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.FortTarget
	for rows.Next() {
		t, err := scanFortTargetRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const fortTargetSelect = `SELECT id, name, kind, fort_status, trigger_val, fort_override, um_status,
	undermine, distance_ly, notes, sheet_column, sheet_order, manual_order FROM fort_targets`

func scanFortTarget(row *sql.Row) (*types.FortTarget, error) {
	var t types.FortTarget
	err := row.Scan(&t.ID, &t.Name, &t.Kind, &t.FortStatus, &t.Trigger, &t.FortOverride,
		&t.UmStatus, &t.Undermine, &t.DistanceLy, &t.Notes, &t.SheetColumn, &t.SheetOrder, &t.ManualOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("fort_target")
	}
	return &t, err
}

func scanFortTargetRows(rows *sql.Rows) (*types.FortTarget, error) {
	var t types.FortTarget
	err := rows.Scan(&t.ID, &t.Name, &t.Kind, &t.FortStatus, &t.Trigger, &t.FortOverride,
		&t.UmStatus, &t.Undermine, &t.DistanceLy, &t.Notes, &t.SheetColumn, &t.SheetOrder, &t.ManualOrder)
	return &t, err
}

// --- FortContribution ---------------------------------------------------

// ApplyFortDrop upserts the (contributorID, targetID) contribution by
// adding signedAmount, clamping the stored amount to >= 0, and returns
// the contribution's amount after the update — the "current_status"
// invariant in spec.md §3/§8 is `max(fort_status, sum(contributions))`,
// computed by the caller from SumFortContributions, not here.
func (sess *Session) ApplyFortDrop(contributorID, targetID int64, signedAmount int) (*types.FortContribution, error) {
	var existing types.FortContribution
	row := sess.tx.QueryRow(
		`SELECT id, contributor_id, target_id, amount FROM fort_contributions
		 WHERE contributor_id = ? AND target_id = ?`, contributorID, targetID,
	)
	err := row.Scan(&existing.ID, &existing.ContributorID, &existing.TargetID, &existing.Amount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		amount := signedAmount
		if amount < 0 {
			amount = 0
		}
		res, err := sess.tx.Exec(
			`INSERT INTO fort_contributions (contributor_id, target_id, amount) VALUES (?, ?, ?)`,
			contributorID, targetID, amount,
		)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return &types.FortContribution{ID: id, ContributorID: contributorID, TargetID: targetID, Amount: amount}, nil
	case err != nil:
		return nil, err
	default:
		newAmount := existing.Amount + signedAmount
		if newAmount < 0 {
			newAmount = 0
		}
		if _, err := sess.tx.Exec(`UPDATE fort_contributions SET amount = ? WHERE id = ?`, newAmount, existing.ID); err != nil {
			return nil, err
		}
		existing.Amount = newAmount
		return &existing, nil
	}
}

// CreateFortContribution inserts a contribution at its parsed absolute
// amount, used by the fort scanner once DeleteFortScanned has cleared the
// table — unlike ApplyFortDrop, it does not accumulate a delta.
func (sess *Session) CreateFortContribution(c *types.FortContribution) error {
	res, err := sess.tx.Exec(
		`INSERT INTO fort_contributions (contributor_id, target_id, amount) VALUES (?, ?, ?)`,
		c.ContributorID, c.TargetID, c.Amount,
	)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// SumFortContributions returns the sum of every contribution's amount
// against targetID — the right-hand side of spec.md §8's current_status
// invariant.
func (sess *Session) SumFortContributions(targetID int64) (int, error) {
	var sum sql.NullInt64
	err := sess.tx.QueryRow(`SELECT SUM(amount) FROM fort_contributions WHERE target_id = ?`, targetID).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return int(sum.Int64), nil
}

// ListFortContributionsByTarget returns every contribution against
// targetID, used to find tied top contributors on a fortify event.
func (sess *Session) ListFortContributionsByTarget(targetID int64) ([]*types.FortContribution, error) {
	rows, err := sess.tx.Query(
		`SELECT id, contributor_id, target_id, amount FROM fort_contributions WHERE target_id = ?`, targetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.FortContribution
	for rows.Next() {
		var c types.FortContribution
		if err := rows.Scan(&c.ID, &c.ContributorID, &c.TargetID, &c.Amount); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// --- FortOrderOverride ---------------------------------------------------

// ReplaceFortOrder clears every FortOrderOverride and inserts one row per
// name in order, 1-based. An empty slice clears the override set, per
// spec.md §4.4's `fort --order` contract.
func (sess *Session) ReplaceFortOrder(names []string) error {
	if _, err := sess.tx.Exec(`DELETE FROM fort_order_overrides`); err != nil {
		return err
	}
	for i, name := range names {
		if _, err := sess.tx.Exec(
			`INSERT INTO fort_order_overrides (ordinal, target_name) VALUES (?, ?)`, i+1, name,
		); err != nil {
			if isUniqueViolation(err) {
				return integrityConflict("fort_order_override", "duplicate target in order", err)
			}
			return err
		}
	}
	return nil
}

// ListFortOrderOverrides returns the manual order, ascending by ordinal.
func (sess *Session) ListFortOrderOverrides() ([]*types.FortOrderOverride, error) {
	rows, err := sess.tx.Query(`SELECT ordinal, target_name FROM fort_order_overrides ORDER BY ordinal ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.FortOrderOverride
	for rows.Next() {
		var o types.FortOrderOverride
		if err := rows.Scan(&o.Ordinal, &o.TargetName); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
