package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cogbot/cogbot/pkg/types"
)

// Reference-database accessors live directly on *Store rather than on a
// Session: the reference database is a read-mostly cache of external spy
// snapshots with no cross-table invariant to protect inside a transaction,
// so every write is a single statement with "overwrite only if newer"
// semantics applied per-call.

// PutSpySystem overwrites systemName's snapshot if s.UpdatedAt is newer
// than (or equal to) whatever is stored, per spec.md §4.1's snapshot-cache
// contract for external spy feeds.
func (s *Store) PutSpySystem(ctx context.Context, sys *types.SpySystem) error {
	var existing sql.NullTime
	err := s.Reference.QueryRowContext(ctx,
		`SELECT updated_at FROM spy_systems WHERE system_name = ?`, sys.SystemName,
	).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if existing.Valid && sys.UpdatedAt.Before(existing.Time) {
		return nil
	}
	_, err = s.Reference.ExecContext(ctx,
		`INSERT INTO spy_systems (system_name, controlling_power, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(system_name) DO UPDATE SET controlling_power = excluded.controlling_power,
		   updated_at = excluded.updated_at`,
		sys.SystemName, sys.ControllingPower, sys.UpdatedAt,
	)
	return err
}

// GetSpySystem returns the cached snapshot for systemName, or NoMatch.
func (s *Store) GetSpySystem(ctx context.Context, systemName string) (*types.SpySystem, error) {
	var sys types.SpySystem
	sys.SystemName = systemName
	err := s.Reference.QueryRowContext(ctx,
		`SELECT controlling_power, updated_at FROM spy_systems WHERE system_name = ?`, systemName,
	).Scan(&sys.ControllingPower, &sys.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("spy_system")
	}
	if err != nil {
		return nil, err
	}
	return &sys, nil
}

// PutSpyVote overwrites a system/power vote snapshot if newer.
func (s *Store) PutSpyVote(ctx context.Context, v *types.SpyVote) error {
	var existing sql.NullTime
	err := s.Reference.QueryRowContext(ctx,
		`SELECT updated_at FROM spy_votes WHERE system_name = ? AND power = ?`, v.SystemName, v.Power,
	).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if existing.Valid && v.UpdatedAt.Before(existing.Time) {
		return nil
	}
	_, err = s.Reference.ExecContext(ctx,
		`INSERT INTO spy_votes (system_name, power, percent, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(system_name, power) DO UPDATE SET percent = excluded.percent, updated_at = excluded.updated_at`,
		v.SystemName, v.Power, v.Percent, v.UpdatedAt,
	)
	return err
}

// ListSpyVotes returns every power's vote share for systemName.
func (s *Store) ListSpyVotes(ctx context.Context, systemName string) ([]*types.SpyVote, error) {
	rows, err := s.Reference.QueryContext(ctx,
		`SELECT system_name, power, percent, updated_at FROM spy_votes WHERE system_name = ? ORDER BY percent DESC`,
		systemName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.SpyVote
	for rows.Next() {
		var v types.SpyVote
		if err := rows.Scan(&v.SystemName, &v.Power, &v.Percent, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// PutSpyPrep overwrites a system/power preparation-merits snapshot if newer.
func (s *Store) PutSpyPrep(ctx context.Context, p *types.SpyPrep) error {
	var existing sql.NullTime
	err := s.Reference.QueryRowContext(ctx,
		`SELECT updated_at FROM spy_preps WHERE system_name = ? AND power = ?`, p.SystemName, p.Power,
	).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if existing.Valid && p.UpdatedAt.Before(existing.Time) {
		return nil
	}
	_, err = s.Reference.ExecContext(ctx,
		`INSERT INTO spy_preps (system_name, power, merits, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(system_name, power) DO UPDATE SET merits = excluded.merits, updated_at = excluded.updated_at`,
		p.SystemName, p.Power, p.Merits, p.UpdatedAt,
	)
	return err
}

// ListSpyPreps returns every power's preparation merits for systemName.
func (s *Store) ListSpyPreps(ctx context.Context, systemName string) ([]*types.SpyPrep, error) {
	rows, err := s.Reference.QueryContext(ctx,
		`SELECT system_name, power, merits, updated_at FROM spy_preps WHERE system_name = ? ORDER BY merits DESC`,
		systemName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.SpyPrep
	for rows.Next() {
		var p types.SpyPrep
		if err := rows.Scan(&p.SystemName, &p.Power, &p.Merits, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// PutSpyTraffic overwrites systemName's traffic snapshot if newer.
func (s *Store) PutSpyTraffic(ctx context.Context, t *types.SpyTraffic) error {
	var existing sql.NullTime
	err := s.Reference.QueryRowContext(ctx,
		`SELECT updated_at FROM spy_traffic WHERE system_name = ?`, t.SystemName,
	).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if existing.Valid && t.UpdatedAt.Before(existing.Time) {
		return nil
	}
	_, err = s.Reference.ExecContext(ctx,
		`INSERT INTO spy_traffic (system_name, traffic, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(system_name) DO UPDATE SET traffic = excluded.traffic, updated_at = excluded.updated_at`,
		t.SystemName, t.Traffic, t.UpdatedAt,
	)
	return err
}

// GetSpyTraffic returns the cached traffic snapshot for systemName, or
// NoMatch.
func (s *Store) GetSpyTraffic(ctx context.Context, systemName string) (*types.SpyTraffic, error) {
	var t types.SpyTraffic
	t.SystemName = systemName
	err := s.Reference.QueryRowContext(ctx,
		`SELECT traffic, updated_at FROM spy_traffic WHERE system_name = ?`, systemName,
	).Scan(&t.Traffic, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("spy_traffic")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ReplaceSpyBounties overwrites the entire top-bounty table for systemName
// in one step, since the external feed always ships it as a full snapshot
// rather than an incremental update.
func (s *Store) ReplaceSpyBounties(ctx context.Context, systemName string, bounties []*types.SpyBounty) error {
	tx, err := s.Reference.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM spy_bounties WHERE system_name = ?`, systemName); err != nil {
		return err
	}
	for _, b := range bounties {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO spy_bounties (system_name, cmdr_name, bounty, updated_at) VALUES (?, ?, ?, ?)`,
			systemName, b.CmdrName, b.Bounty, b.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListSpyBounties returns systemName's top-bounty table, highest first.
func (s *Store) ListSpyBounties(ctx context.Context, systemName string) ([]*types.SpyBounty, error) {
	rows, err := s.Reference.QueryContext(ctx,
		`SELECT cmdr_name, bounty, updated_at FROM spy_bounties WHERE system_name = ? ORDER BY bounty DESC`,
		systemName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.SpyBounty
	for rows.Next() {
		b := types.SpyBounty{SystemName: systemName}
		if err := rows.Scan(&b.CmdrName, &b.Bounty, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
