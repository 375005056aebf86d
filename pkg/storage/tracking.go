package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cogbot/cogbot/pkg/types"
)

const overlapSep = "|"

// AddTrackedSystem adds a watch centre and folds it into every covered
// system's TrackedSystemCached.Overlaps set, per spec.md §4.5's
// union-on-add rule. distanceLy must be >= 0; the caller supplies the set
// of system names within range (from pkg/catalog) as covered.
func (sess *Session) AddTrackedSystem(systemName string, distanceLy int, covered []string) error {
	_, err := sess.tx.Exec(
		`INSERT INTO tracked_systems (system_name, distance_ly) VALUES (?, ?)`, systemName, distanceLy,
	)
	if isUniqueViolation(err) {
		return integrityConflict("tracked_system", "system already tracked", err)
	}
	if err != nil {
		return err
	}
	for _, covered := range covered {
		if err := sess.addOverlap(covered, systemName); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTrackedSystem removes a watch centre and subtracts it from every
// covered system's Overlaps set, deleting a cache row whose set becomes
// empty rather than leaving it empty, per spec.md §4.5.
func (sess *Session) RemoveTrackedSystem(systemName string, covered []string) error {
	res, err := sess.tx.Exec(`DELETE FROM tracked_systems WHERE system_name = ?`, systemName)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return noMatch("tracked_system")
	}
	for _, c := range covered {
		if err := sess.removeOverlap(c, systemName); err != nil {
			return err
		}
	}
	return nil
}

func (sess *Session) addOverlap(systemName, centre string) error {
	cached, err := sess.getTrackedSystemCached(systemName)
	if err != nil && !errors.Is(err, ErrNoMatch) {
		return err
	}
	var overlaps []string
	if cached != nil {
		overlaps = cached.Overlaps
	}
	for _, o := range overlaps {
		if o == centre {
			return nil
		}
	}
	overlaps = append(overlaps, centre)
	return sess.putTrackedSystemCached(systemName, overlaps)
}

func (sess *Session) removeOverlap(systemName, centre string) error {
	cached, err := sess.getTrackedSystemCached(systemName)
	if errors.Is(err, ErrNoMatch) {
		return nil
	}
	if err != nil {
		return err
	}
	kept := cached.Overlaps[:0]
	for _, o := range cached.Overlaps {
		if o != centre {
			kept = append(kept, o)
		}
	}
	if len(kept) == 0 {
		_, err := sess.tx.Exec(`DELETE FROM tracked_systems_cached WHERE system_name = ?`, systemName)
		return err
	}
	return sess.putTrackedSystemCached(systemName, kept)
}

func (sess *Session) getTrackedSystemCached(systemName string) (*types.TrackedSystemCached, error) {
	var overlaps string
	err := sess.tx.QueryRow(
		`SELECT overlaps FROM tracked_systems_cached WHERE system_name = ?`, systemName,
	).Scan(&overlaps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("tracked_system_cached")
	}
	if err != nil {
		return nil, err
	}
	return &types.TrackedSystemCached{SystemName: systemName, Overlaps: strings.Split(overlaps, overlapSep)}, nil
}

func (sess *Session) putTrackedSystemCached(systemName string, overlaps []string) error {
	joined := strings.Join(overlaps, overlapSep)
	_, err := sess.tx.Exec(
		`INSERT INTO tracked_systems_cached (system_name, overlaps) VALUES (?, ?)
		 ON CONFLICT(system_name) DO UPDATE SET overlaps = excluded.overlaps`,
		systemName, joined,
	)
	return err
}

// IsTrackedSystem reports whether systemName is covered by any watch
// centre, the gate the feed ingester uses before processing a jump.
func (sess *Session) IsTrackedSystem(systemName string) (bool, error) {
	_, err := sess.getTrackedSystemCached(systemName)
	if errors.Is(err, ErrNoMatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListTrackedSystems returns every watch centre.
func (sess *Session) ListTrackedSystems() ([]*types.TrackedSystem, error) {
	rows, err := sess.tx.Query(`SELECT system_name, distance_ly FROM tracked_systems ORDER BY system_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.TrackedSystem
	for rows.Next() {
		var t types.TrackedSystem
		if err := rows.Scan(&t.SystemName, &t.DistanceLy); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// --- TrackedCarrier --------------------------------------------------

// UpsertTrackedCarrier records a carrier's current position, shifting its
// prior CurrentSystem into PreviousSystem. Used by the feed ingester on
// every correlated jump event.
func (sess *Session) UpsertTrackedCarrier(c *types.TrackedCarrier) error {
	existing, err := sess.GetTrackedCarrier(c.ID)
	if err != nil && !errors.Is(err, ErrNoMatch) {
		return err
	}
	if existing != nil {
		c.PreviousSystem = existing.CurrentSystem
		c.Override = existing.Override
	}
	_, err = sess.tx.Exec(
		`INSERT INTO tracked_carriers (id, squad, current_system, previous_system, override, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   squad = excluded.squad, current_system = excluded.current_system,
		   previous_system = excluded.previous_system, last_updated = excluded.last_updated`,
		c.ID, c.Squad, c.CurrentSystem, c.PreviousSystem, c.Override, c.LastUpdated,
	)
	return err
}

// RegisterCarrierRoster records a known carrier id/squad pairing from the
// carrier-id scanner without disturbing any position already recorded by
// the feed ingester. A carrier not yet seen by the feed is created with an
// empty current system.
func (sess *Session) RegisterCarrierRoster(id, squad string, now time.Time) error {
	_, err := sess.tx.Exec(
		`INSERT INTO tracked_carriers (id, squad, current_system, previous_system, override, last_updated)
		 VALUES (?, ?, '', '', 0, ?)
		 ON CONFLICT(id) DO UPDATE SET squad = excluded.squad`,
		id, squad, now,
	)
	return err
}

// SetTrackedCarrierOverride marks id as manually retained (exempt from
// reaping) or clears that flag.
func (sess *Session) SetTrackedCarrierOverride(id string, override bool) error {
	res, err := sess.tx.Exec(`UPDATE tracked_carriers SET override = ? WHERE id = ?`, override, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return noMatch("tracked_carrier")
	}
	return nil
}

// GetTrackedCarrier looks up a carrier by its 7-character id.
func (sess *Session) GetTrackedCarrier(id string) (*types.TrackedCarrier, error) {
	var c types.TrackedCarrier
	err := sess.tx.QueryRow(
		`SELECT id, squad, current_system, previous_system, override, last_updated FROM tracked_carriers WHERE id = ?`, id,
	).Scan(&c.ID, &c.Squad, &c.CurrentSystem, &c.PreviousSystem, &c.Override, &c.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("tracked_carrier")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListTrackedCarriers returns every known carrier.
func (sess *Session) ListTrackedCarriers() ([]*types.TrackedCarrier, error) {
	rows, err := sess.tx.Query(`SELECT id, squad, current_system, previous_system, override, last_updated FROM tracked_carriers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.TrackedCarrier
	for rows.Next() {
		var c types.TrackedCarrier
		if err := rows.Scan(&c.ID, &c.Squad, &c.CurrentSystem, &c.PreviousSystem, &c.Override, &c.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ReapStaleCarriers deletes every non-overridden carrier whose LastUpdated
// precedes cutoff, returning the deleted ids. cutoff is computed by the
// caller as time.Now().Add(-reapWindow) (spec.md §4.5's 4-day default).
func (sess *Session) ReapStaleCarriers(cutoff time.Time) ([]string, error) {
	rows, err := sess.tx.Query(
		`SELECT id FROM tracked_carriers WHERE override = 0 AND last_updated < ?`, cutoff,
	)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := sess.tx.Exec(`DELETE FROM tracked_carriers WHERE override = 0 AND last_updated < ?`, cutoff); err != nil {
		return nil, err
	}
	return ids, nil
}
