package storage

import (
	"database/sql"
	"errors"

	"github.com/cogbot/cogbot/pkg/types"
)

// CreateKosEntry inserts a new KOS/whitelist entry. CmdrName must be
// unique; a violation is surfaced as IntegrityConflict so the kos scanner
// can report duplicate commander names, per spec.md §4.3.
func (sess *Session) CreateKosEntry(e *types.KosEntry) error {
	res, err := sess.tx.Exec(
		`INSERT INTO kos_entries (cmdr_name, squad, reason, friendly) VALUES (?, ?, ?, ?)`,
		e.CmdrName, e.Squad, e.Reason, e.Friendly,
	)
	if isUniqueViolation(err) {
		return integrityConflict("kos_entry", "cmdr_name already in use", err)
	}
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// FindKosEntryByName does a case/whitespace-insensitive substring match on
// cmdr_name.
func (sess *Session) FindKosEntryByName(needle string) (*types.KosEntry, error) {
	rows, err := sess.tx.Query(
		`SELECT id, cmdr_name, squad, reason, friendly FROM kos_entries
		 WHERE REPLACE(LOWER(cmdr_name), ' ', '') LIKE '%' || REPLACE(LOWER(?), ' ', '') || '%'`,
		needle,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*types.KosEntry
	for rows.Next() {
		e, err := scanKosEntryRows(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, e)
	}
	switch len(matches) {
	case 0:
		return nil, noMatch("kos_entry")
	case 1:
		return matches[0], nil
	default:
		return nil, moreThanOneMatch("kos_entry")
	}
}

// GetKosEntryByExactName looks up an entry by its exact cmdr_name.
func (sess *Session) GetKosEntryByExactName(name string) (*types.KosEntry, error) {
	row := sess.tx.QueryRow(
		`SELECT id, cmdr_name, squad, reason, friendly FROM kos_entries WHERE cmdr_name = ?`, name,
	)
	var e types.KosEntry
	err := row.Scan(&e.ID, &e.CmdrName, &e.Squad, &e.Reason, &e.Friendly)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("kos_entry")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListKosEntries returns the full roster, ordered by cmdr_name.
func (sess *Session) ListKosEntries() ([]*types.KosEntry, error) {
	rows, err := sess.tx.Query(`SELECT id, cmdr_name, squad, reason, friendly FROM kos_entries ORDER BY cmdr_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.KosEntry
	for rows.Next() {
		e, err := scanKosEntryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanKosEntryRows(rows *sql.Rows) (*types.KosEntry, error) {
	var e types.KosEntry
	err := rows.Scan(&e.ID, &e.CmdrName, &e.Squad, &e.Reason, &e.Friendly)
	return &e, err
}

// DuplicateCmdrNames scans candidates (a freshly parsed sheet's cmdr_name
// column) for names that collide case/whitespace-insensitively with each
// other, and returns the colliding groups. Used by the kos scanner to build
// a SheetParsingError enumerating duplicate rows before any insert is
// attempted, per spec.md §4.3's all-or-nothing KOS scan.
func DuplicateCmdrNames(candidates []string) map[string][]string {
	groups := make(map[string][]string)
	for _, name := range candidates {
		key := normalizeName(name)
		groups[key] = append(groups[key], name)
	}
	dups := make(map[string][]string)
	for key, names := range groups {
		if len(names) > 1 {
			dups[key] = names
		}
	}
	return dups
}

func normalizeName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r = r - 'A' + 'a'
		}
		out = append(out, r)
	}
	return string(out)
}
