package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cogbot/cogbot/pkg/types"
)

// CreateChatUser inserts a new ChatUser. PreferredName must be unique.
func (sess *Session) CreateChatUser(u *types.ChatUser) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := sess.tx.Exec(
		`INSERT INTO chat_users (id, preferred_name, battle_cry, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.PreferredName, u.BattleCry, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return integrityConflict("chat_user", "preferred_name already in use", err)
	}
	return err
}

// UpdateChatUser updates an existing ChatUser's mutable fields.
func (sess *Session) UpdateChatUser(u *types.ChatUser) error {
	_, err := sess.tx.Exec(
		`UPDATE chat_users SET preferred_name = ?, battle_cry = ? WHERE id = ?`,
		u.PreferredName, u.BattleCry, u.ID,
	)
	if isUniqueViolation(err) {
		return integrityConflict("chat_user", "preferred_name already in use", err)
	}
	return err
}

// GetChatUser looks up a ChatUser by its stable platform id.
func (sess *Session) GetChatUser(id string) (*types.ChatUser, error) {
	row := sess.tx.QueryRow(
		`SELECT id, preferred_name, battle_cry, created_at FROM chat_users WHERE id = ?`, id,
	)
	return scanChatUser(row)
}

// FindChatUserByName does a case-insensitive, whitespace-insensitive
// substring match on preferred_name, failing with NoMatch or
// MoreThanOneMatch exactly as spec.md §4.1 requires.
func (sess *Session) FindChatUserByName(needle string) (*types.ChatUser, error) {
	rows, err := sess.tx.Query(
		`SELECT id, preferred_name, battle_cry, created_at FROM chat_users
		 WHERE REPLACE(LOWER(preferred_name), ' ', '') LIKE '%' || REPLACE(LOWER(?), ' ', '') || '%'`,
		needle,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*types.ChatUser
	for rows.Next() {
		u, err := scanChatUserRows(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, noMatch("chat_user")
	case 1:
		return matches[0], nil
	default:
		return nil, moreThanOneMatch("chat_user")
	}
}

func scanChatUser(row *sql.Row) (*types.ChatUser, error) {
	var u types.ChatUser
	if err := row.Scan(&u.ID, &u.PreferredName, &u.BattleCry, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, noMatch("chat_user")
		}
		return nil, err
	}
	return &u, nil
}

func scanChatUserRows(rows *sql.Rows) (*types.ChatUser, error) {
	var u types.ChatUser
	if err := rows.Scan(&u.ID, &u.PreferredName, &u.BattleCry, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
