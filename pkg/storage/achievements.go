package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cogbot/cogbot/pkg/types"
)

// AwardAchievement records userID earning key, returning false without
// error if the user already holds it — awarding is meant to be called
// opportunistically after every drop/hold, so repeats are expected.
func (sess *Session) AwardAchievement(userID, key string) (bool, error) {
	_, err := sess.GetAchievement(userID, key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNoMatch) {
		return false, err
	}
	_, err = sess.tx.Exec(
		`INSERT INTO achievements (user_id, key, awarded_at) VALUES (?, ?, ?)`,
		userID, key, time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetAchievement looks up one (userID, key) award.
func (sess *Session) GetAchievement(userID, key string) (*types.Achievement, error) {
	row := sess.tx.QueryRow(
		`SELECT id, user_id, key, awarded_at FROM achievements WHERE user_id = ? AND key = ?`,
		userID, key,
	)
	var a types.Achievement
	err := row.Scan(&a.ID, &a.UserID, &a.Key, &a.AwardedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("achievement")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAchievementsByUser returns every award userID holds, oldest first.
func (sess *Session) ListAchievementsByUser(userID string) ([]*types.Achievement, error) {
	rows, err := sess.tx.Query(
		`SELECT id, user_id, key, awarded_at FROM achievements WHERE user_id = ? ORDER BY awarded_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Achievement
	for rows.Next() {
		var a types.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Key, &a.AwardedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
