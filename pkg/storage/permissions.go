package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/types"
)

// --- AdminPermission -----------------------------------------------------

// AddAdmin grants admin to userID. CreatedAt defaults to now, establishing
// this admin's removal seniority relative to admins added later.
func (sess *Session) AddAdmin(userID string) error {
	_, err := sess.tx.Exec(
		`INSERT INTO admin_permissions (user_id, created_at) VALUES (?, ?)`, userID, time.Now(),
	)
	if isUniqueViolation(err) {
		return integrityConflict("admin_permission", "user is already an admin", err)
	}
	return err
}

// RemoveAdmin removes targetID's admin grant, enforced by the caller's
// seniority check via IsSeniorAdmin. Returns NoMatch if targetID is not an
// admin.
func (sess *Session) RemoveAdmin(targetID string) error {
	res, err := sess.tx.Exec(`DELETE FROM admin_permissions WHERE user_id = ?`, targetID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return noMatch("admin_permission")
	}
	return nil
}

// IsSeniorAdmin reports whether actorID's admin grant predates targetID's,
// per spec.md §4.4's "seniority wins" rule: only a strictly earlier-created
// admin may remove another.
func (sess *Session) IsSeniorAdmin(actorID, targetID string) (bool, error) {
	actor, err := sess.GetAdmin(actorID)
	if err != nil {
		return false, err
	}
	target, err := sess.GetAdmin(targetID)
	if err != nil {
		return false, err
	}
	return actor.CreatedAt.Before(target.CreatedAt), nil
}

// GetAdmin returns targetID's AdminPermission, or NoMatch.
func (sess *Session) GetAdmin(userID string) (*types.AdminPermission, error) {
	var a types.AdminPermission
	err := sess.tx.QueryRow(
		`SELECT user_id, created_at FROM admin_permissions WHERE user_id = ?`, userID,
	).Scan(&a.UserID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noMatch("admin_permission")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAdmins returns every admin, oldest first.
func (sess *Session) ListAdmins() ([]*types.AdminPermission, error) {
	rows, err := sess.tx.Query(`SELECT user_id, created_at FROM admin_permissions ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.AdminPermission
	for rows.Next() {
		var a types.AdminPermission
		if err := rows.Scan(&a.UserID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// --- ChannelPermission / RolePermission -----------------------------------

// AllowChannel scopes command to channelID within guildID. Returns a
// UserError if that scope is already granted (spec.md §4.4: adding twice
// is a command-args error, not a silent no-op).
func (sess *Session) AllowChannel(command, guildID, channelID string) error {
	existing, err := sess.ListChannelPermissions(command, guildID)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p.ChannelID == channelID {
			return &boterr.UserError{Command: command, Reason: "already exists"}
		}
	}
	_, err = sess.tx.Exec(
		`INSERT INTO channel_permissions (command, guild_id, channel_id) VALUES (?, ?, ?)`,
		command, guildID, channelID,
	)
	return err
}

// DenyChannel removes a previously granted channel scope. Returns a
// UserError if no such scope exists (spec.md §4.4: removing a missing
// one is the same class of error as adding a duplicate).
func (sess *Session) DenyChannel(command, guildID, channelID string) error {
	res, err := sess.tx.Exec(
		`DELETE FROM channel_permissions WHERE command = ? AND guild_id = ? AND channel_id = ?`,
		command, guildID, channelID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &boterr.UserError{Command: command, Reason: "no such channel scope"}
	}
	return nil
}

// ListChannelPermissions returns every channel scope for (command, guildID).
// An empty result means the command is unscoped (allowed everywhere).
func (sess *Session) ListChannelPermissions(command, guildID string) ([]*types.ChannelPermission, error) {
	rows, err := sess.tx.Query(
		`SELECT command, guild_id, channel_id FROM channel_permissions WHERE command = ? AND guild_id = ?`,
		command, guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.ChannelPermission
	for rows.Next() {
		var p types.ChannelPermission
		if err := rows.Scan(&p.Command, &p.GuildID, &p.ChannelID); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// AllowRole scopes command to roleID within guildID. Returns a UserError
// if that scope is already granted.
func (sess *Session) AllowRole(command, guildID, roleID string) error {
	existing, err := sess.ListRolePermissions(command, guildID)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p.RoleID == roleID {
			return &boterr.UserError{Command: command, Reason: "already exists"}
		}
	}
	_, err = sess.tx.Exec(
		`INSERT INTO role_permissions (command, guild_id, role_id) VALUES (?, ?, ?)`,
		command, guildID, roleID,
	)
	return err
}

// DenyRole removes a previously granted role scope. Returns a UserError
// if no such scope exists.
func (sess *Session) DenyRole(command, guildID, roleID string) error {
	res, err := sess.tx.Exec(
		`DELETE FROM role_permissions WHERE command = ? AND guild_id = ? AND role_id = ?`,
		command, guildID, roleID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &boterr.UserError{Command: command, Reason: "no such role scope"}
	}
	return nil
}

// ListRolePermissions returns every role scope for (command, guildID). An
// empty result means the command is unscoped by role.
func (sess *Session) ListRolePermissions(command, guildID string) ([]*types.RolePermission, error) {
	rows, err := sess.tx.Query(
		`SELECT command, guild_id, role_id FROM role_permissions WHERE command = ? AND guild_id = ?`,
		command, guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.RolePermission
	for rows.Next() {
		var p types.RolePermission
		if err := rows.Scan(&p.Command, &p.GuildID, &p.RoleID); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
