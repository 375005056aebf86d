package dispatcher

import (
	"context"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/chatmodel"
)

// checkPermissions implements spec.md §4.4's three-stage procedure: a
// channel scope (if any rows exist), then a role scope (if any rows
// exist), then an admin-only gate, each independently enforced.
func (d *Dispatcher) checkPermissions(ctx context.Context, spec *CommandSpec, event chatmodel.Event) error {
	sess, err := d.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Finish(&err)

	guildID := event.Guild().ID()

	channels, err := sess.ListChannelPermissions(spec.Name, guildID)
	if err != nil {
		return err
	}
	if len(channels) > 0 {
		allowed := false
		for _, c := range channels {
			if c.ChannelID == event.Channel().ID() {
				allowed = true
				break
			}
		}
		if !allowed {
			return &boterr.PermissionError{Command: spec.Name, Reason: "not allowed in this channel"}
		}
	}

	roles, err := sess.ListRolePermissions(spec.Name, guildID)
	if err != nil {
		return err
	}
	if len(roles) > 0 {
		invokerRoles := event.Guild().RolesOf(event.Author().ID())
		allowed := false
		for _, r := range roles {
			for _, invoker := range invokerRoles {
				if r.RoleID == invoker {
					allowed = true
					break
				}
			}
		}
		if !allowed {
			return &boterr.PermissionError{Command: spec.Name, Reason: "your roles don't include one allowed to run this"}
		}
	}

	if spec.AdminOnly {
		if _, err := sess.GetAdmin(event.Author().ID()); err != nil {
			if isNoMatch(err) {
				return &boterr.PermissionError{Command: spec.Name, Reason: "admin only"}
			}
			return err
		}
	}

	return nil
}
