package dispatcher

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/metrics"
	"github.com/cogbot/cogbot/pkg/selector"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

func adminCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:      "admin",
		Summary:   "administrative operations",
		AdminOnly: true,
		Flags: func(fs *pflag.FlagSet) {
			fs.Bool("leaders", false, "accepted but ignored: the top table does not filter by leadership role")
			fs.String("command", "", "target command name for allow/deny subactions")
			fs.String("channel", "", "target channel id for allow/deny subactions")
			fs.String("role", "", "target role id for allow/deny subactions")
		},
		Handler: adminHandler,
	}
}

func adminHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) == 0 {
		return "", &boterr.UserError{Command: "admin", Reason: "usage: admin {add,remove,cycle,deny,dump,halt,scan,top,addum,removeum,active,cast,info}"}
	}
	sub, rest := call.Args[0], call.Args[1:]

	switch sub {
	case "add":
		return adminAdd(sess, rest)
	case "remove":
		return adminRemove(sess, call)
	case "deny":
		return adminDeny(sess, call, rest)
	case "cycle":
		return adminCycle(ctx, d, call)
	case "scan":
		return adminScan(ctx, d, rest)
	case "dump":
		return adminDump(sess)
	case "halt":
		return adminHalt(d, rest)
	case "top":
		return adminTop(sess, call, rest)
	case "addum":
		return adminAddum(sess, rest)
	case "removeum":
		return adminRemoveum(sess, rest)
	case "active":
		return adminActive(ctx, d)
	case "cast":
		return adminCast(sess, rest)
	case "info":
		return adminInfo(sess)
	default:
		return "", &boterr.UserError{Command: "admin", Reason: "unknown subcommand " + sub}
	}
}

func adminAdd(sess *storage.Session, args []string) (string, error) {
	if len(args) < 1 {
		return "", &boterr.UserError{Command: "admin add", Reason: "usage: admin add USER_ID"}
	}
	if err := sess.AddAdmin(args[0]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is now an admin", args[0]), nil
}

func adminRemove(sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) < 2 {
		return "", &boterr.UserError{Command: "admin remove", Reason: "usage: admin remove USER_ID"}
	}
	actorID := call.ActingUser.ID()
	targetID := call.Args[1]

	senior, err := sess.IsSeniorAdmin(actorID, targetID)
	if err != nil {
		return "", err
	}
	if !senior {
		return "", &boterr.PermissionError{Command: "admin remove", Reason: "only a longer-serving admin may remove another"}
	}
	if err := sess.RemoveAdmin(targetID); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is no longer an admin", targetID), nil
}

func adminDeny(sess *storage.Session, call *Call, args []string) (string, error) {
	if len(args) < 1 {
		return "", &boterr.UserError{Command: "admin deny", Reason: "usage: admin deny COMMAND [--channel ID | --role ID]"}
	}
	command := args[0]
	guildID := call.Event.Guild().ID()

	if channelID, _ := call.Flags.GetString("channel"); channelID != "" {
		if err := sess.DenyChannel(command, guildID, channelID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s no longer scoped to channel %s", command, channelID), nil
	}
	if roleID, _ := call.Flags.GetString("role"); roleID != "" {
		if err := sess.DenyRole(command, guildID, roleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s no longer scoped to role %s", command, roleID), nil
	}
	return "", &boterr.UserError{Command: "admin deny", Reason: "--channel or --role is required"}
}

// adminCycle advances every cyclable document's live worksheet tab, after
// an interactive confirmation since the action touches the live sheets
// rather than just the cache.
func adminCycle(ctx context.Context, d *Dispatcher, call *Call) (string, error) {
	type plan struct {
		name string
		doc  *ManagedDocument
		next string
	}
	var plans []plan
	for name, doc := range d.Documents {
		if doc.Title == nil || doc.ChangeWorksheet == nil {
			continue
		}
		current, err := doc.Title(ctx)
		if err != nil {
			return "", &boterr.RemoteError{Op: "admin cycle: " + name, Err: err}
		}
		next, err := nextTab(current)
		if err != nil {
			return "", &boterr.UserError{Command: "admin cycle", Reason: name + ": " + err.Error()}
		}
		plans = append(plans, plan{name: name, doc: doc, next: next})
	}
	if len(plans) == 0 {
		return "no cyclable documents registered", nil
	}

	summary := make([]string, len(plans))
	for i, p := range plans {
		summary[i] = fmt.Sprintf("%s -> %s", p.name, p.next)
	}
	idx, err := d.ask(ctx, call.Event, "cycle these worksheets?", []string{
		"yes, cycle " + strings.Join(summary, ", "),
		"no, cancel",
	})
	if err != nil {
		return "", err
	}
	if idx != 0 {
		return "cycle cancelled", nil
	}

	var advanced []string
	for _, p := range plans {
		if err := p.doc.ChangeWorksheet(ctx, p.next); err != nil {
			return "", &boterr.RemoteError{Op: "admin cycle: " + p.name, Err: err}
		}
		advanced = append(advanced, fmt.Sprintf("%s -> %s", p.name, p.next))
	}
	return "cycled: " + strings.Join(advanced, ", "), nil
}

var tabSuffix = regexp.MustCompile(`^(.*?)(\d+)$`)

// nextTab increments the trailing numeric suffix of a worksheet tab name,
// e.g. "Cycle 12" -> "Cycle 13", failing if there is no numeric suffix to
// increment (spec.md §4.4: revert on an unparseable or missing next tab).
func nextTab(current string) (string, error) {
	m := tabSuffix.FindStringSubmatch(current)
	if m == nil {
		return "", fmt.Errorf("tab name %q has no numeric suffix to cycle", current)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", m[1], n+1), nil
}

func adminScan(ctx context.Context, d *Dispatcher, args []string) (string, error) {
	if len(args) == 0 {
		var scanned []string
		for name, doc := range d.Documents {
			if doc.Scan == nil {
				continue
			}
			if err := d.scanOne(ctx, name, doc); err != nil {
				return "", err
			}
			scanned = append(scanned, name)
		}
		return "rescanned: " + strings.Join(scanned, ", "), nil
	}
	doc, ok := d.Documents[args[0]]
	if !ok {
		return "", &boterr.UserError{Command: "admin scan", Reason: "no such document " + args[0]}
	}
	if err := d.scanOne(ctx, args[0], doc); err != nil {
		return "", err
	}
	return args[0] + " rescanned", nil
}

// scanOne runs doc's scan inside its own session, separate from the
// caller's, since a full rescan replaces rows the caller's session may
// also be reading.
func (d *Dispatcher) scanOne(ctx context.Context, name string, doc *ManagedDocument) error {
	timer := metrics.NewTimer()
	sess, err := d.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Finish(&err)

	if err = doc.Scan(ctx, sess); err != nil {
		metrics.ScanFailuresTotal.WithLabelValues(name).Inc()
		return &boterr.SheetParsingError{Document: name, Reason: err.Error()}
	}
	metrics.ScanDuration.WithLabelValues(name).Observe(timer.Duration().Seconds())
	return nil
}

func adminDump(sess *storage.Session) (string, error) {
	admins, err := sess.ListAdmins()
	if err != nil {
		return "", err
	}
	targets, err := sess.ListFortTargets()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "admins: %d\n", len(admins))
	fmt.Fprintf(&b, "fort targets: %d\n", len(targets))
	return strings.TrimRight(b.String(), "\n"), nil
}

func adminHalt(d *Dispatcher, args []string) (string, error) {
	if len(args) == 0 {
		return "", &boterr.UserError{Command: "admin halt", Reason: "usage: admin halt TASK_NAME"}
	}
	if err := d.Supervisor.Restart(args[0]); err != nil {
		return "", &boterr.UserError{Command: "admin halt", Reason: err.Error()}
	}
	return args[0] + " restarted", nil
}

func adminTop(sess *storage.Session, call *Call, args []string) (string, error) {
	n := 10
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil {
			n = parsed
		}
	}
	entries, err := selector.TotalMerits(sess)
	if err != nil {
		return "", err
	}
	if n < len(entries) {
		entries = entries[:n]
	}
	return formatMerits(entries), nil
}

func adminAddum(sess *storage.Session, args []string) (string, error) {
	if len(args) < 1 {
		return "", &boterr.UserError{Command: "admin addum", Reason: "usage: admin addum NAME"}
	}
	row, err := sess.NextFreeUmRow(types.UmSheetMain)
	if err != nil {
		return "", err
	}
	c := &types.UmContributor{SheetKind: types.UmSheetMain, Name: args[0], Row: row}
	if err := sess.CreateUmContributor(c); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s added to the undermining sheet at row %d", args[0], row), nil
}

func adminRemoveum(sess *storage.Session, args []string) (string, error) {
	if len(args) < 1 {
		return "", &boterr.UserError{Command: "admin removeum", Reason: "usage: admin removeum NAME"}
	}
	c, err := sess.FindUmContributorByName(types.UmSheetMain, args[0])
	if err != nil {
		return "", err
	}
	if err := sess.ResetHeldForContributor(types.UmSheetMain, c.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s's held merits cleared", c.Name), nil
}

func adminActive(ctx context.Context, d *Dispatcher) (string, error) {
	rows := d.Supervisor.StatusTable()
	if len(rows) == 0 {
		return "no background tasks registered", nil
	}
	var b strings.Builder
	for _, r := range rows {
		line := fmt.Sprintf("%s: %s", r.Name, r.State)
		if r.Cause != "" {
			line += " (" + r.Cause + ")"
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func adminCast(sess *storage.Session, args []string) (string, error) {
	if len(args) < 1 {
		return "", &boterr.UserError{Command: "admin cast", Reason: "usage: admin cast CYCLE_NUMBER [CONSOLIDATION_PCT]"}
	}
	cycle, err := strconv.Atoi(args[0])
	if err != nil {
		return "", &boterr.UserError{Command: "admin cast", Reason: "cycle must be a whole number"}
	}
	consolidation := 0.0
	if len(args) > 1 {
		consolidation, _ = strconv.ParseFloat(args[1], 64)
	}
	if err := sess.PutGlobal(&types.Global{Cycle: cycle, Consolidation: consolidation, UpdatedAt: time.Now()}); err != nil {
		return "", err
	}
	return fmt.Sprintf("cycle advanced to %d", cycle), nil
}

func adminInfo(sess *storage.Session) (string, error) {
	g, err := sess.GetGlobal()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("cycle %d, consolidation %.1f%%, updated %s", g.Cycle, g.Consolidation*100, g.UpdatedAt.Format(time.RFC3339)), nil
}
