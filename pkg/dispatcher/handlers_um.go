package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/selector"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

func umCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:     "um",
		Summary:  "show or mutate undermining state",
		Document: "um",
		Flags: func(fs *pflag.FlagSet) {
			fs.String("set", "", "U:T — set progress_us:expansion_trigger on the named system")
			fs.Int("offset", -1<<31, "set the named system's map offset")
			fs.String("priority", "", "set the named system's priority label")
			fs.Bool("list", false, "show the undermining merits leaderboard")
			fs.Bool("npcs", false, "operate on the NPC-snipe sheet instead of the main sheet")
		},
		Handler: umHandler,
	}
}

func umHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	npcs, _ := call.Flags.GetBool("npcs")
	kind := types.UmSheetMain
	if npcs {
		kind = types.UmSheetSnipe
	}

	if list, _ := call.Flags.GetBool("list"); list {
		entries, err := selector.UmMeritsBySheet(sess, kind)
		if err != nil {
			return "", err
		}
		return formatMerits(entries), nil
	}

	if len(call.Args) == 0 {
		views, err := selector.UmTargetViews(sess, kind)
		if err != nil {
			return "", err
		}
		return formatUmTargetViews(views), nil
	}

	target, err := sess.FindUmTargetByName(kind, call.Args[0])
	if err != nil {
		return "", err
	}

	changed := false
	if raw, _ := call.Flags.GetString("set"); raw != "" {
		us, trigger, perr := parseColonPair("um", raw)
		if perr != nil {
			return "", perr
		}
		target.ProgressUs = us
		target.ExpansionTrigger = trigger
		changed = true
	}
	if offset := mustInt(call.Flags, "offset"); offset != -1<<31 {
		target.MapOffset = offset
		changed = true
	}
	if priority, _ := call.Flags.GetString("priority"); priority != "" {
		target.Priority = priority
		changed = true
	}

	if changed {
		if err := sess.UpdateUmTarget(target); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s updated", target.Name), nil
	}

	sum, err := sess.SumUmContribution(target.ID)
	if err != nil {
		return "", err
	}
	return formatUmTarget(target, sum), nil
}

func parseColonPair(command, raw string) (int, int, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, 0, &boterr.UserError{Command: command, Reason: "--set expects U:T"}
	}
	a, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, &boterr.UserError{Command: command, Reason: "--set expects two whole numbers separated by ':'"}
	}
	return a, b, nil
}

func formatMerits(entries []selector.MeritsEntry) string {
	if len(entries) == 0 {
		return "no contributions yet"
	}
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s — %d\n", i+1, e.Name, e.Merits)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatUmTargetViews(views []selector.UmTargetView) string {
	if len(views) == 0 {
		return "no targets tracked"
	}
	var b strings.Builder
	for _, v := range views {
		fmt.Fprintf(&b, "%s: missing %d%s\n", v.Target.Name, v.Missing, umAnnotation(v))
	}
	return strings.TrimRight(b.String(), "\n")
}

func umAnnotation(v selector.UmTargetView) string {
	if v.Target.Subkind == types.UmSubkindExpansion {
		return " (" + selector.ExpansionProgressLabel(v.Target) + ")"
	}
	if v.IsUndermined {
		return " [undermined]"
	}
	return ""
}

func formatUmTarget(t *types.UmTarget, sum int) string {
	if t.Subkind == types.UmSubkindExpansion {
		return fmt.Sprintf("%s: %s", t.Name, selector.ExpansionProgressLabel(t))
	}
	missing := selector.UmControlMissing(t, sum)
	return fmt.Sprintf("%s: missing %d (security %s, priority %s)", t.Name, missing, t.Security, t.Priority)
}
