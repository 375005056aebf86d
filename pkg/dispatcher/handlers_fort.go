package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/selector"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// resolveFortTarget finds needle's fort target by substring match,
// prompting the invoker to pick one when the match is ambiguous rather
// than rejecting the command outright.
func resolveFortTarget(ctx context.Context, d *Dispatcher, sess *storage.Session, event chatmodel.Event, needle string) (*types.FortTarget, error) {
	t, err := sess.FindFortTargetByName(needle)
	if err == nil {
		return t, nil
	}
	if !isAmbiguous(err) {
		return nil, err
	}

	all, lerr := sess.ListFortTargets()
	if lerr != nil {
		return nil, lerr
	}
	norm := normalizeMatch(needle)
	var names []string
	for _, c := range all {
		if strings.Contains(normalizeMatch(c.Name), norm) {
			names = append(names, c.Name)
		}
	}
	idx, aerr := d.ask(ctx, event, fmt.Sprintf("%q matches more than one target, pick one:", needle), names)
	if aerr != nil {
		return nil, aerr
	}
	return sess.GetFortTargetByName(names[idx])
}

const fortDocument = "fort"

func fortCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:     "fort",
		Summary:  "show or mutate fortification state",
		Document: fortDocument,
		Flags: func(fs *pflag.FlagSet) {
			fs.Int("next", 0, "also show the next N eligible targets")
			fs.Int("miss", -1, "list non-fortified, non-skipped targets missing at most N")
			fs.String("order", "", "comma-separated manual order; empty clears it")
			fs.Bool("details", false, "show full per-target detail")
			fs.Bool("summary", false, "show the fortified/undermined/skipped partition")
		},
		Handler: fortHandler,
	}
}

func fortHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	cfg := d.Config.Get()

	if call.Flags.Changed("order") {
		raw, _ := call.Flags.GetString("order")
		names := splitList(raw)
		if err := sess.ReplaceFortOrder(names); err != nil {
			return "", err
		}
		if len(names) == 0 {
			return "manual fort order cleared", nil
		}
		return "manual fort order set: " + strings.Join(names, ", "), nil
	}

	if summary, _ := call.Flags.GetBool("summary"); summary {
		parts, err := selector.FortPartition(sess)
		if err != nil {
			return "", err
		}
		return formatFortPartition(parts), nil
	}

	if missFlag := mustInt(call.Flags, "miss"); missFlag >= 0 {
		all, err := sess.ListFortTargets()
		if err != nil {
			return "", err
		}
		var out []*types.FortTarget
		for _, t := range all {
			sum, err := sess.SumFortContributions(t.ID)
			if err != nil {
				return "", err
			}
			status := selector.FortCurrentStatus(t, sum)
			if selector.IsFortified(t, status) || selector.IsSkipped(t) {
				continue
			}
			if selector.FortMissing(t, status) <= missFlag {
				out = append(out, t)
			}
		}
		return formatFortTargets(sess, out), nil
	}

	if len(call.Args) > 0 {
		var out []*types.FortTarget
		for _, name := range call.Args {
			t, err := resolveFortTarget(ctx, d, sess, call.Event, name)
			if err != nil {
				return "", err
			}
			out = append(out, t)
		}
		return formatFortTargets(sess, out), nil
	}

	current, err := selector.FortCurrent(sess, cfg.DeferMissing)
	if err != nil {
		return "", err
	}

	if n := mustInt(call.Flags, "next"); n > 0 {
		next, err := selector.FortNext(sess, cfg.DeferMissing, n)
		if err != nil {
			return "", err
		}
		current = append(current, next...)
	}

	details, _ := call.Flags.GetBool("details")
	if details {
		return formatFortTargets(sess, current), nil
	}
	return formatFortSummary(current), nil
}

func mustInt(fs *pflag.FlagSet, name string) int {
	n, _ := fs.GetInt(name)
	return n
}

func formatFortSummary(targets []*types.FortTarget) string {
	if len(targets) == 0 {
		return "nothing to fortify right now"
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func formatFortTargets(sess *storage.Session, targets []*types.FortTarget) string {
	if len(targets) == 0 {
		return "no matching targets"
	}
	var b strings.Builder
	for _, t := range targets {
		sum, err := sess.SumFortContributions(t.ID)
		if err != nil {
			continue
		}
		current := selector.FortCurrentStatus(t, sum)
		fmt.Fprintf(&b, "%s: %d/%d missing %d%s\n",
			t.Name, current, t.Trigger, selector.FortMissing(t, current), fortAnnotations(t, current))
	}
	return strings.TrimRight(b.String(), "\n")
}

func fortAnnotations(t *types.FortTarget, current int) string {
	var flags []string
	if selector.IsFortified(t, current) {
		flags = append(flags, "fortified")
	}
	if selector.IsUndermined(t) {
		flags = append(flags, "undermined")
	}
	if selector.IsSkipped(t) {
		flags = append(flags, "skipped")
	}
	if len(flags) == 0 {
		return ""
	}
	return " [" + strings.Join(flags, ", ") + "]"
}

func formatFortPartition(p *selector.FortByState) string {
	var b strings.Builder
	write := func(label string, targets []*types.FortTarget) {
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = t.Name
		}
		fmt.Fprintf(&b, "%s (%d): %s\n", label, len(targets), strings.Join(names, ", "))
	}
	write("fortified", p.Fortified)
	write("undermined", p.Undermined)
	write("cancelled", p.Cancelled)
	write("skipped", p.Skipped)
	write("left", p.Left)
	return strings.TrimRight(b.String(), "\n")
}

func dropCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:     "drop",
		Summary:  "add a fortification contribution",
		Document: fortDocument,
		Handler:  dropHandler,
	}
}

func dropHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) < 2 {
		return "", &boterr.UserError{Command: "drop", Reason: "usage: drop AMOUNT SYSTEM [@user]"}
	}
	cfg := d.Config.Get()

	amount, err := parseSignedAmount("drop", call.Args[0], cfg.MaxDrop)
	if err != nil {
		return "", err
	}
	target, err := resolveFortTarget(ctx, d, sess, call.Event, call.Args[1])
	if err != nil {
		return "", err
	}

	actor, err := ensureChatUser(sess, call.ActingUser)
	if err != nil {
		return "", err
	}
	contributor, created, err := ensureFortContributor(sess, actor.PreferredName, actor.BattleCry)
	if err != nil {
		return "", err
	}
	if created {
		if werr := d.writeSheet(ctx, fortDocument, sheets.UserRowUpdate(fortDocument, contributor.Row, contributor.Name, contributor.BattleCry)); werr != nil {
			return "", werr
		}
	}

	before, err := sess.SumFortContributions(target.ID)
	if err != nil {
		return "", err
	}
	contribution, err := sess.ApplyFortDrop(contributor.ID, target.ID, amount)
	if err != nil {
		return "", err
	}
	after, err := sess.SumFortContributions(target.ID)
	if err != nil {
		return "", err
	}

	if werr := d.writeSheet(ctx, fortDocument,
		sheets.SingleCellUpdate(fortDocument, sheets.Column(target.SheetColumn), contributor.Row, strconv.Itoa(contribution.Amount)),
	); werr != nil {
		return "", werr
	}

	wasFortified := selector.IsFortified(target, selector.FortCurrentStatus(target, before))
	isFortifiedNow := selector.IsFortified(target, selector.FortCurrentStatus(target, after))

	reply := fmt.Sprintf("%s dropped %d on %s (%d/%d)", contributor.Name, amount, target.Name, after, target.Trigger)
	if !wasFortified && isFortifiedNow {
		reply += "\n" + congratulations(sess, target, cfg.DeferMissing)
	}
	if line := awardDropAchievements(sess, actor.ID, target); line != "" {
		reply += "\n" + line
	}
	return reply, nil
}

// awardDropAchievements grants "first drop" on a contributor's very first
// contribution and "fort completionist" the moment nothing is left to
// fortify, computed opportunistically rather than on a schedule.
func awardDropAchievements(sess *storage.Session, userID string, target *types.FortTarget) string {
	var lines []string

	if awarded, err := sess.AwardAchievement(userID, types.AchievementFirstDrop); err == nil && awarded {
		lines = append(lines, "achievement unlocked: first drop")
	}

	parts, err := selector.FortPartition(sess)
	if err == nil && len(parts.Left) == 0 {
		if awarded, aerr := sess.AwardAchievement(userID, types.AchievementFortCompletionist); aerr == nil && awarded {
			lines = append(lines, "achievement unlocked: fort completionist")
		}
	}

	return strings.Join(lines, "\n")
}

func congratulations(sess *storage.Session, target *types.FortTarget, deferThreshold int) string {
	contribs, err := sess.ListFortContributionsByTarget(target.ID)
	if err != nil {
		return fmt.Sprintf("%s is fortified!", target.Name)
	}
	contributors, err := sess.ListFortContributors()
	if err != nil {
		return fmt.Sprintf("%s is fortified!", target.Name)
	}
	tied := tiedTopContributors(contribs, contributors)

	next, err := selector.FortNext(sess, deferThreshold, 1)
	nextLine := ""
	if err == nil && len(next) > 0 {
		nextLine = fmt.Sprintf(" next up: %s", next[0].Name)
	}

	if len(tied) == 0 {
		return fmt.Sprintf("%s is fortified!%s", target.Name, nextLine)
	}
	return fmt.Sprintf("%s is fortified! top contributors: %s.%s", target.Name, strings.Join(tied, ", "), nextLine)
}

func holdCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:     "hold",
		Summary:  "hold or redeem undermining merits",
		Document: "um",
		Flags: func(fs *pflag.FlagSet) {
			fs.Bool("died", false, "reset all held merits to zero")
			fs.Bool("redeem", false, "move held merits into redeemed")
			fs.String("redeem-systems", "", "comma-separated systems to redeem; default is all held")
		},
		Handler: holdHandler,
	}
}

func holdHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	actor, err := ensureChatUser(sess, call.ActingUser)
	if err != nil {
		return "", err
	}
	contributor, _, err := ensureUmContributor(sess, types.UmSheetMain, actor.PreferredName, actor.BattleCry)
	if err != nil {
		return "", err
	}

	if died, _ := call.Flags.GetBool("died"); died {
		if err := sess.ResetHeldForContributor(types.UmSheetMain, contributor.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s's held merits reset to zero", contributor.Name), nil
	}

	if redeem, _ := call.Flags.GetBool("redeem"); redeem {
		var targetIDs []int64
		if raw, _ := call.Flags.GetString("redeem-systems"); raw != "" {
			for _, name := range splitList(raw) {
				t, err := sess.FindUmTargetByName(types.UmSheetMain, name)
				if err != nil {
					return "", err
				}
				targetIDs = append(targetIDs, t.ID)
			}
		}
		redeemed, err := sess.RedeemHeldForContributor(types.UmSheetMain, contributor.ID, targetIDs)
		if err != nil {
			return "", err
		}
		targets, err := sess.ListUmTargets(types.UmSheetMain)
		if err != nil {
			return "", err
		}
		names := make(map[int64]string, len(targets))
		for _, t := range targets {
			names[t.ID] = t.Name
		}

		total := 0
		lines := make([]string, 0, len(redeemed))
		for targetID, amount := range redeemed {
			total += amount
			name := names[targetID]
			if name == "" {
				name = fmt.Sprintf("target #%d", targetID)
			}
			lines = append(lines, fmt.Sprintf("%s: %d", name, amount))
		}
		sort.Strings(lines)

		var b strings.Builder
		fmt.Fprintf(&b, "%s redeemed %d merits across %d system(s)", contributor.Name, total, len(redeemed))
		for _, line := range lines {
			fmt.Fprintf(&b, "\n  %s", line)
		}
		return b.String(), nil
	}

	if len(call.Args) < 2 {
		return "", &boterr.UserError{Command: "hold", Reason: "usage: hold AMOUNT SYSTEM [@user]"}
	}
	amount, err := strconv.Atoi(call.Args[0])
	if err != nil || amount < 0 {
		return "", &boterr.UserError{Command: "hold", Reason: "amount must be a non-negative whole number"}
	}
	target, err := sess.FindUmTargetByName(types.UmSheetMain, call.Args[1])
	if err != nil {
		return "", err
	}
	if err := sess.SetUmHold(types.UmSheetMain, contributor.ID, target.ID, amount); err != nil {
		return "", err
	}
	reply := fmt.Sprintf("%s now holds %d on %s", contributor.Name, amount, target.Name)
	if awarded, aerr := sess.AwardAchievement(actor.ID, types.AchievementFirstHold); aerr == nil && awarded {
		reply += "\nachievement unlocked: first hold"
	}
	return reply, nil
}
