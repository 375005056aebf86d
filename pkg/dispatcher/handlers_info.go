package dispatcher

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/catalog"
	"github.com/cogbot/cogbot/pkg/storage"
)

func nearCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:    "near",
		Summary: "find known stations of a kind near a system",
		Flags: func(fs *pflag.FlagSet) {
			fs.Float64("ly", 25, "search radius in light years")
		},
		Handler: nearHandler,
	}
}

func nearHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) < 2 {
		return "", &boterr.UserError{Command: "near", Reason: "usage: near KIND SYSTEM [--ly N]"}
	}
	kind, origin := call.Args[0], call.Args[1]
	if _, ok := d.Systems.Lookup(origin); !ok {
		return "", &boterr.NotFound{Entity: "system", Needle: origin}
	}
	radius, _ := call.Flags.GetFloat64("ly")

	candidates := d.Systems.WithinDistance(origin, radius)
	var hits []string
	for _, name := range candidates {
		for _, st := range d.Stations.InSystem(name) {
			if strings.Contains(strings.ToLower(st.Type), strings.ToLower(kind)) {
				hits = append(hits, fmt.Sprintf("%s (%s, %s)", name, st.Name, st.Type))
			}
		}
	}
	sort.Strings(hits)
	if len(hits) == 0 {
		return fmt.Sprintf("no %s stations within %.0f ly of %s", kind, radius, origin), nil
	}
	return strings.Join(hits, "\n"), nil
}

func routeCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:    "route",
		Summary: "plot a greedy nearest-hop route between two systems",
		Flags: func(fs *pflag.FlagSet) {
			fs.Float64("range", 20, "jump range in light years")
		},
		Handler: routeHandler,
	}
}

func routeHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) < 2 {
		return "", &boterr.UserError{Command: "route", Reason: "usage: route FROM TO [--range N]"}
	}
	from, to := call.Args[0], call.Args[1]
	jumpRange, _ := call.Flags.GetFloat64("range")

	origin, ok := d.Systems.Lookup(from)
	if !ok {
		return "", &boterr.NotFound{Entity: "system", Needle: from}
	}
	dest, ok := d.Systems.Lookup(to)
	if !ok {
		return "", &boterr.NotFound{Entity: "system", Needle: to}
	}

	jobAny, err := d.Pool.Submit(ctx, func(ctx context.Context) (any, error) {
		return plotRoute(d, from, origin, dest, jumpRange), nil
	})
	if err != nil {
		return "", err
	}
	hops := jobAny.([]string)
	if hops == nil {
		return "", &boterr.UserError{Command: "route", Reason: "no route found within the given jump range"}
	}
	return strings.Join(hops, " -> "), nil
}

// plotRoute greedily hops to the unvisited system within range that lies
// closest to dest (even if that is no closer than the current system),
// stopping after a generous hop budget
// so an unreachable target fails fast rather than looping.
func plotRoute(d *Dispatcher, from string, origin, dest catalog.SystemCoord, jumpRange float64) []string {
	route := []string{from}
	current := origin
	visited := map[string]bool{from: true}

	for hop := 0; hop < 50; hop++ {
		if current == dest {
			return route
		}
		candidates := d.Systems.WithinDistance(route[len(route)-1], jumpRange)
		best := ""
		bestDist := math.Inf(1)
		for _, name := range candidates {
			if visited[name] {
				continue
			}
			coord, ok := d.Systems.Lookup(name)
			if !ok {
				continue
			}
			dist := euclid(coord.X, coord.Y, coord.Z, dest.X, dest.Y, dest.Z)
			if dist < bestDist {
				bestDist = dist
				best = name
				current = coord
			}
		}
		if best == "" {
			return nil
		}
		route = append(route, best)
		visited[best] = true
	}
	return nil
}

func euclid(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx, dy, dz := x1-x2, y1-y2, z1-z2
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func distCommandSpec() *CommandSpec {
	return &CommandSpec{Name: "dist", Summary: "straight-line distance between two systems", Handler: distHandler}
}

func distHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) < 2 {
		return "", &boterr.UserError{Command: "dist", Reason: "usage: dist SYSTEM_A SYSTEM_B"}
	}
	a, ok := d.Systems.Lookup(call.Args[0])
	if !ok {
		return "", &boterr.NotFound{Entity: "system", Needle: call.Args[0]}
	}
	b, ok := d.Systems.Lookup(call.Args[1])
	if !ok {
		return "", &boterr.NotFound{Entity: "system", Needle: call.Args[1]}
	}
	return fmt.Sprintf("%.2f ly", euclid(a.X, a.Y, a.Z, b.X, b.Y, b.Z)), nil
}

func triggerCommandSpec() *CommandSpec {
	return &CommandSpec{Name: "trigger", Summary: "show a fortification target's trigger", Handler: triggerHandler}
}

func triggerHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) < 1 {
		return "", &boterr.UserError{Command: "trigger", Reason: "usage: trigger SYSTEM"}
	}
	t, err := resolveFortTarget(ctx, d, sess, call.Event, call.Args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s trigger: %d", t.Name, t.Trigger), nil
}

func scoutCommandSpec() *CommandSpec {
	return &CommandSpec{Name: "scout", Summary: "show the latest power-play snapshot for a system", Handler: scoutHandler}
}

func scoutHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) < 1 {
		return "", &boterr.UserError{Command: "scout", Reason: "usage: scout SYSTEM"}
	}
	system := call.Args[0]

	sys, err := d.Store.GetSpySystem(ctx, system)
	if err != nil {
		return "", err
	}
	votes, err := d.Store.ListSpyVotes(ctx, system)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: controlled by %s\n", sys.SystemName, sys.ControllingPower)
	for _, v := range votes {
		fmt.Fprintf(&b, "  %s: %.1f%%\n", v.Power, v.Percent)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func timeCommandSpec() *CommandSpec {
	return &CommandSpec{Name: "time", Summary: "show the current UTC time", Handler: timeHandler}
}

func timeHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	return time.Now().UTC().Format("2006-01-02 15:04:05 MST"), nil
}

func whoisCommandSpec() *CommandSpec {
	return &CommandSpec{Name: "whois", Summary: "look up a commander on the KOS list", Handler: whoisHandler}
}

func whoisHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) < 1 {
		return "", &boterr.UserError{Command: "whois", Reason: "usage: whois CMDR_NAME"}
	}
	e, err := sess.FindKosEntryByName(strings.Join(call.Args, " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s): %s — %s", e.CmdrName, e.Squad, friendlyLabel(e.Friendly), e.Reason), nil
}

func userCommandSpec() *CommandSpec {
	return &CommandSpec{Name: "user", Summary: "show your registered identity and merit totals", Handler: userHandler}
}

func userHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	actor, err := ensureChatUser(sess, call.ActingUser)
	if err != nil {
		return "", err
	}
	reply := fmt.Sprintf("%s (battle cry: %q, registered %s)", actor.PreferredName, actor.BattleCry, actor.CreatedAt.Format("2006-01-02"))

	achievements, err := sess.ListAchievementsByUser(actor.ID)
	if err == nil && len(achievements) > 0 {
		keys := make([]string, len(achievements))
		for i, a := range achievements {
			keys[i] = a.Key
		}
		reply += "\nachievements: " + strings.Join(keys, ", ")
	}
	return reply, nil
}

func feedbackCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:    "feedback",
		Summary: "relay a message to the maintainer",
		Handler: feedbackHandler,
	}
}

func feedbackHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) == 0 {
		return "", &boterr.UserError{Command: "feedback", Reason: "usage: feedback MESSAGE"}
	}
	d.logger.Info().Str("author", call.ActingUser.ID()).Str("message", strings.Join(call.Args, " ")).Msg("feedback received")
	if d.Maintainer != "" {
		return fmt.Sprintf("thanks, relayed to %s", d.Maintainer), nil
	}
	return "thanks, noted", nil
}

func statusCommandSpec() *CommandSpec {
	return &CommandSpec{Name: "status", Summary: "show background task liveness", Handler: statusHandler}
}

func statusHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	return adminActive(ctx, d)
}

func repairCommandSpec() *CommandSpec {
	return &CommandSpec{Name: "repair", Summary: "alias of `status`", Handler: statusHandler}
}

func helpCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:    "help",
		Summary: "show this message",
		Handler: func(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
			return d.helpText(), nil
		},
	}
}
