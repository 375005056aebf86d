package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/storage"
)

const carrierDocument = "carrier_ids"

func trackCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:      "track",
		Summary:   "manage watched systems and the carrier roster",
		Document:  "track",
		AdminOnly: true,
		Handler:   trackHandler,
	}
}

func trackHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) == 0 {
		return "", &boterr.UserError{Command: "track", Reason: "usage: track {add,remove,ids,show,channel,scan}"}
	}
	sub, rest := call.Args[0], call.Args[1:]

	switch sub {
	case "add":
		return trackAdd(ctx, d, sess, rest)
	case "remove":
		return trackRemove(ctx, d, sess, rest)
	case "ids":
		return trackIDs(sess)
	case "show":
		return trackShow(sess)
	case "channel":
		return fmt.Sprintf("carrier alerts currently post to %s", d.Config.Get().CarrierChannel), nil
	case "scan":
		doc, ok := d.Documents[carrierDocument]
		if !ok {
			return "", &boterr.UserError{Command: "track scan", Reason: "no carrier document registered"}
		}
		if err := d.scanOne(ctx, carrierDocument, doc); err != nil {
			return "", err
		}
		return "carrier roster rescanned", nil
	default:
		return "", &boterr.UserError{Command: "track", Reason: "unknown subcommand " + sub}
	}
}

func trackAdd(ctx context.Context, d *Dispatcher, sess *storage.Session, args []string) (string, error) {
	if len(args) < 2 {
		return "", &boterr.UserError{Command: "track add", Reason: "usage: track add DISTANCE SYSTEM[,SYSTEM…]"}
	}
	distance, err := strconv.Atoi(args[0])
	if err != nil || distance < 0 {
		return "", &boterr.UserError{Command: "track add", Reason: "distance must be a non-negative whole number"}
	}
	systems := splitList(strings.Join(args[1:], ","))
	if len(systems) == 0 {
		return "", &boterr.UserError{Command: "track add", Reason: "at least one system is required"}
	}

	var added []string
	for _, name := range systems {
		coveredAny, err := d.Pool.Submit(ctx, func(ctx context.Context) (any, error) {
			return d.Systems.WithinDistance(name, float64(distance)), nil
		})
		if err != nil {
			return "", err
		}
		if err := sess.AddTrackedSystem(name, distance, coveredAny.([]string)); err != nil {
			return "", err
		}
		added = append(added, name)
	}
	return "now tracking: " + strings.Join(added, ", "), nil
}

func trackRemove(ctx context.Context, d *Dispatcher, sess *storage.Session, args []string) (string, error) {
	if len(args) == 0 {
		return "", &boterr.UserError{Command: "track remove", Reason: "usage: track remove SYSTEM[,SYSTEM…]"}
	}
	systems := splitList(strings.Join(args, ","))

	existing, err := sess.ListTrackedSystems()
	if err != nil {
		return "", err
	}
	distanceOf := make(map[string]int, len(existing))
	for _, t := range existing {
		distanceOf[t.SystemName] = t.DistanceLy
	}

	var removed []string
	for _, name := range systems {
		distance, ok := distanceOf[name]
		if !ok {
			return "", &boterr.UserError{Command: "track remove", Reason: name + " is not tracked"}
		}
		coveredAny, err := d.Pool.Submit(ctx, func(ctx context.Context) (any, error) {
			return d.Systems.WithinDistance(name, float64(distance)), nil
		})
		if err != nil {
			return "", err
		}
		if err := sess.RemoveTrackedSystem(name, coveredAny.([]string)); err != nil {
			return "", err
		}
		removed = append(removed, name)
	}
	return "no longer tracking: " + strings.Join(removed, ", "), nil
}

func trackIDs(sess *storage.Session) (string, error) {
	carriers, err := sess.ListTrackedCarriers()
	if err != nil {
		return "", err
	}
	if len(carriers) == 0 {
		return "no carriers registered", nil
	}
	ids := make([]string, len(carriers))
	for i, c := range carriers {
		ids[i] = c.ID
	}
	return strings.Join(ids, ", "), nil
}

func trackShow(sess *storage.Session) (string, error) {
	systems, err := sess.ListTrackedSystems()
	if err != nil {
		return "", err
	}
	if len(systems) == 0 {
		return "no systems tracked", nil
	}
	var b strings.Builder
	for _, s := range systems {
		fmt.Fprintf(&b, "%s (%d ly)\n", s.SystemName, s.DistanceLy)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
