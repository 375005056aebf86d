package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

const kosDocument = "kos"

func kosCommandSpec() *CommandSpec {
	return &CommandSpec{
		Name:     "kos",
		Summary:  "report, search, or refresh the kill-on-sight list",
		Document: kosDocument,
		Flags: func(fs *pflag.FlagSet) {
			fs.String("squad", "", "reported commander's squad")
			fs.String("reason", "", "reason for the report")
			fs.Bool("friendly", false, "mark the commander as friendly rather than hostile")
		},
		Handler: kosHandler,
	}
}

func kosHandler(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error) {
	if len(call.Args) == 0 {
		return "", &boterr.UserError{Command: "kos", Reason: "usage: kos {report,search,pull}"}
	}
	sub, rest := call.Args[0], call.Args[1:]

	switch sub {
	case "report":
		return kosReport(ctx, d, sess, call, rest)
	case "search":
		return kosSearch(sess, rest)
	case "pull":
		doc, ok := d.Documents[kosDocument]
		if !ok {
			return "", &boterr.UserError{Command: "kos pull", Reason: "no kos document registered"}
		}
		if err := d.scanOne(ctx, kosDocument, doc); err != nil {
			return "", err
		}
		return "kos list refreshed", nil
	default:
		return "", &boterr.UserError{Command: "kos", Reason: "unknown subcommand " + sub}
	}
}

func kosReport(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call, args []string) (string, error) {
	if len(args) < 1 {
		return "", &boterr.UserError{Command: "kos report", Reason: "usage: kos report CMDR_NAME [--squad S] [--reason R] [--friendly]"}
	}
	squad, _ := call.Flags.GetString("squad")
	reason, _ := call.Flags.GetString("reason")
	friendly, _ := call.Flags.GetBool("friendly")

	e := &types.KosEntry{CmdrName: args[0], Squad: squad, Reason: reason, Friendly: friendly}
	if err := sess.CreateKosEntry(e); err != nil {
		return "", err
	}

	existing, err := sess.ListKosEntries()
	if err != nil {
		return "", err
	}
	row := len(existing)
	if werr := d.writeSheet(ctx, kosDocument,
		sheets.AppendRowUpdate(kosDocument, row, []string{e.CmdrName, e.Squad, e.Reason, friendlyLabel(friendly)}),
	); werr != nil {
		return "", werr
	}

	kind := "hostile"
	if friendly {
		kind = "friendly"
	}
	return fmt.Sprintf("recorded %s as %s", e.CmdrName, kind), nil
}

func friendlyLabel(friendly bool) string {
	if friendly {
		return "friendly"
	}
	return "hostile"
}

func kosSearch(sess *storage.Session, args []string) (string, error) {
	if len(args) < 1 {
		return "", &boterr.UserError{Command: "kos search", Reason: "usage: kos search NEEDLE"}
	}
	e, err := sess.FindKosEntryByName(strings.Join(args, " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s): %s — %s", e.CmdrName, e.Squad, friendlyLabel(e.Friendly), e.Reason), nil
}
