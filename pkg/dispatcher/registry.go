package dispatcher

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/storage"
)

// Handler performs one command's mutation or query against a fresh cache
// session and returns the chat reply, or a typed error.
type Handler func(ctx context.Context, d *Dispatcher, sess *storage.Session, call *Call) (string, error)

// CommandSpec is one entry in the command table: its flag grammar, the
// managed document (if any) its writes must be serialized against, and
// its handler.
type CommandSpec struct {
	Name      string
	Summary   string
	Document  string // key into Dispatcher.Documents; "" if none
	AdminOnly bool
	Flags     func(fs *pflag.FlagSet)
	Handler   Handler
}

// Call is one parsed invocation: positional args, parsed flags, the
// resolved acting user, and the originating event.
type Call struct {
	Event      chatmodel.Event
	Args       []string
	Flags      *pflag.FlagSet
	ActingUser chatmodel.User
}

// buildCommandTable assembles the full chat command surface (spec.md §6).
func buildCommandTable() map[string]*CommandSpec {
	specs := []*CommandSpec{
		fortCommandSpec(),
		dropCommandSpec(),
		umCommandSpec(),
		holdCommandSpec(),
		adminCommandSpec(),
		trackCommandSpec(),
		kosCommandSpec(),
		nearCommandSpec(),
		routeCommandSpec(),
		distCommandSpec(),
		triggerCommandSpec(),
		scoutCommandSpec(),
		timeCommandSpec(),
		whoisCommandSpec(),
		userCommandSpec(),
		feedbackCommandSpec(),
		statusCommandSpec(),
		repairCommandSpec(),
		helpCommandSpec(),
	}

	table := make(map[string]*CommandSpec, len(specs))
	for _, s := range specs {
		table[s.Name] = s
	}
	return table
}
