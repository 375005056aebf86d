package dispatcher

import (
	"github.com/mattn/go-shellwords"
	"github.com/spf13/pflag"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/chatmodel"
)

// parseCall tokenizes rest with shell-word rules, applies spec's flag set
// to it, and resolves the acting user from event's mentions.
func parseCall(spec *CommandSpec, event chatmodel.Event, rest string) (*Call, error) {
	tokens, err := shellwords.Parse(rest)
	if err != nil {
		return nil, &boterr.UserError{Command: spec.Name, Reason: "unable to parse arguments: " + err.Error()}
	}

	fs := pflag.NewFlagSet(spec.Name, pflag.ContinueOnError)
	fs.Usage = func() {}
	if spec.Flags != nil {
		spec.Flags(fs)
	}
	if err := fs.Parse(tokens); err != nil {
		return nil, &boterr.UserError{Command: spec.Name, Reason: "bad flags: " + err.Error()}
	}

	actingUser, err := resolveActingUser(spec.Name, event)
	if err != nil {
		return nil, err
	}

	return &Call{
		Event:      event,
		Args:       fs.Args(),
		Flags:      fs,
		ActingUser: actingUser,
	}, nil
}

// resolveActingUser applies spec.md §4.4's delegation rule: zero mentions
// means the invoker acts for themself; exactly one mention delegates
// authority to that user; more than one is a command-args error.
func resolveActingUser(command string, event chatmodel.Event) (chatmodel.User, error) {
	mentions := event.Mentions()
	switch len(mentions) {
	case 0:
		return event.Author(), nil
	case 1:
		return mentions[0], nil
	default:
		return nil, &boterr.UserError{Command: command, Reason: "more than one mention"}
	}
}
