package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/metrics"
	"github.com/cogbot/cogbot/pkg/storage"
)

var errEmptyCommand = errors.New("empty command")

// criticalFrom carries the context a recovered handler panic needs to
// format as a CriticalError without importing chatmodel into boterr.
type criticalFrom struct {
	channel string
	author  string
	content string
	cause   error
}

func (c *criticalFrom) Error() string { return c.cause.Error() }
func (c *criticalFrom) Unwrap() error { return c.cause }

func panicAsError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// replyErr converts err into a user-visible chat message per spec.md §7's
// taxonomy, increments the errors_total counter by kind, and sends it as
// a transient reply.
func (d *Dispatcher) replyErr(ctx context.Context, event chatmodel.Event, command string, err error) {
	msg, kind := formatError(command, err)
	metrics.ErrorsTotal.WithLabelValues(kind).Inc()
	if kind == "critical" {
		d.logger.Error().Err(err).Str("command", command).Str("channel", event.Channel().ID()).
			Str("author", event.Author().ID()).Msg("unhandled dispatcher error")
	}
	d.reply(ctx, event, msg, true)
}

// formatError maps a typed error (boterr's taxonomy, or a *storage.
// ValidationError) onto a user-facing message and a metrics kind label.
func formatError(command string, err error) (string, string) {
	var userErr *boterr.UserError
	if errors.As(err, &userErr) {
		return fmt.Sprintf("%s: %s", userErr.Command, userErr.Reason), "user_error"
	}

	var permErr *boterr.PermissionError
	if errors.As(err, &permErr) {
		return fmt.Sprintf("you don't have permission to run `%s`: %s", permErr.Command, permErr.Reason), "invalid_perms"
	}

	var notFound *boterr.NotFound
	if errors.As(err, &notFound) {
		return fmt.Sprintf("no %s matches %q", notFound.Entity, notFound.Needle), "no_match"
	}

	var ambiguous *boterr.Ambiguous
	if errors.As(err, &ambiguous) {
		return fmt.Sprintf("%q matches more than one %s: %s", ambiguous.Needle, ambiguous.Entity, strings.Join(ambiguous.Matches, ", ")), "more_than_one_match"
	}

	var validationFail *boterr.ValidationFail
	if errors.As(err, &validationFail) {
		return "something is inconsistent with the cached data — please contact leadership", "validation_fail"
	}

	var sheetErr *boterr.SheetParsingError
	if errors.As(err, &sheetErr) {
		return fmt.Sprintf("the %s sheet failed to parse and has been left at its last good state; admins have been alerted", sheetErr.Document), "sheet_parsing"
	}

	var remoteErr *boterr.RemoteError
	if errors.As(err, &remoteErr) {
		return fmt.Sprintf("%s is temporarily unavailable, try again shortly", remoteErr.Op), "remote_unavailable"
	}

	var valErr *storage.ValidationError
	if errors.As(err, &valErr) {
		switch valErr.Kind {
		case "no_match":
			return fmt.Sprintf("no %s found", valErr.Entity), "no_match"
		case "more_than_one_match":
			return fmt.Sprintf("%s lookup was ambiguous", valErr.Entity), "more_than_one_match"
		case "integrity_conflict":
			return fmt.Sprintf("%s: %s", valErr.Entity, valErr.Reason), "integrity_conflict"
		default:
			return fmt.Sprintf("%s: %s — please contact leadership", valErr.Entity, valErr.Reason), "validation_fail"
		}
	}

	var crit *criticalFrom
	if errors.As(err, &crit) {
		return fmt.Sprintf("something went wrong running `%s` — a maintainer has been notified", command), "critical"
	}

	return fmt.Sprintf("something went wrong running `%s` — a maintainer has been notified", command), "critical"
}

// helpText renders the registered command table as the default
// help text, sorted by name.
func (d *Dispatcher) helpText() string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("commands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s — %s\n", name, d.commands[name].Summary)
	}
	return b.String()
}
