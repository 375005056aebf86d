// Package dispatcher routes an inbound chat event to a registered
// command handler: it tokenizes the content, looks up the command,
// enforces the three-stage permission check, resolves the acting user,
// runs the handler inside a fresh cache session, and turns the result
// (or a typed error) into one or more chat replies.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cogbot/cogbot/pkg/catalog"
	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/config"
	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/metrics"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/supervisor"
	"github.com/cogbot/cogbot/pkg/workerpool"
)

// maxReplyLength is the platform message-length limit replies are split
// under (spec.md §4.4's "a sequence of replies").
const maxReplyLength = 1900

// ManagedDocument is one scanner-backed worksheet the dispatcher can
// trigger a rescan or a tab-cycle against, used by the admin commands.
// Concrete scanners (fort/undermine/kos/carrier-ids) are adapted to this
// shape by the process that wires the dispatcher together.
type ManagedDocument struct {
	Name            string
	Scan            func(ctx context.Context, sess *storage.Session) error
	Title           func(ctx context.Context) (string, error)
	ChangeWorksheet func(ctx context.Context, tab string) error
	// Write pushes cache mutations back to the live sheet. Nil in tests
	// and wherever a document has no writeback capability wired.
	Write func(ctx context.Context, updates ...sheets.Update) error
}

// Dispatcher holds everything a handler needs beyond its own arguments.
type Dispatcher struct {
	Store       *storage.Store
	Config      *config.Watcher
	Systems     catalog.Systems
	Stations    catalog.Stations
	Pool        *workerpool.Pool
	Supervisor  *supervisor.Supervisor
	Documents   map[string]*ManagedDocument
	Maintainer  string // mentionable id surfaced on CriticalError

	commands map[string]*CommandSpec
	locks    *documentLocks
	prompts  *promptRegistry
	logger   zerolog.Logger
}

// New builds a Dispatcher with the full command table registered.
func New(store *storage.Store, cfg *config.Watcher, systems catalog.Systems, stations catalog.Stations, pool *workerpool.Pool, super *supervisor.Supervisor) *Dispatcher {
	d := &Dispatcher{
		Store:      store,
		Config:     cfg,
		Systems:    systems,
		Stations:   stations,
		Pool:       pool,
		Supervisor: super,
		Documents:  make(map[string]*ManagedDocument),
		locks:      newDocumentLocks(),
		prompts:    newPromptRegistry(),
		logger:     log.WithComponent("dispatcher"),
	}
	d.commands = buildCommandTable()
	return d
}

// Dispatch parses event and routes it to a handler, always producing at
// least one reply (spec.md §4.4: "exit behavior is always reply").
func (d *Dispatcher) Dispatch(ctx context.Context, event chatmodel.Event) {
	content := strings.TrimSpace(event.Content())
	prefix := d.Config.Get().CommandPrefix
	if !strings.HasPrefix(content, prefix) {
		return
	}
	body := strings.TrimPrefix(content, prefix)

	if d.prompts.handle(event, body) {
		return
	}

	name, rest, err := splitCommand(body)
	if err != nil {
		d.reply(ctx, event, d.helpText(), true)
		return
	}

	spec, ok := d.commands[name]
	if !ok {
		d.reply(ctx, event, fmt.Sprintf("unknown command %q — try `help`", name), true)
		return
	}

	timer := metrics.NewTimer()
	outcome := "ok"
	defer func() {
		metrics.CommandDuration.WithLabelValues(name).Observe(timer.Duration().Seconds())
		metrics.CommandsTotal.WithLabelValues(name, outcome).Inc()
	}()

	if err := d.checkPermissions(ctx, spec, event); err != nil {
		outcome = "denied"
		d.replyErr(ctx, event, name, err)
		return
	}

	call, err := parseCall(spec, event, rest)
	if err != nil {
		outcome = "error"
		d.replyErr(ctx, event, name, err)
		return
	}

	unlock := d.locks.lock(spec.Document)
	defer unlock()

	reply, handlerErr := d.runHandler(ctx, spec, call)
	if handlerErr != nil {
		outcome = "error"
		d.replyErr(ctx, event, name, handlerErr)
		return
	}
	d.reply(ctx, event, reply, false)
}

// runHandler executes spec's handler inside a fresh, committed-or-rolled-
// back cache session, and recovers a panic into a CriticalError so one
// bad handler never takes the event loop down.
func (d *Dispatcher) runHandler(ctx context.Context, spec *CommandSpec, call *Call) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("command", spec.Name).Msg("handler panicked")
			err = &criticalFrom{
				channel: call.Event.Channel().ID(),
				author:  call.Event.Author().ID(),
				content: call.Event.Content(),
				cause:   panicAsError(r),
			}
		}
	}()

	sess, err := d.Store.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Finish(&err)

	reply, err = spec.Handler(ctx, d, sess, call)
	return reply, err
}

// reply sends content to event's channel, splitting it under the
// platform length limit; if transient it schedules both the bot's own
// reply and (where feasible) the original invocation for TTL deletion.
func (d *Dispatcher) reply(ctx context.Context, event chatmodel.Event, content string, transient bool) {
	ch := event.Channel()
	for _, chunk := range splitReply(content, maxReplyLength) {
		id, err := ch.Send(ctx, chunk)
		if err != nil {
			d.logger.Warn().Err(err).Msg("failed to send reply")
			continue
		}
		if transient {
			d.scheduleDelete(ch, id)
		}
	}
}

// writeSheet queues updates against documentName's live capability; it is
// a no-op when the document has no writeback wired (e.g. under test), so
// handlers never need to special-case that.
func (d *Dispatcher) writeSheet(ctx context.Context, documentName string, updates ...sheets.Update) error {
	doc, ok := d.Documents[documentName]
	if !ok || doc.Write == nil || len(updates) == 0 {
		return nil
	}
	if err := doc.Write(ctx, updates...); err != nil {
		metrics.SheetWriteFailuresTotal.WithLabelValues(documentName).Inc()
		d.logger.Warn().Err(err).Str("document", documentName).Msg("sheet write failed, cache already updated")
	}
	return nil
}

func (d *Dispatcher) scheduleDelete(ch chatmodel.Channel, messageID string) {
	ttl := time.Duration(d.Config.Get().ReplyTTL) * time.Second
	if ttl <= 0 {
		return
	}
	time.AfterFunc(ttl, func() {
		_ = ch.Delete(context.Background(), messageID)
	})
}

// splitReply breaks content on line boundaries into chunks no longer
// than limit, never splitting a single line.
func splitReply(content string, limit int) []string {
	lines := strings.Split(content, "\n")
	var chunks []string
	var cur strings.Builder
	for _, line := range lines {
		if cur.Len()+len(line)+1 > limit && cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}

// splitCommand separates the first whitespace-delimited token (the
// command name) from the rest of the line.
func splitCommand(body string) (name, rest string, err error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", "", errEmptyCommand
	}
	fields := strings.SplitN(body, " ", 2)
	name = strings.ToLower(fields[0])
	if len(fields) == 2 {
		rest = fields[1]
	}
	return name, rest, nil
}
