package dispatcher

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/metrics"
)

const promptTimeout = 30 * time.Second

var (
	userErrInvalidChoice  = boterr.UserError{Command: "prompt", Reason: "not one of the listed options"}
	userErrPromptTimedOut = boterr.UserError{Command: "prompt", Reason: "timed out waiting for a choice"}
)

// pendingPrompt is one outstanding "pick one of N" prompt, keyed by
// channel+author so only the user it was asked of can answer it.
type pendingPrompt struct {
	options   []string
	messageID string
	channel   chatmodel.Channel
	answer    chan int
}

// promptRegistry tracks outstanding interactive prompts. A prompt not
// answered within promptTimeout deletes its own message and unblocks its
// waiter with a negative index (spec.md §5: 30 s timeout on interactive
// prompts).
type promptRegistry struct {
	mu      sync.Mutex
	pending map[string]*pendingPrompt
}

func newPromptRegistry() *promptRegistry {
	return &promptRegistry{pending: make(map[string]*pendingPrompt)}
}

func promptKey(channelID, authorID string) string {
	return channelID + "|" + authorID
}

// handle intercepts body as an answer to a pending prompt for event's
// channel+author, if one exists. Reports whether it consumed the event.
func (r *promptRegistry) handle(event chatmodel.Event, body string) bool {
	key := promptKey(event.Channel().ID(), event.Author().ID())

	r.mu.Lock()
	p, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	n, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil || n < 1 || n > len(p.options) {
		p.answer <- -1
		return true
	}
	p.answer <- n - 1
	return true
}

// ask posts label followed by a numbered rendering of options to event's
// channel and blocks (without stalling the event loop's other handlers,
// since the caller runs inside its own goroutine) until the author
// answers or promptTimeout elapses, whichever comes first.
func (d *Dispatcher) ask(ctx context.Context, event chatmodel.Event, label string, options []string) (int, error) {
	var b strings.Builder
	b.WriteString(label)
	b.WriteByte('\n')
	for i, opt := range options {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(") ")
		b.WriteString(opt)
		b.WriteByte('\n')
	}

	ch := event.Channel()
	messageID, err := ch.Send(ctx, b.String())
	if err != nil {
		return -1, err
	}

	p := &pendingPrompt{options: options, messageID: messageID, channel: ch, answer: make(chan int, 1)}
	key := promptKey(ch.ID(), event.Author().ID())

	d.prompts.mu.Lock()
	d.prompts.pending[key] = p
	d.prompts.mu.Unlock()
	metrics.PromptsActive.Inc()
	defer metrics.PromptsActive.Dec()

	select {
	case idx := <-p.answer:
		_ = ch.Delete(ctx, messageID)
		if idx < 0 {
			return -1, &userErrInvalidChoice
		}
		return idx, nil
	case <-time.After(promptTimeout):
		d.prompts.mu.Lock()
		delete(d.prompts.pending, key)
		d.prompts.mu.Unlock()
		_ = ch.Delete(ctx, messageID)
		return -1, &userErrPromptTimedOut
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}
