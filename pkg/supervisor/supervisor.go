// Package supervisor manages cogbot's small fixed set of named background
// tasks (scanner refresh, feed ingester, carrier-summary emitter, config
// hot-reload watcher), restarting any that crash and exposing liveness for
// `admin active` / `cogbot dash` (spec.md §4.6).
package supervisor

import (
	"fmt"
	"sync"
	"time"

	"github.com/cogbot/cogbot/pkg/log"
	"github.com/rs/zerolog"
)

// State is a task's reported liveness.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Factory starts one run of a task. It must return promptly when stopCh
// closes.
type Factory func(stopCh <-chan struct{}) error

// entry is one registered task and its current run.
type entry struct {
	name        string
	description string
	factory     Factory

	mu         sync.Mutex
	stopCh     chan struct{}
	state      State
	cause      string
	lastStart  time.Time
	restarting bool
}

// Supervisor is the named-task registry. Grounded in the teacher's
// scheduler/reconciler run-loop shape (ticker/stopCh/mutex, logged and
// swallowed per-cycle errors), generalized into a registry that restarts
// a crashed task rather than assuming each loop runs once for the process
// lifetime.
type Supervisor struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty Supervisor.
func New() *Supervisor {
	return &Supervisor{
		logger:  log.WithComponent("supervisor"),
		entries: make(map[string]*entry),
	}
}

// Add registers and immediately starts a task. Adding a name twice
// replaces the prior entry after stopping it.
func (s *Supervisor) Add(name, description string, factory Factory) {
	s.mu.Lock()
	if existing, ok := s.entries[name]; ok {
		s.mu.Unlock()
		existing.stop()
		s.mu.Lock()
	}
	e := &entry{name: name, description: description, factory: factory}
	s.entries[name] = e
	s.mu.Unlock()
	s.start(e)
}

func (s *Supervisor) start(e *entry) {
	e.mu.Lock()
	e.stopCh = make(chan struct{})
	e.state = StateRunning
	e.cause = ""
	e.lastStart = time.Now()
	stopCh := e.stopCh
	e.mu.Unlock()

	go func() {
		err := s.runGuarded(e, stopCh)
		e.mu.Lock()
		defer e.mu.Unlock()
		select {
		case <-stopCh:
			// stopped deliberately (Stop/Restart); leave state as caller set it
			return
		default:
		}
		e.state = StateStopped
		if err != nil {
			e.cause = err.Error()
		} else {
			e.cause = "task exited"
		}
		s.logger.Error().Str("task", e.name).Str("cause", e.cause).Msg("task stopped, restarting")
		go s.restart(e)
	}()
}

// runGuarded recovers a panic from factory into an error so a crash
// restarts the task instead of taking down the process.
func (s *Supervisor) runGuarded(e *entry, stopCh chan struct{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.factory(stopCh)
}

func (e *entry) stop() {
	e.mu.Lock()
	if e.stopCh != nil {
		close(e.stopCh)
	}
	e.state = StateStopped
	e.cause = "stopped"
	e.mu.Unlock()
}

// Restart cancels name's current run and starts a fresh one from its
// factory.
func (s *Supervisor) Restart(name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no such task: %s", name)
	}
	e.stop()
	s.start(e)
	return nil
}

func (s *Supervisor) restart(e *entry) {
	e.mu.Lock()
	if e.restarting {
		e.mu.Unlock()
		return
	}
	e.restarting = true
	e.mu.Unlock()

	time.Sleep(time.Second)

	e.mu.Lock()
	e.restarting = false
	e.mu.Unlock()
	s.start(e)
}

// Stop cancels every registered task.
func (s *Supervisor) Stop() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		e.stop()
	}
}

// StatusRow is one line of StatusTable's output.
type StatusRow struct {
	Name        string
	Description string
	State       State
	Cause       string
	LastStart   time.Time
}

// StatusTable implements status_table(): for each registered task,
// derives Running/Stopped and, if stopped, the cause.
func (s *Supervisor) StatusTable() []StatusRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]StatusRow, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		rows = append(rows, StatusRow{
			Name: e.name, Description: e.description,
			State: e.state, Cause: e.cause, LastStart: e.lastStart,
		})
		e.mu.Unlock()
	}
	return rows
}
