// Package workerpool runs CPU-bound jobs (sheet parsing, catalog
// pathfinding) off the event loop, per spec.md §5's "work exceeding ~20ms
// must be dispatched to the worker pool" rule.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config configures a Pool.
type Config struct {
	Workers    int           // number of concurrent goroutines; default 4
	JobTimeout time.Duration // per-attempt deadline; default 8s
	MaxRetries int           // default 3
	BaseDelay  time.Duration // first retry delay; doubles each attempt; default 2s
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 8 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	return c
}

// Job is a unit of CPU-bound work submitted to a Pool.
type Job func(ctx context.Context) (any, error)

type request struct {
	job    Job
	result chan result
}

type result struct {
	value any
	err   error
}

// Pool is a bounded pool of goroutines draining a buffered job queue, with
// per-job timeout and exponential retry. Grounded in the teacher's
// worker Config-struct-plus-stopCh lifecycle shape, generalized from
// "manage containerd tasks" to "run a bounded pool of CPU-bound jobs."
type Pool struct {
	cfg    Config
	jobs   chan request
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New starts a Pool with cfg.Workers goroutines. Call Stop to drain and
// shut it down.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:    cfg,
		jobs:   make(chan request, cfg.Workers*4),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case req := <-p.jobs:
			req.result <- p.runWithRetry(req.job)
		}
	}
}

func (p *Pool) runWithRetry(job Job) result {
	delay := p.cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.JobTimeout)
		value, err := job(ctx)
		cancel()
		if err == nil {
			return result{value: value}
		}
		lastErr = err
		if attempt < p.cfg.MaxRetries {
			select {
			case <-time.After(delay):
			case <-p.stopCh:
				return result{err: fmt.Errorf("worker pool stopped: %w", lastErr)}
			}
			delay *= 2
		}
	}
	return result{err: fmt.Errorf("job exhausted %d attempts: %w", p.cfg.MaxRetries, lastErr)}
}

// Submit enqueues job and blocks until it completes, retries are
// exhausted, or ctx is cancelled.
func (p *Pool) Submit(ctx context.Context, job Job) (any, error) {
	req := request{job: job, result: make(chan result, 1)}
	select {
	case p.jobs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.stopCh:
		return nil, fmt.Errorf("worker pool stopped")
	}

	select {
	case res := <-req.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop signals every worker to exit after its in-flight job and waits for
// them to drain.
func (p *Pool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}
