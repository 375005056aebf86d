package feed

import (
	"context"
	"sync"
)

// FakeSource is an in-memory Source for tests. Each call to Subscribe
// returns the next queued channel (or a subscribe error), letting a test
// script a dropped-connection/reconnect sequence deterministically.
type FakeSource struct {
	mu      sync.Mutex
	batches []chan Message
	nextErr error
}

// NewFakeSource builds a FakeSource whose successive Subscribe calls
// return batches[0], batches[1], ... in order.
func NewFakeSource(batches ...chan Message) *FakeSource {
	return &FakeSource{batches: batches}
}

// Subscribe implements Source.
func (f *FakeSource) Subscribe(ctx context.Context) (<-chan Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.nextErr != nil {
		err := f.nextErr
		f.nextErr = nil
		return nil, err
	}
	if len(f.batches) == 0 {
		ch := make(chan Message)
		close(ch)
		return ch, nil
	}
	ch := f.batches[0]
	f.batches = f.batches[1:]
	return ch, nil
}

// FailNextSubscribe makes the next Subscribe call return err instead of a
// channel, simulating a connection attempt that never completes.
func (f *FakeSource) FailNextSubscribe(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextErr = err
}
