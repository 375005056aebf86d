package dispatcher

import "sync"

// documentLocks serializes handler writes per managed document, the
// generalization of a single map-of-mutexes guarding shared state to one
// mutex per key rather than one mutex for the whole map (spec.md §5:
// single-writer per document, parallel across unrelated documents).
type documentLocks struct {
	mu    sync.Mutex
	byDoc map[string]*sync.Mutex
}

func newDocumentLocks() *documentLocks {
	return &documentLocks{byDoc: make(map[string]*sync.Mutex)}
}

// lock acquires document's mutex, creating it on first use, and returns a
// func to release it. An empty document name (informational commands that
// touch no managed sheet) is a no-op lock.
func (d *documentLocks) lock(document string) func() {
	if document == "" {
		return func() {}
	}

	d.mu.Lock()
	m, ok := d.byDoc[document]
	if !ok {
		m = &sync.Mutex{}
		d.byDoc[document] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}
