package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LogWriter appends every feed message verbatim to a schema-partitioned,
// line-delimited file on disk (spec.md §4.5 step 6), grounded on the
// original ingester's per-schema .jsonl files (extras/eddn_log.py's
// SCHEMA_MAP), simplified from a fixed map to a file opened lazily per
// schema key actually seen.
type LogWriter struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewLogWriter creates dir if needed and returns a LogWriter rooted there.
func NewLogWriter(dir string) (*LogWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create feed log dir %s: %w", dir, err)
	}
	return &LogWriter{dir: dir, files: make(map[string]*os.File)}, nil
}

type logLine struct {
	SchemaRef string          `json:"$schemaRef"`
	Header    Header          `json:"header"`
	Message   json.RawMessage `json:"message"`
}

// Append writes msg as one compact JSON line to schemaKey's log file,
// opening it on first use and keeping it open for the writer's lifetime.
func (w *LogWriter) Append(schemaKey string, msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.files[schemaKey]
	if !ok {
		path := filepath.Join(w.dir, schemaKey+".jsonl")
		var err error
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open feed log %s: %w", path, err)
		}
		w.files[schemaKey] = f
	}

	data, err := json.Marshal(logLine{SchemaRef: msg.SchemaRef, Header: msg.Header, Message: msg.Raw})
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}

// Close closes every open log file. Safe to call once after the ingester
// has stopped; any write still in flight has already returned by then
// since Append holds the writer's lock for its whole duration.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	for key, f := range w.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(w.files, key)
	}
	return firstErr
}
