package feed

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogWriterPartitionsBySchema(t *testing.T) {
	dir := t.TempDir()
	w, err := NewLogWriter(dir)
	require.NoError(t, err)

	journal := Message{SchemaRef: "https://eddn.edcd.io/schemas/journal/1", Raw: json.RawMessage(`{"event":"Location"}`)}
	commodity := Message{SchemaRef: "https://eddn.edcd.io/schemas/commodity/3", Raw: json.RawMessage(`{"foo":"bar"}`)}

	require.NoError(t, w.Append(schemaKey(journal.SchemaRef), journal))
	require.NoError(t, w.Append(schemaKey(journal.SchemaRef), journal))
	require.NoError(t, w.Append(schemaKey(commodity.SchemaRef), commodity))
	require.NoError(t, w.Close())

	assertLineCount(t, filepath.Join(dir, "journal_1.jsonl"), 2)
	assertLineCount(t, filepath.Join(dir, "commodity_3.jsonl"), 1)
}

func assertLineCount(t *testing.T, path string, want int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() != "" {
			n++
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, want, n)
}

func TestSchemaKeyExtractsPartitionName(t *testing.T) {
	assert.Equal(t, "journal_1", schemaKey("https://eddn.edcd.io/schemas/journal/1"))
	assert.Equal(t, "commodity_3", schemaKey("https://eddn.edcd.io/schemas/commodity/3"))
	assert.Equal(t, "unknown", schemaKey(""))
}
