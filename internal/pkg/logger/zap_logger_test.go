package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.log")
	l := NewIsolatedLogger(path)

	l.Info("Rehydrate", "session rebuilt", map[string]interface{}{"conv_id": 7})
	l.Debug("Rehydrate", "below file level", nil)
	require.NoError(t, l.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}

	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "session rebuilt", lines[0]["message"])
	assert.Equal(t, "Rehydrate", lines[0]["module"])
	assert.Equal(t, path, l.FilePath())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error("X", "ignored", map[string]interface{}{"error": "boom"})
	assert.NoError(t, l.Sync())
}
