package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "turns.log")

	l := NewIsolatedLogger(path)
	l.Info("Orchestrator", "turn abandoned", map[string]interface{}{"session_id": "s-1"})
	l.Warn("Orchestrator", "nil details are allowed", nil)
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"turn abandoned"`)
	assert.Contains(t, string(data), `"module":"Orchestrator"`)
	assert.Contains(t, string(data), `"session_id":"s-1"`)
}

func TestNopLoggerAcceptsCalls(t *testing.T) {
	var l ILogger = NewNopLogger()
	l.Debug("Test", "debug", nil)
	l.Error("Test", "error", map[string]interface{}{"error": "boom"})
	assert.NoError(t, l.Sync())
}

func TestErrorDetailsKeepTheMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")

	l := NewIsolatedLogger(path)
	l.Error("Gateway", "embedding failed", map[string]interface{}{"error": errors.New("upstream 503")})
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"upstream 503"`)
}
