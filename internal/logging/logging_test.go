package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLogPath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"relative", "logs", filepath.Join("logs", "omr.20260212_213836.log")},
		{"dot prefix", "./logs", filepath.Join(".", "logs", "omr.20260212_213836.log")},
		{"absolute", filepath.Join("/var", "log", "omr"), filepath.Join("/var", "log", "omr", "omr.20260212_213836.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionLogPath(tt.logsDir, start))
		})
	}
}

func TestOpenSessionLog_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f, err := OpenSessionLog(dir, start, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, SessionLogPath(dir, start), f.Name())
}

func TestPruneSessionLogs_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, os.WriteFile(SessionLogPath(dir, base.Add(time.Duration(i)*time.Hour)), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	removed, err := PruneSessionLogs(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		SessionLogPath(dir, base),
		SessionLogPath(dir, base.Add(time.Hour)),
	}, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestPruneSessionLogs_UnderLimit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(SessionLogPath(dir, time.Now()), nil, 0o644))

	removed, err := PruneSessionLogs(dir, 5)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
