package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const sessionLogPrefix = "omr."

// SessionLogPath names the log file of one CLI invocation.
func SessionLogPath(logsDir string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s%s.log", sessionLogPrefix, start.Format("20060102_150405")))
}

// OpenSessionLog creates logsDir if needed and opens the log file for an
// invocation started at start. Older session logs beyond keep are removed;
// keep <= 0 disables pruning.
func OpenSessionLog(logsDir string, start time.Time, keep int) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	f, err := os.OpenFile(SessionLogPath(logsDir, start), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	if keep > 0 {
		_, _ = PruneSessionLogs(logsDir, keep)
	}
	return f, nil
}

// PruneSessionLogs deletes all but the newest keep session logs in logsDir
// and returns the removed paths. Other files are left alone.
func PruneSessionLogs(logsDir string, keep int) ([]string, error) {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return nil, err
	}
	var logs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, sessionLogPrefix) || filepath.Ext(name) != ".log" {
			continue
		}
		logs = append(logs, name)
	}
	if len(logs) <= keep {
		return nil, nil
	}

	// the timestamp format sorts lexically
	sort.Strings(logs)
	var removed []string
	for _, name := range logs[:len(logs)-keep] {
		path := filepath.Join(logsDir, name)
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}
