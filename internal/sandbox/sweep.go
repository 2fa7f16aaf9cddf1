package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sweep removes program directories under workDir that were last modified
// before now-olderThan. Programs clean up after themselves; this catches
// what a crashed process left behind.
func Sweep(workDir string, olderThan time.Duration, now time.Time) (int, error) {
	if workDir == "" {
		workDir = os.TempDir()
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-olderThan)
	n := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "ct-") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(workDir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
