package watcher

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ProbeFSNotify reports whether fsnotify delivers events for path. It
// creates a temporary directory inside path and waits for the Create
// event until timeout. Network mounts often fail this check.
func ProbeFSNotify(path string, timeout time.Duration) bool {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return false
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(path); err != nil {
		return false
	}

	probeName := fmt.Sprintf(".boomic_probe_%d", rand.Int64()) //nolint:gosec // G404: not security-sensitive
	probeDir := filepath.Join(path, probeName)
	if err := os.Mkdir(probeDir, 0o750); err != nil {
		return false
	}
	defer os.Remove(probeDir) //nolint:errcheck

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return false
			}
			if ev.Has(fsnotify.Create) && filepath.Base(ev.Name) == probeName {
				return true
			}
		case <-w.Errors:
			return false
		case <-timer.C:
			return false
		}
	}
}
