package daemonctl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"handoff/internal/faults"
)

// acquireRestartLock takes the single-coordinator lock or fails with
// faults.ErrRestartInProgress. An empty path disables locking.
func acquireRestartLock(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire restart lock: %w", err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrRestartInProgress, "restart", "another restart holds "+path, nil)
	}
	return func() { _ = lock.Unlock() }, nil
}
