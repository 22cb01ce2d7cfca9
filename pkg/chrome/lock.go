package chrome

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "ghostchrome.lock"

// lockProfile takes an exclusive, non-blocking lock on the profile directory.
// A second manager pointed at the same profile fails instead of reaping the
// first one's browser.
func lockProfile(profileDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(profileDir, 0750); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	lock := flock.New(filepath.Join(profileDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrProfileLocked, lock.Path())
	}
	return lock, nil
}
