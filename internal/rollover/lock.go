package rollover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/logger"
)

// LockfileName is created next to the database while a rollover runs
const LockfileName = "rollover.lock"

// ErrLocked is returned when another live rollover holds the lock
var ErrLocked = errors.New("another rollover is already running")

var (
	findProcessFunc = ps.FindProcess
	currentPIDFunc  = os.Getpid
)

// Lock is a held rollover lockfile
type Lock struct {
	path string
}

// lockWriteGrace is how long an empty lockfile is assumed to belong to a
// process still writing it
const lockWriteGrace = 5 * time.Second

// errLockWriting marks a lockfile whose holder has not written its pid yet
var errLockWriting = errors.New("lockfile is being written")

// AcquireLock creates the lockfile in dir. A lockfile left behind by a
// process that is no longer running, or that is not habitpact, is taken
// over.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(dir, LockfileName)

	for range 2 {
		err := publishLock(dir, path)
		if err == nil {
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		pid, err := validateLockHolder(path)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, pid)
		case errors.Is(err, errLockWriting):
			return nil, ErrLocked
		case errors.Is(err, os.ErrNotExist):
			// Released between our attempt and the read
			continue
		}
		logger.Warn("Removing stale rollover lock", "path", path, "reason", err)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}
	return nil, ErrLocked
}

// publishLock writes the pid to a temp file and hard-links it to path, so
// the lockfile never exists without its content. An existing lockfile
// yields an os.IsExist error.
func publishLock(dir, path string) error {
	tmp, err := os.CreateTemp(dir, LockfileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create lockfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, werr := fmt.Fprintf(tmp, "%d|%s", currentPIDFunc(), constants.AppName)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		return fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if os.IsExist(err) {
			return err
		}
		return fmt.Errorf("failed to create lockfile: %w", err)
	}
	return nil
}

// Release removes the lockfile
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// validateLockHolder returns the pid recorded in the lockfile when that
// process is still a running habitpact. Any error means the lock is stale.
func validateLockHolder(lockfilePath string) (int, error) {
	info, err := os.Stat(lockfilePath)
	if err != nil {
		return 0, err
	}
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return 0, err
	}
	if len(content) == 0 && time.Since(info.ModTime()) < lockWriteGrace {
		return 0, errLockWriting
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 {
		return 0, errors.New("lockfile is malformed")
	}

	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid < 1 {
		return 0, errors.New("invalid process ID in lockfile")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return 0, fmt.Errorf("process %d is not running", pid)
	}

	if !strings.HasPrefix(process.Executable(), parts[1]) {
		return 0, fmt.Errorf("process with PID %d is not %s (is %s)", pid, parts[1], process.Executable())
	}
	return pid, nil
}
