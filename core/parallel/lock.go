package parallel

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

const statusDone = "DONE"

// keyNamespace scopes the name-based UUIDs that turn task keys into file names.
var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("nestcv/task"))

// fileName maps an arbitrary task key to a stable, filesystem-safe name.
func fileName(key string) string {
	return uuid.NewSHA1(keyNamespace, []byte(key)).String()
}

// fileStore persists per-task locks and completion markers on a shared filesystem.
type fileStore struct {
	lockDir     string
	statusDir   string
	lockTimeout time.Duration
	owner       string
}

func (s *fileStore) statusPath(key string) string {
	return filepath.Join(s.statusDir, fileName(key)+".status")
}

func (s *fileStore) lockPath(key string) string {
	return filepath.Join(s.lockDir, fileName(key)+".lock")
}

// isDone reports whether a previous run marked key as complete.
func (s *fileStore) isDone(key string) bool {
	if s.statusDir == "" {
		return false
	}
	raw, err := os.ReadFile(s.statusPath(key))
	return err == nil && strings.TrimSpace(string(raw)) == statusDone
}

func (s *fileStore) markDone(key string) error {
	if s.statusDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.statusDir, 0o755); err != nil {
		return errors.Wrap(err, "create status directory")
	}
	return errors.Wrapf(os.WriteFile(s.statusPath(key), []byte(statusDone+"\n"), 0o644),
		"write status for %s", key)
}

// acquire takes the lock for key. It returns false without error when another
// worker holds a fresh lock. Locks older than lockTimeout are broken.
func (s *fileStore) acquire(key string) (release func(), ok bool, err error) {
	if s.lockDir == "" {
		return func() {}, true, nil
	}
	if err := os.MkdirAll(s.lockDir, 0o755); err != nil {
		return nil, false, errors.Wrap(err, "create lock directory")
	}

	path := s.lockPath(key)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := f.WriteString(s.owner + "\n" + key + "\n")
			cerr := f.Close()
			if werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(path)
				return nil, false, errors.Wrapf(werr, "write lock %s", path)
			}
			return func() { s.release(path) }, true, nil
		}
		if !os.IsExist(err) {
			return nil, false, errors.Wrapf(err, "create lock %s", path)
		}
		if !s.stale(path) {
			return nil, false, nil
		}
		_ = os.Remove(path)
	}
	return nil, false, nil
}

func (s *fileStore) stale(path string) bool {
	if s.lockTimeout <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		// Removed between the create attempt and now; retry.
		return os.IsNotExist(err)
	}
	return time.Since(info.ModTime()) > s.lockTimeout
}

// release removes the lock only if this worker still owns it.
func (s *fileStore) release(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if owner, _, _ := strings.Cut(string(raw), "\n"); owner == s.owner {
		_ = os.Remove(path)
	}
}
