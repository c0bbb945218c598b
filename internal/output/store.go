package output

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sirupsen/logrus"
)

// lockRetryDelay is how often a contended cross-process lock is retried
const lockRetryDelay = 25 * time.Millisecond

// Store resolves output paths and serialises writes per path. Within the process
// a mutex per path orders callers; a flock beside the file keeps a second server
// instance from interleaving with this one.
type Store struct {
	baseDir string
	lockDir string
	policy  *security.Policy
	logger  *logrus.Logger

	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates a store resolving relative paths against baseDir. Lock files
// live in lockDir, named by a hash of the locked path, so output directories
// stay clean.
func NewStore(baseDir, lockDir string, policy *security.Policy, logger *logrus.Logger) *Store {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	if lockDir == "" {
		lockDir = filepath.Join(os.TempDir(), "mcp-office-locks")
	}
	if policy == nil {
		policy = security.NewPolicy(logger)
	}
	return &Store{
		baseDir: baseDir,
		lockDir: lockDir,
		policy:  policy,
		logger:  logger,
		locks:   make(map[string]*pathLock),
	}
}

// BaseDir returns the directory relative names are resolved against
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Resolve picks the file a tool writes to. An explicit outputPath wins; if it
// names an existing directory or ends with a separator the base name of
// filename is kept. Otherwise filename itself is the target. Relative paths
// are taken from the base directory.
func (s *Store) Resolve(filename, outputPath string) (string, error) {
	if strings.TrimSpace(filename) == "" && strings.TrimSpace(outputPath) == "" {
		return "", errors.New("a filename or outputPath is required")
	}

	target := filename
	if outputPath != "" {
		target = outputPath
		if isDirHint(outputPath) || s.isDir(outputPath) {
			if filename == "" {
				return "", fmt.Errorf("outputPath %s is a directory but no filename was given", outputPath)
			}
			target = filepath.Join(outputPath, filepath.Base(filename))
		}
	}

	path := s.abs(target)
	if err := s.policy.Check(path, security.Write); err != nil {
		return "", err
	}
	return path, nil
}

// ResolveInput resolves a file the tool only reads
func (s *Store) ResolveInput(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("an input file name is required")
	}
	path := s.abs(name)
	if err := s.policy.Check(path, security.Read); err != nil {
		return "", err
	}
	return path, nil
}

// ResolveDir resolves a directory the tool writes several files into
func (s *Store) ResolveDir(dir string) (string, error) {
	if dir == "" {
		dir = s.baseDir
	}
	path := s.abs(dir)
	if err := s.policy.Check(path, security.Write); err != nil {
		return "", err
	}
	return path, nil
}

// Policy returns the access policy in force
func (s *Store) Policy() *security.Policy {
	return s.policy
}

// Read returns the content of path, or nil and no error when it does not exist
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces path with data atomically, creating parent directories
func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	return s.withLock(ctx, path, func() error {
		return writeAtomic(path, data)
	})
}

// Update reads path (nil when absent), passes the content to fn and writes the
// result back. The lock is held across the whole cycle, so concurrent updates to
// one path apply one after another. It reports whether the file already existed.
func (s *Store) Update(ctx context.Context, path string, fn func(existing []byte) ([]byte, error)) (existed bool, err error) {
	err = s.withLock(ctx, path, func() error {
		current, err := s.Read(path)
		if err != nil {
			return err
		}
		existed = current != nil
		updated, err := fn(current)
		if err != nil {
			return err
		}
		return writeAtomic(path, updated)
	})
	return existed, err
}

// Edit is the read-modify-write cycle of the document tools. It loads filename,
// hands its content (nil when the file does not exist yet) to fn and writes the
// result to the target chosen by Resolve, holding the target's lock throughout.
func (s *Store) Edit(ctx context.Context, filename, outputPath string, fn func(existing []byte) ([]byte, error)) (path string, existed bool, err error) {
	source, err := s.ResolveInput(filename)
	if err != nil {
		return "", false, err
	}
	path, err = s.Resolve(filename, outputPath)
	if err != nil {
		return "", false, err
	}
	if source == path {
		existed, err = s.Update(ctx, path, fn)
		return path, existed, err
	}

	err = s.withLock(ctx, path, func() error {
		current, err := s.Read(source)
		if err != nil {
			return err
		}
		existed = current != nil
		updated, err := fn(current)
		if err != nil {
			return err
		}
		return writeAtomic(path, updated)
	})
	return path, existed, err
}

// Create resolves the target of a tool that produces a fresh artifact and writes data there
func (s *Store) Create(ctx context.Context, filename, outputPath string, data []byte) (string, error) {
	path, err := s.Resolve(filename, outputPath)
	if err != nil {
		return "", err
	}
	return path, s.Write(ctx, path, data)
}

// WithLock runs fn while holding the lock for path, for tools that write through a library
func (s *Store) WithLock(ctx context.Context, path string, fn func() error) error {
	return s.withLock(ctx, path, fn)
}

func (s *Store) withLock(ctx context.Context, path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.MkdirAll(s.lockDir, 0700); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	l := s.acquire(path)
	defer s.release(path, l)

	l.mu.Lock()
	defer l.mu.Unlock()

	fileLock := flock.New(s.lockPath(path))
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s", path)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Failed to release file lock")
		}
	}()

	return fn()
}

func (s *Store) acquire(path string) *pathLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &pathLock{}
		s.locks[path] = l
	}
	l.refs++
	return l
}

func (s *Store) release(path string, l *pathLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, path)
	}
}

func (s *Store) abs(name string) string {
	name = expandHome(name)
	if !filepath.IsAbs(name) {
		name = filepath.Join(s.baseDir, name)
	}
	return filepath.Clean(name)
}

func (s *Store) isDir(name string) bool {
	info, err := os.Stat(s.abs(name))
	return err == nil && info.IsDir()
}

func isDirHint(name string) bool {
	return strings.HasSuffix(name, "/") || strings.HasSuffix(name, string(filepath.Separator))
}

func (s *Store) lockPath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(s.lockDir, hex.EncodeToString(sum[:12])+".lock")
}

// writeAtomic writes to a temp file in the same directory and renames it into place
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
