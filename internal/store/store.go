package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

var (
	// ErrCorrupt means the store file exists but cannot be parsed into
	// the tag mappings. Fatal: proceeding would risk re-minting
	// identifiers for keys the unreadable file already holds.
	ErrCorrupt = errors.New("tag store is corrupt")

	// ErrUnwritable means the store could not be persisted (permissions,
	// disk space, or a lock that could not be acquired in time). No
	// partial write is left behind.
	ErrUnwritable = errors.New("tag store is unwritable")
)

// errLockBusy signals the backoff loop that the lock is held elsewhere
// and the attempt should be retried.
var errLockBusy = errors.New("lock held by another process")

// DefaultLockTimeout bounds how long an operation waits for the store
// lock before giving up.
const DefaultLockTimeout = 10 * time.Second

// Store reads and writes one tag store file. The path is plain
// configuration; a Store holds no open handles and no cached state
// between calls, so a single value may be shared freely.
type Store struct {
	Path        string
	LockTimeout time.Duration
	Logger      *zap.Logger
}

// New returns a Store for the file at path.
func New(path string) *Store {
	return &Store{
		Path:        path,
		LockTimeout: DefaultLockTimeout,
		Logger:      zap.NewNop(),
	}
}

// LockPath returns the sidecar file carrying the advisory lock.
func (s *Store) LockPath() string {
	return s.Path + ".lock"
}

// Exists reports whether the store file is present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Read loads the current store contents under a shared lock.
// A missing file yields an empty document, not an error.
func (s *Store) Read() (*Document, error) {
	fl := flock.New(s.LockPath())
	if err := s.acquire(fl.TryRLock); err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	return s.readLocked()
}

// Update runs fn inside the store's critical section: exclusive lock,
// fresh read, mutation, atomic save. fn reports whether it changed the
// document; when it did not, the save is skipped entirely and the store
// file is left untouched (it is not even created if absent).
func (s *Store) Update(fn func(doc *Document) (changed bool, err error)) error {
	fl := flock.New(s.LockPath())
	if err := s.acquire(fl.TryLock); err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}

	changed, err := fn(doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.writeLocked(doc)
}

// acquire retries the non-blocking lock attempt with exponential
// backoff until it succeeds or LockTimeout elapses. A lock that cannot
// be obtained in time classifies as an unwritable store.
func (s *Store) acquire(try func() (bool, error)) error {
	timeout := s.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = timeout

	err := backoff.Retry(func() error {
		ok, err := try()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockBusy
		}
		return nil
	}, bo)
	if err != nil {
		return fmt.Errorf("%w: could not lock %s: %v", ErrUnwritable, s.LockPath(), err)
	}
	return nil
}

// readLocked loads and decodes the store file. Callers hold the lock.
func (s *Store) readLocked() (*Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}

	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path, err)
	}
	doc.normalize()

	if doc.Schema > SchemaVersion {
		return nil, fmt.Errorf("%w: %s: schema %d is newer than supported schema %d",
			ErrCorrupt, s.Path, doc.Schema, SchemaVersion)
	}

	s.Logger.Debug("store read",
		zap.String("path", s.Path),
		zap.Int("entries", doc.Len()),
	)
	return &doc, nil
}

// writeLocked replaces the store file atomically: serialize, write to a
// temporary file in the same directory, sync, rename over the store.
// Callers hold the exclusive lock.
func (s *Store) writeLocked(doc *Document) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, s.Path, err)
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, s.Path, err)
	}
	tmpPath := tmp.Name()

	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, s.Path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, s.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, s.Path, err)
	}

	// The store is a project file meant to be committed, so open up the
	// 0600 permissions CreateTemp uses.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, s.Path, err)
	}

	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnwritable, s.Path, err)
	}
	renamed = true

	s.Logger.Debug("store written",
		zap.String("path", s.Path),
		zap.Int("entries", doc.Len()),
		zap.Int("bytes", len(data)),
	)
	return nil
}
