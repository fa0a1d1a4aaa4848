package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/vyomlabs/vyom/internal/fsx"
	"github.com/vyomlabs/vyom/internal/log"
)

const (
	indexFile     = "sessions.json"
	turnsFile     = "turns.jsonl"
	attachmentDir = "attachments"
	lockFile      = ".lock"

	// lockRetryDelay is the polling interval while waiting for a
	// (user, feature) lock held by another process.
	lockRetryDelay = 25 * time.Millisecond
)

// Store manages session persistence on the local filesystem.
//
// Every mutation holds two locks for its (user, feature) pair: an
// in-process mutex serializing goroutines of this process, and a flock
// serializing against other processes. The flock alone is not enough:
// a single *flock.Flock instance reports success to a second goroutine
// while the first still holds it.
type Store struct {
	root   string
	logger log.Logger

	mu    sync.Mutex
	locks map[string]*featureLock
}

// featureLock pairs the in-process and cross-process locks for one
// (user, feature) directory.
type featureLock struct {
	mu sync.Mutex
	fl *flock.Flock
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string, logger log.Logger) (*Store, error) {
	if err := fsx.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &Store{
		root:   dir,
		logger: logger,
		locks:  make(map[string]*featureLock),
	}, nil
}

// Create registers a new empty session for (owner, feature) and
// persists the updated index. The id is timestamp-derived with a
// monotonic suffix so same-second creations never collide.
func (s *Store) Create(ctx context.Context, owner, feature string) (*Session, error) {
	if err := validateNames(owner, feature); err != nil {
		return nil, err
	}

	unlock, err := s.acquireLock(ctx, owner, feature)
	if err != nil {
		return nil, err
	}
	defer unlock()

	idx, err := s.loadIndex(owner, feature)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	id := newSessionID(now)
	// Belt and braces: the counter makes collisions impossible within
	// one process, but the index is shared across processes.
	for s.indexContains(idx, id) {
		id = newSessionID(now)
	}

	sess := &Session{
		ID:        id,
		Title:     "ChatSession-" + id,
		CreatedAt: now,
	}
	idx.Sessions = append(idx.Sessions, sess)

	if err := s.saveIndex(owner, feature, idx); err != nil {
		return nil, err
	}

	if err := fsx.EnsureDir(s.sessionDir(owner, feature, id)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Debug("created session", "owner", owner, "feature", feature, "id", id)
	return sess, nil
}

// List returns the sessions for (owner, feature) in creation order.
// Returns an empty slice when none exist.
func (s *Store) List(ctx context.Context, owner, feature string) ([]*Session, error) {
	if err := validateNames(owner, feature); err != nil {
		return nil, err
	}

	unlock, err := s.acquireLock(ctx, owner, feature)
	if err != nil {
		return nil, err
	}
	defer unlock()

	idx, err := s.loadIndex(owner, feature)
	if err != nil {
		return nil, err
	}
	return idx.Sessions, nil
}

// Turns returns the ordered turn log for a session. A session with no
// persisted turns, including a deleted or unknown id, yields an empty
// slice rather than an error.
func (s *Store) Turns(ctx context.Context, owner, feature, id string) ([]Turn, error) {
	if err := validateNames(owner, feature); err != nil {
		return nil, err
	}
	if err := validateName("session id", id); err != nil {
		return nil, err
	}

	unlock, err := s.acquireLock(ctx, owner, feature)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.readTurns(owner, feature, id)
}

// Append adds a turn to the end of a session's log. The full updated
// sequence is written to a temp file and swapped in; a failed write
// leaves the previous log intact.
//
// Fails with ErrSessionNotFound when the id is not in the index.
func (s *Store) Append(ctx context.Context, owner, feature, id string, turn Turn) error {
	if err := validateNames(owner, feature); err != nil {
		return err
	}
	if err := validateName("session id", id); err != nil {
		return err
	}

	unlock, err := s.acquireLock(ctx, owner, feature)
	if err != nil {
		return err
	}
	defer unlock()

	idx, err := s.loadIndex(owner, feature)
	if err != nil {
		return err
	}
	if !s.indexContains(idx, id) {
		return fmt.Errorf("%w: %s/%s/%s", ErrSessionNotFound, owner, feature, id)
	}

	turns, err := s.readTurns(owner, feature, id)
	if err != nil {
		return err
	}

	turn.V = recordVersion
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	turns = append(turns, turn)

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	for i := range turns {
		if err := enc.Encode(&turns[i]); err != nil {
			return fmt.Errorf("%w: encoding turn: %v", ErrStorage, err)
		}
	}

	dir := s.sessionDir(owner, feature, id)
	if err := fsx.EnsureDir(dir); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	path := filepath.Join(dir, turnsFile)
	if err := fsx.WriteFileAtomic(path, []byte(buf.String()), 0o600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, path, err)
	}

	s.logger.Debug("appended turn",
		"owner", owner, "feature", feature, "id", id,
		"role", turn.Role, "count", len(turns))
	return nil
}

// SaveAttachment persists binary attachment bytes under the session's
// attachment directory and returns the path relative to the session
// directory for the owning turn to reference.
func (s *Store) SaveAttachment(ctx context.Context, owner, feature, id, ext string, data []byte) (string, error) {
	if err := validateNames(owner, feature); err != nil {
		return "", err
	}
	if err := validateName("session id", id); err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(ext, ".")
	if err := validateName("attachment extension", ext); err != nil {
		return "", err
	}

	unlock, err := s.acquireLock(ctx, owner, feature)
	if err != nil {
		return "", err
	}
	defer unlock()

	dir := filepath.Join(s.sessionDir(owner, feature, id), attachmentDir)
	if err := fsx.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	name := fmt.Sprintf("%s.%s", newSessionID(time.Now()), ext)
	if err := fsx.WriteFileAtomic(filepath.Join(dir, name), data, 0o600); err != nil {
		return "", fmt.Errorf("%w: writing attachment: %v", ErrStorage, err)
	}

	return filepath.Join(attachmentDir, name), nil
}

// OpenAttachment resolves a turn's attachment reference to a file,
// rejecting any path that escapes the session directory.
func (s *Store) OpenAttachment(owner, feature, id, ref string) (*os.File, error) {
	if err := validateNames(owner, feature); err != nil {
		return nil, err
	}
	if err := validateName("session id", id); err != nil {
		return nil, err
	}

	dir := s.sessionDir(owner, feature, id)
	path := filepath.Join(dir, filepath.Clean(ref))
	if !strings.HasPrefix(path, dir+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: attachment ref %q", ErrInvalidName, ref)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrAttachmentNotFound, ref)
		}
		return nil, fmt.Errorf("%w: opening attachment: %v", ErrStorage, err)
	}
	return f, nil
}

// Delete removes a session from the index and deletes its turn log and
// attachments. Deleting a nonexistent session is a no-op.
func (s *Store) Delete(ctx context.Context, owner, feature, id string) error {
	if err := validateNames(owner, feature); err != nil {
		return err
	}
	if err := validateName("session id", id); err != nil {
		return err
	}

	unlock, err := s.acquireLock(ctx, owner, feature)
	if err != nil {
		return err
	}
	defer unlock()

	idx, err := s.loadIndex(owner, feature)
	if err != nil {
		return err
	}

	before := len(idx.Sessions)
	idx.Sessions = slices.DeleteFunc(idx.Sessions, func(sess *Session) bool {
		return sess.ID == id
	})
	if len(idx.Sessions) != before {
		if err := s.saveIndex(owner, feature, idx); err != nil {
			return err
		}
	}

	// Turn log and attachments go together with the session.
	if err := os.RemoveAll(s.sessionDir(owner, feature, id)); err != nil {
		return fmt.Errorf("%w: removing session dir: %v", ErrStorage, err)
	}

	s.logger.Debug("deleted session", "owner", owner, "feature", feature, "id", id)
	return nil
}

// DeleteAll removes every session for (owner, feature), including all
// attachment files. Idempotent.
func (s *Store) DeleteAll(ctx context.Context, owner, feature string) error {
	if err := validateNames(owner, feature); err != nil {
		return err
	}

	unlock, err := s.acquireLock(ctx, owner, feature)
	if err != nil {
		return err
	}
	defer unlock()

	dir := s.featureDir(owner, feature)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: reading %s: %v", ErrStorage, dir, err)
	}

	for _, entry := range entries {
		if entry.Name() == lockFile {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("%w: removing %s: %v", ErrStorage, entry.Name(), err)
		}
	}

	s.logger.Debug("deleted all sessions", "owner", owner, "feature", feature)
	return nil
}

func validateNames(owner, feature string) error {
	if err := validateName("owner", owner); err != nil {
		return err
	}
	return validateName("feature", feature)
}

func (s *Store) featureDir(owner, feature string) string {
	return filepath.Join(s.root, owner, feature)
}

func (s *Store) sessionDir(owner, feature, id string) string {
	return filepath.Join(s.featureDir(owner, feature), id)
}

func (s *Store) indexContains(idx *index, id string) bool {
	return slices.ContainsFunc(idx.Sessions, func(sess *Session) bool {
		return sess.ID == id
	})
}

// acquireLock takes the (owner, feature) locks, honoring ctx: first the
// in-process mutex, then the file lock. The returned function releases
// both in reverse order.
func (s *Store) acquireLock(ctx context.Context, owner, feature string) (func(), error) {
	dir := s.featureDir(owner, feature)
	if err := fsx.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.mu.Lock()
	lock, ok := s.locks[dir]
	if !ok {
		lock = &featureLock{fl: flock.New(filepath.Join(dir, lockFile))}
		s.locks[dir] = lock
	}
	s.mu.Unlock()

	lock.mu.Lock()

	locked, err := lock.fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		lock.mu.Unlock()
		return nil, fmt.Errorf("%w: acquiring lock: %v", ErrStorage, err)
	}
	if !locked {
		lock.mu.Unlock()
		return nil, fmt.Errorf("%w: lock not acquired", ErrStorage)
	}

	return func() {
		if err := lock.fl.Unlock(); err != nil {
			s.logger.Warn("failed to release session lock",
				"owner", owner, "feature", feature, "error", err)
		}
		lock.mu.Unlock()
	}, nil
}

// loadIndex reads sessions.json. A missing file yields an empty index.
func (s *Store) loadIndex(owner, feature string) (*index, error) {
	idx := &index{Version: recordVersion, Sessions: []*Session{}}

	path := filepath.Join(s.featureDir(owner, feature), indexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorage, path, err)
	}

	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrStorage, path, err)
	}
	if idx.Sessions == nil {
		idx.Sessions = []*Session{}
	}
	return idx, nil
}

// saveIndex rewrites sessions.json atomically.
func (s *Store) saveIndex(owner, feature string, idx *index) error {
	idx.Version = recordVersion

	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("%w: encoding index: %v", ErrStorage, err)
	}

	path := filepath.Join(s.featureDir(owner, feature), indexFile)
	if err := fsx.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, path, err)
	}
	return nil
}

// readTurns reads a session's JSONL turn log without taking the lock;
// callers hold it.
func (s *Store) readTurns(owner, feature, id string) ([]Turn, error) {
	path := filepath.Join(s.sessionDir(owner, feature, id), turnsFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("%w: opening %s: %v", ErrStorage, path, err)
	}
	defer f.Close()

	turns := []Turn{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var turn Turn
		if err := json.Unmarshal([]byte(line), &turn); err != nil {
			// A malformed record is logged and skipped rather than
			// poisoning the whole session.
			s.logger.Warn("skipping malformed turn record",
				"owner", owner, "feature", feature, "id", id, "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", ErrStorage, path, err)
	}

	return turns, nil
}
