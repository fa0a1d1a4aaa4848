// Package credential provides the user credential table: a single YAML
// file mapping usernames to profile data and bcrypt password hashes.
//
// The file is read fully and rewritten fully on every mutation. An
// exclusive flock guards the read-modify-write cycle so concurrent
// processes cannot lose updates, and the rewrite goes through a temp
// file + rename so a crash never corrupts the table.
//
// There are no update or delete operations; users are created once.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/vyomlabs/vyom/internal/fsx"
	"github.com/vyomlabs/vyom/internal/log"
)

// fileVersion is the current credential file schema version.
const fileVersion = 1

// lockRetryDelay is the polling interval while waiting for the file lock.
const lockRetryDelay = 25 * time.Millisecond

// User is one credential table entry.
type User struct {
	Username string `yaml:"-" json:"username"`
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email" json:"email"`
	// PasswordHash is the bcrypt hash; never the plaintext.
	PasswordHash string `yaml:"password" json:"-"`
}

// credentialFile is the on-disk YAML layout. The nested
// credentials/usernames mapping keeps the file hand-editable.
type credentialFile struct {
	Version     int `yaml:"version"`
	Credentials struct {
		Usernames map[string]userRecord `yaml:"usernames"`
	} `yaml:"credentials"`
}

type userRecord struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Store manages the credential file.
//
// Every read-modify-write holds two locks: an in-process mutex
// serializing goroutines of this process, and a flock serializing
// against other processes. The flock alone is not enough: a single
// *flock.Flock instance reports success to a second goroutine while
// the first still holds it.
type Store struct {
	path       string
	mu         sync.Mutex
	lock       *flock.Flock
	bcryptCost int
	logger     log.Logger
}

// NewStore creates a credential store backed by the YAML file at path.
// bcryptCost of 0 means bcrypt.DefaultCost.
func NewStore(path string, bcryptCost int, logger log.Logger) *Store {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Store{
		path:       path,
		lock:       flock.New(path + ".lock"),
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register adds a new user. The password is bcrypt-hashed before it
// touches disk and the whole table is rewritten atomically.
//
// Fails with ErrValidation when any field is empty, ErrDuplicateUsername
// when the username is taken, ErrStorage when the write fails.
func (s *Store) Register(ctx context.Context, name, email, username, password string) error {
	if name == "" || email == "" || username == "" || password == "" {
		return fmt.Errorf("%w: name, email, username and password are all required", ErrValidation)
	}

	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	table, err := s.load()
	if err != nil {
		return err
	}

	if _, exists := table.Credentials.Usernames[username]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateUsername, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	table.Credentials.Usernames[username] = userRecord{
		Name:     name,
		Email:    email,
		Password: string(hash),
	}

	if err := s.save(table); err != nil {
		return err
	}

	s.logger.Info("registered user", "username", username)
	return nil
}

// Verify checks username/password against the table and returns the
// matching user.
//
// Fails with ErrNotFound for an unknown username and
// ErrInvalidCredentials for a hash mismatch.
func (s *Store) Verify(ctx context.Context, username, password string) (*User, error) {
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	table, err := s.load()
	if err != nil {
		return nil, err
	}

	rec, ok := table.Credentials.Usernames[username]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &User{
		Username:     username,
		Name:         rec.Name,
		Email:        rec.Email,
		PasswordHash: rec.Password,
	}, nil
}

// acquireLock takes the in-process mutex and then the exclusive file
// lock, honoring ctx cancellation. The returned function releases both
// in reverse order.
func (s *Store) acquireLock(ctx context.Context) (func(), error) {
	s.mu.Lock()

	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: acquiring lock: %v", ErrStorage, err)
	}
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: lock not acquired", ErrStorage)
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release credential lock", "error", err)
		}
		s.mu.Unlock()
	}, nil
}

// load reads the whole table. A missing file yields an empty table,
// matching first-run behavior.
func (s *Store) load() (*credentialFile, error) {
	table := &credentialFile{Version: fileVersion}
	table.Credentials.Usernames = make(map[string]userRecord)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return table, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorage, s.path, err)
	}

	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrStorage, s.path, err)
	}
	if table.Credentials.Usernames == nil {
		table.Credentials.Usernames = make(map[string]userRecord)
	}

	return table, nil
}

// save rewrites the whole table atomically.
func (s *Store) save(table *credentialFile) error {
	table.Version = fileVersion

	data, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("%w: encoding table: %v", ErrStorage, err)
	}

	if err := fsx.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, s.path, err)
	}

	return nil
}
