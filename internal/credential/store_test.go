package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyomlabs/vyom/internal/log"
)

// newTestStore returns a store over a temp file with the cheapest
// bcrypt cost so the suite stays fast.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	return NewStore(path, bcrypt.MinCost, log.NewNop())
}

func TestRegisterThenVerify(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Register(ctx, "Alice", "alice@example.com", "alice", "Secr3t!"))

	user, err := store.Verify(ctx, "alice", "Secr3t!")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestVerify_WrongPassword(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Register(ctx, "Alice", "alice@example.com", "alice", "Secr3t!"))

	_, err := store.Verify(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerify_UnknownUser(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Verify(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Register(ctx, "Alice", "alice@example.com", "alice", "pw1"))

	err := store.Register(ctx, "Other Alice", "other@example.com", "alice", "pw2")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	// The original registration still verifies.
	_, err = store.Verify(ctx, "alice", "pw1")
	assert.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name                              string
		fullName, email, username, passwd string
	}{
		{"empty name", "", "a@b.c", "alice", "pw"},
		{"empty email", "Alice", "", "alice", "pw"},
		{"empty username", "Alice", "a@b.c", "", "pw"},
		{"empty password", "Alice", "a@b.c", "alice", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Register(ctx, tt.fullName, tt.email, tt.username, tt.passwd)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.yaml")

	first := NewStore(path, bcrypt.MinCost, log.NewNop())
	require.NoError(t, first.Register(ctx, "Alice", "alice@example.com", "alice", "pw"))

	second := NewStore(path, bcrypt.MinCost, log.NewNop())
	user, err := second.Verify(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
}

func TestStore_NeverWritesPlaintextPassword(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	store := NewStore(path, bcrypt.MinCost, log.NewNop())

	require.NoError(t, store.Register(ctx, "Alice", "alice@example.com", "alice", "super-plaintext"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-plaintext")
	assert.Contains(t, string(data), "version: 1")
}

func TestStore_MultipleUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Register(ctx, "Alice", "alice@example.com", "alice", "pw-a"))
	require.NoError(t, store.Register(ctx, "Bob", "bob@example.com", "bob", "pw-b"))

	_, err := store.Verify(ctx, "alice", "pw-a")
	assert.NoError(t, err)
	_, err = store.Verify(ctx, "bob", "pw-b")
	assert.NoError(t, err)
	_, err = store.Verify(ctx, "alice", "pw-b")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_ConcurrentCallsLoseNoUsers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			username := fmt.Sprintf("user%d", i)
			errs[i] = store.Register(ctx, "User", username+"@example.com", username, "pw")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Every registration survived the concurrent rewrites.
	for i := range workers {
		_, err := store.Verify(ctx, fmt.Sprintf("user%d", i), "pw")
		assert.NoError(t, err)
	}
}
