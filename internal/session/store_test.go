package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyomlabs/vyom/internal/log"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), log.NewNop())
	require.NoError(t, err)
	return store
}

func TestCreate_AssignsUniqueSortedIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seen := make(map[string]bool)
	for range 10 {
		sess, err := store.Create(ctx, "alice", "chat")
		require.NoError(t, err)
		require.NotEmpty(t, sess.ID)
		assert.False(t, seen[sess.ID], "duplicate id %s", sess.ID)
		seen[sess.ID] = true
	}
}

func TestAppendThenTurns_OrderPreserved(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.Create(ctx, "alice", "chat")
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "alice", "chat", sess.ID, Turn{Role: RoleUser, Content: "hi"}))
	require.NoError(t, store.Append(ctx, "alice", "chat", sess.ID, Turn{Role: RoleAssistant, Content: "hello"}))

	turns, err := store.Turns(ctx, "alice", "chat", sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.Equal(t, "hello", turns[1].Content)
}

func TestAppend_PriorTurnsUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.Create(ctx, "alice", "chat")
	require.NoError(t, err)

	want := []string{"one", "two", "three", "four"}
	for _, content := range want {
		require.NoError(t, store.Append(ctx, "alice", "chat", sess.ID, Turn{Role: RoleUser, Content: content}))
	}

	turns, err := store.Turns(ctx, "alice", "chat", sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, len(want))
	for i, content := range want {
		assert.Equal(t, content, turns[i].Content)
		assert.Equal(t, recordVersion, turns[i].V)
		assert.False(t, turns[i].CreatedAt.IsZero())
	}
}

func TestAppend_UnknownSession(t *testing.T) {
	store := newTestStore(t)

	err := store.Append(context.Background(), "alice", "chat", "20240101T000000-1", Turn{Role: RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTurns_EmptyForUnknownID(t *testing.T) {
	store := newTestStore(t)

	turns, err := store.Turns(context.Background(), "alice", "chat", "20240101T000000-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestList_CreationOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.Create(ctx, "alice", "chat")
	require.NoError(t, err)
	second, err := store.Create(ctx, "alice", "chat")
	require.NoError(t, err)

	sessions, err := store.List(ctx, "alice", "chat")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestList_EmptyWhenNoneExist(t *testing.T) {
	store := newTestStore(t)

	sessions, err := store.List(context.Background(), "alice", "chat")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestDelete_RemovesSessionAndTurns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.Create(ctx, "alice", "chat")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "alice", "chat", sess.ID, Turn{Role: RoleUser, Content: "hi"}))

	require.NoError(t, store.Delete(ctx, "alice", "chat", sess.ID))

	sessions, err := store.List(ctx, "alice", "chat")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Loading a deleted session yields empty, not an error.
	turns, err := store.Turns(ctx, "alice", "chat", sess.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.Create(ctx, "alice", "chat")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "alice", "chat", sess.ID))
	require.NoError(t, store.Delete(ctx, "alice", "chat", sess.ID))
	require.NoError(t, store.Delete(ctx, "alice", "chat", "20240101T000000-99"))
}

func TestDelete_RemovesAttachments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewStore(dir, log.NewNop())
	require.NoError(t, err)

	sess, err := store.Create(ctx, "alice", "imagechat")
	require.NoError(t, err)

	ref, err := store.SaveAttachment(ctx, "alice", "imagechat", sess.ID, "png", []byte("not-really-a-png"))
	require.NoError(t, err)

	full := filepath.Join(dir, "alice", "imagechat", sess.ID, ref)
	_, err = os.Stat(full)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "alice", "imagechat", sess.ID))

	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteAll_ClearsSessionsAndAttachments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewStore(dir, log.NewNop())
	require.NoError(t, err)

	for range 3 {
		sess, err := store.Create(ctx, "alice", "text2image")
		require.NoError(t, err)
		_, err = store.SaveAttachment(ctx, "alice", "text2image", sess.ID, "png", []byte("img"))
		require.NoError(t, err)
	}

	require.NoError(t, store.DeleteAll(ctx, "alice", "text2image"))

	sessions, err := store.List(ctx, "alice", "text2image")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Only the lock file may remain in the feature directory.
	entries, err := os.ReadDir(filepath.Join(dir, "alice", "text2image"))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, lockFile, entry.Name())
	}

	// Idempotent.
	require.NoError(t, store.DeleteAll(ctx, "alice", "text2image"))
}

func TestSaveAttachment_TurnReferencesPathNotBytes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.Create(ctx, "alice", "imagechat")
	require.NoError(t, err)

	ref, err := store.SaveAttachment(ctx, "alice", "imagechat", sess.ID, ".png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, attachmentDir, filepath.Dir(ref))

	require.NoError(t, store.Append(ctx, "alice", "imagechat", sess.ID, Turn{
		Role:       RoleAssistant,
		Content:    "generated image",
		Attachment: ref,
	}))

	turns, err := store.Turns(ctx, "alice", "imagechat", sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, ref, turns[0].Attachment)

	f, err := store.OpenAttachment("alice", "imagechat", sess.ID, ref)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestOpenAttachment_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.Create(ctx, "alice", "imagechat")
	require.NoError(t, err)

	_, err = store.OpenAttachment("alice", "imagechat", sess.ID, "../../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestValidateName_RejectsPathComponents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "../evil", "chat")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = store.Create(ctx, "alice", "chat/../..")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestTurns_MetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.Create(ctx, "alice", "audioclassify")
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "alice", "audioclassify", sess.ID, Turn{
		Role:    RoleAssistant,
		Content: "classified",
		Meta:    map[string]float64{"Speech": 0.91, "Music": 0.07},
	}))

	turns, err := store.Turns(ctx, "alice", "audioclassify", sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.InDelta(t, 0.91, turns[0].Meta["Speech"], 1e-9)
}

func TestSessionsIsolatedPerOwnerAndFeature(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	aliceSess, err := store.Create(ctx, "alice", "chat")
	require.NoError(t, err)
	_, err = store.Create(ctx, "bob", "chat")
	require.NoError(t, err)
	_, err = store.Create(ctx, "alice", "pdfchat")
	require.NoError(t, err)

	sessions, err := store.List(ctx, "alice", "chat")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, aliceSess.ID, sessions[0].ID)
}

func TestCreate_ConcurrentCallsLoseNoSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.Create(ctx, "alice", "chat")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	sessions, err := store.List(ctx, "alice", "chat")
	require.NoError(t, err)
	require.Len(t, sessions, workers)

	seen := make(map[string]bool, workers)
	for _, sess := range sessions {
		assert.False(t, seen[sess.ID], "duplicate id %s", sess.ID)
		seen[sess.ID] = true
	}
}

func TestAppend_ConcurrentCallsLoseNoTurns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.Create(ctx, "alice", "chat")
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.Append(ctx, "alice", "chat", sess.ID, Turn{
				Role:    RoleUser,
				Content: fmt.Sprintf("message %d", i),
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	turns, err := store.Turns(ctx, "alice", "chat", sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, workers)

	seen := make(map[string]bool, workers)
	for _, turn := range turns {
		assert.False(t, seen[turn.Content], "duplicate turn %q", turn.Content)
		seen[turn.Content] = true
	}
}
