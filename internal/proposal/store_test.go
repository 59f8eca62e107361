package proposal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"xreply/internal/config"
	"xreply/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var epoch = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := epoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type backend struct {
	name string
	open func(t *testing.T, opts ...Option) Store
}

var backends = []backend{
	{"json", func(t *testing.T, opts ...Option) Store {
		s, err := NewJSONStore(filepath.Join(t.TempDir(), "data", "proposals.json"), zaptest.NewLogger(t), opts...)
		require.NoError(t, err)
		return s
	}},
	{"sqlite", func(t *testing.T, opts ...Option) Store {
		s, err := OpenSQLite(":memory:", zaptest.NewLogger(t), opts...)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t, WithClock(stepClock())))
		})
	}
}

func samplePost(i int) types.Post {
	return types.Post{
		Text:          fmt.Sprintf("post %d", i),
		Author:        fmt.Sprintf("Author %d", i),
		AuthorHandle:  fmt.Sprintf("@author%d", i),
		AuthorProfile: "CEO",
		URL:           fmt.Sprintf("https://x.com/author%d/status/%d", i, i),
		Timestamp:     "2025-03-31T10:00:00.000Z",
	}
}

func TestEmptyStoreListsNothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		got, err := s.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := New(samplePost(1), "こんにちは", epoch)
		q := New(samplePost(2), "hello", epoch)
		require.NoError(t, s.AddBatch(ctx, []types.Proposal{p, q}))

		all, err := s.List(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff([]types.Proposal{p, q}, all); diff != "" {
			t.Fatalf("List() mismatch (-want +got):\n%s", diff)
		}

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, cmp.Equal(p, got))

		skipped, err := s.Update(ctx, p.ID, types.StatusPatch(types.StatusSkipped))
		require.NoError(t, err)
		assert.Equal(t, types.StatusSkipped, skipped.Status)
		assert.True(t, skipped.UpdatedAt.After(skipped.CreatedAt))
		assert.Equal(t, p.CreatedAt, skipped.CreatedAt.UTC())
		assert.Equal(t, p.ReplyText, skipped.ReplyText)

		require.NoError(t, s.Delete(ctx, p.ID))
		all, err = s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, q.ID, all[0].ID)
	})
}

func TestUnknownID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Update(ctx, "missing", types.TextPatch("x"))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
	})
}

func TestDuplicatesAreKept(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		post := samplePost(1)
		require.NoError(t, s.AddBatch(ctx, []types.Proposal{New(post, "a", epoch)}))
		require.NoError(t, s.AddBatch(ctx, []types.Proposal{New(post, "b", epoch)}))
		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestTransitionGuard(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := New(samplePost(1), "reply", epoch)
		require.NoError(t, s.AddBatch(ctx, []types.Proposal{p}))

		edited, err := s.Update(ctx, p.ID, types.TextPatch("edited"))
		require.NoError(t, err)
		assert.Equal(t, types.StatusPending, edited.Status)

		approved, err := s.Update(ctx, p.ID, types.StatusPatch(types.StatusApproved))
		require.NoError(t, err)
		assert.Equal(t, types.StatusApproved, approved.Status)

		_, err = s.Update(ctx, p.ID, types.StatusPatch(types.StatusPending))
		require.ErrorIs(t, err, ErrInvalidTransition)

		executed, err := s.Update(ctx, p.ID, types.StatusPatch(types.StatusExecuted))
		require.NoError(t, err)

		for _, to := range []types.Status{types.StatusPending, types.StatusApproved, types.StatusSkipped} {
			_, err = s.Update(ctx, p.ID, types.StatusPatch(to))
			require.ErrorIs(t, err, ErrInvalidTransition, "executed -> %s", to)
		}
		_, err = s.Update(ctx, p.ID, types.StatusPatch("bogus"))
		require.ErrorIs(t, err, ErrInvalidTransition)

		// Rejected updates leave the record untouched.
		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, cmp.Equal(executed, got))

		// Same-state and text-only writes stay legal in a terminal state.
		_, err = s.Update(ctx, p.ID, types.StatusPatch(types.StatusExecuted))
		require.NoError(t, err)
		final, err := s.Update(ctx, p.ID, types.TextPatch("note"))
		require.NoError(t, err)
		assert.Equal(t, "note", final.ReplyText)
		assert.True(t, final.UpdatedAt.After(executed.UpdatedAt))
	})
}

func TestConcurrentUpdatesAreSerialised(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		batch := make([]types.Proposal, 20)
		for i := range batch {
			batch[i] = New(samplePost(i), "r", epoch)
		}
		require.NoError(t, s.AddBatch(ctx, batch))

		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := s.Update(ctx, id, types.StatusPatch(types.StatusSkipped))
				assert.NoError(t, err)
			}(batch[i].ID)
		}
		wg.Wait()

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, len(batch))
		for _, p := range all {
			assert.Equal(t, types.StatusSkipped, p.Status, p.ID)
		}
	})
}

func TestJSONStoreInitialisesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "proposals.json")
	_, err := NewJSONStore(path, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestJSONStoreWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.json")
	s, err := NewJSONStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.AddBatch(context.Background(), []types.Proposal{New(samplePost(1), "r", epoch)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, field := range []string{`"id"`, `"post"`, `"authorHandle"`, `"authorProfile"`, `"replyText"`, `"status": "pending"`, `"createdAt": "2025-04-01T09:00:00Z"`, `"updatedAt"`} {
		assert.Contains(t, string(data), field)
	}
}

func TestJSONStoreCorruptFileIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	s, err := NewJSONStore(path, nil)
	require.NoError(t, err)

	_, err = s.List(context.Background())
	require.ErrorIs(t, err, ErrStorage)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(config.StorageConfig{Backend: config.BackendJSON, Path: filepath.Join(dir, "p.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = Open(config.StorageConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "p.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.StorageConfig{Backend: "redis"}, nil)
	require.Error(t, err)
}
