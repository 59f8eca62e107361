package executor_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"xreply/internal/browser/browsertest"
	"xreply/internal/executor"
	"xreply/internal/proposal"
	"xreply/internal/types"
	"xreply/internal/xdom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const postURL = "https://x.com/alice/status/42"

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func setup(t *testing.T, status types.Status) (*executor.Executor, proposal.Store, types.Proposal) {
	t.Helper()
	store, err := proposal.NewJSONStore(filepath.Join(t.TempDir(), "proposals.json"), zaptest.NewLogger(t))
	require.NoError(t, err)

	p := proposal.New(types.Post{Author: "Alice", AuthorHandle: "@alice", URL: postURL}, "Aliceさん、勉強になります！", time.Now())
	p.Status = status
	require.NoError(t, store.AddBatch(context.Background(), []types.Proposal{p}))

	exec := executor.New(store, zaptest.NewLogger(t), executor.Options{}).WithSleep(noSleep)
	return exec, store, p
}

func TestExecutePostsReplyAndLikes(t *testing.T) {
	exec, _, p := setup(t, types.StatusPending)
	page := browsertest.New().SetDoc(postURL, browsertest.PostPageDoc(browsertest.PostPage{}))

	got, err := exec.Execute(context.Background(), page, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExecuted, got.Status)
	assert.Equal(t, []string{postURL}, page.Navigations)
	assert.Equal(t, []string{"reply", "composer", "submit", "like"}, page.Clicks)
	assert.Equal(t, []string{p.ReplyText}, page.Inserted)
}

func TestExecuteAlreadyLikedIsNotAnError(t *testing.T) {
	exec, _, p := setup(t, types.StatusApproved)
	page := browsertest.New().SetDoc(postURL, browsertest.PostPageDoc(browsertest.PostPage{Liked: true}))

	got, err := exec.Execute(context.Background(), page, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExecuted, got.Status)
	assert.Equal(t, []string{"reply", "composer", "submit"}, page.Clicks)
}

func TestExecuteLifecycle(t *testing.T) {
	exec, store, p := setup(t, types.StatusPending)
	ctx := context.Background()

	// Missing reply control: execution fails and the proposal stays pending.
	page := browsertest.New().SetDoc(postURL, browsertest.PostPageDoc(browsertest.PostPage{NoReplyButton: true}))
	_, err := exec.Execute(ctx, page, p.ID)
	require.ErrorIs(t, err, executor.ErrUIElementNotFound)
	var uiErr *executor.UIElementNotFoundError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, xdom.ReplyButton, uiErr.Selector)

	stored, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, stored.Status)

	// Retry once the control is present.
	page.SetDoc(postURL, browsertest.PostPageDoc(browsertest.PostPage{}))
	got, err := exec.Execute(ctx, page, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusExecuted, got.Status)

	// A second execution is refused before any browser work.
	navigations := len(page.Navigations)
	_, err = exec.Execute(ctx, page, p.ID)
	require.ErrorIs(t, err, proposal.ErrInvalidTransition)
	assert.Len(t, page.Navigations, navigations)
}

func TestExecuteMissingLikeControlKeepsStatus(t *testing.T) {
	exec, store, p := setup(t, types.StatusPending)
	page := browsertest.New().SetDoc(postURL, browsertest.PostPageDoc(browsertest.PostPage{NoLikeButton: true}))

	_, err := exec.Execute(context.Background(), page, p.ID)
	var uiErr *executor.UIElementNotFoundError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, "like", uiErr.Control)

	stored, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, stored.Status)
}

func TestExecuteMissingComposer(t *testing.T) {
	exec, _, p := setup(t, types.StatusPending)
	page := browsertest.New().SetDoc(postURL, browsertest.PostPageDoc(browsertest.PostPage{NoComposer: true}))

	_, err := exec.Execute(context.Background(), page, p.ID)
	require.ErrorIs(t, err, executor.ErrUIElementNotFound)
	assert.Empty(t, page.Inserted)
}

func TestExecuteSkippedIsRefused(t *testing.T) {
	exec, _, p := setup(t, types.StatusSkipped)
	page := browsertest.New()

	_, err := exec.Execute(context.Background(), page, p.ID)
	require.ErrorIs(t, err, proposal.ErrInvalidTransition)
	assert.Empty(t, page.Navigations)
}

func TestExecuteUnknownProposal(t *testing.T) {
	exec, _, _ := setup(t, types.StatusPending)
	_, err := exec.Execute(context.Background(), browsertest.New(), "nope")
	require.ErrorIs(t, err, proposal.ErrNotFound)
}
