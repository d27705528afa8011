package solutions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "solutions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_InsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, "TypeError: x is undefined", "check the import", "typeerror: x is undefined")
	require.NoError(t, err)
	require.Positive(t, id)

	sol, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "TypeError: x is undefined", sol.ErrorMessage)
	assert.Equal(t, "check the import", sol.SolutionText)
	assert.Equal(t, 1.0, sol.ConfidenceScore)
	assert.Equal(t, 0, sol.SuccessCount)
	assert.False(t, sol.Timestamp.IsZero())
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_FindExact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, "raw", "fix a", "connection refused on port X")
	require.NoError(t, err)

	sol, ok, err := store.FindExact(ctx, "connection refused on port X")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fix a", sol.SolutionText)

	_, ok, err = store.FindExact(ctx, "something else entirely")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_FindExactPrefersSuccessful(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Insert(ctx, "raw", "older fix", "timeout talking to db")
	require.NoError(t, err)
	_, err = store.Insert(ctx, "raw", "newer fix", "timeout talking to db")
	require.NoError(t, err)

	require.NoError(t, store.IncrementSuccess(ctx, first))

	sol, ok, err := store.FindExact(ctx, "timeout talking to db")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "older fix", sol.SolutionText)
}

func TestStore_FindPartial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, "raw", "restart the worker", "task queue full: dropping payload after retries")
	require.NoError(t, err)

	sol, ok, err := store.FindPartial(ctx, "task queue full: dropping payload")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "restart the worker", sol.SolutionText)

	_, ok, err = store.FindPartial(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_FindPartialEscapesWildcards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, "raw", "fix", "disk usage at 95 percent")
	require.NoError(t, err)

	// A literal % in the query must not act as a wildcard.
	_, ok, err := store.FindPartial(ctx, "disk usage %")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_IncrementSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, "raw", "fix", "clean")
	require.NoError(t, err)

	require.NoError(t, store.IncrementSuccess(ctx, id))
	require.NoError(t, store.IncrementSuccess(ctx, id))

	sol, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, sol.SuccessCount)

	assert.ErrorIs(t, store.IncrementSuccess(ctx, 12345), ErrNotFound)
}

func TestStore_DeleteAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, "raw", "fix", "clean")
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := store.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_AllAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, clean := range []string{"first", "second", "third"} {
		_, err := store.Insert(ctx, "raw "+clean, "fix "+clean, clean)
		require.NoError(t, err)
	}

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].ErrorClean)

	newest, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "third", newest[0].ErrorClean)
}
