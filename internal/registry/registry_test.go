package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/solutions"
)

func newTestRegistry(t *testing.T, teamDB string) *Registry {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Dir = t.TempDir()
	cfg.Team.DatabasePath = teamDB
	cfg.Embeddings.Provider = "hash"

	provider, err := embeddings.NewProvider(cfg.Embeddings, nil)
	require.NoError(t, err)

	r := New(cfg, provider, nil)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestEngine_LazyAndCached(t *testing.T) {
	r := newTestRegistry(t, "")
	ctx := context.Background()

	first, err := r.Engine(ctx, "alpha_123abc456def")
	require.NoError(t, err)
	require.NotNil(t, first.Solutions)
	require.NotNil(t, first.Index)
	require.NotNil(t, first.Matcher)

	second, err := r.Engine(ctx, "alpha_123abc456def")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = r.Engine(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyProjectID)
}

func TestEngine_ProjectIsolation(t *testing.T) {
	r := newTestRegistry(t, "")
	ctx := context.Background()

	alpha, err := r.Engine(ctx, "alpha_123abc456def")
	require.NoError(t, err)
	beta, err := r.Engine(ctx, "beta_456def789abc")
	require.NoError(t, err)

	_, err = alpha.Solutions.Save(ctx, solutions.ScopePersonal, "ReferenceError: config is not defined", "export the config symbol")
	require.NoError(t, err)

	// The other project's memory stays empty.
	result, err := beta.Solutions.FindHybrid(ctx, "ReferenceError: config is not defined")
	require.NoError(t, err)
	assert.Nil(t, result)

	hits, err := beta.Index.Search(ctx, "ReferenceError: config is not defined", 5, "", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEnsureProject(t *testing.T) {
	r := newTestRegistry(t, "")

	require.NoError(t, r.EnsureProject("alpha_123abc456def", "/home/dev/Projects/Alpha"))

	info, ok := r.ProjectInfo("alpha_123abc456def")
	require.True(t, ok)
	assert.Equal(t, "Alpha", info.DisplayName)
	assert.Equal(t, "/home/dev/Projects/Alpha", info.WorkingDir)
	created := info.CreatedAt

	// Idempotent: a second call keeps the original record.
	require.NoError(t, r.EnsureProject("alpha_123abc456def", "/elsewhere"))
	info, ok = r.ProjectInfo("alpha_123abc456def")
	require.True(t, ok)
	assert.Equal(t, "/home/dev/Projects/Alpha", info.WorkingDir)
	assert.Equal(t, created, info.CreatedAt)

	assert.ErrorIs(t, r.EnsureProject("", "/x"), ErrEmptyProjectID)

	_, ok = r.ProjectInfo("unknown_000000000000")
	assert.False(t, ok)
}

func TestEngine_SharedTeamScope(t *testing.T) {
	teamDB := filepath.Join(t.TempDir(), "team.db")
	r := newTestRegistry(t, teamDB)
	ctx := context.Background()

	// Seed the team database through one project's engine internals.
	store, err := solutions.OpenStore(teamDB, nil)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "panic: close of closed channel", "guard the close with sync.Once", "panic: close of closed channel")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	eng, err := r.Engine(ctx, "alpha_123abc456def")
	require.NoError(t, err)

	result, err := eng.Solutions.FindHybrid(ctx, "panic: close of closed channel")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, solutions.ScopeTeam, result.Source)
}
