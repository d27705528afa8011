package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRemoteURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"ssh scp form", "git@github.com:user/repo.git", "github.com/user/repo"},
		{"https", "https://github.com/user/repo", "github.com/user/repo"},
		{"https with suffix", "https://github.com/user/repo.git", "github.com/user/repo"},
		{"ssh scheme", "ssh://git@github.com/user/repo.git", "github.com/user/repo"},
		{"gitlab nested group", "git@gitlab.com:group/sub/repo.git", "gitlab.com/group/sub/repo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRemoteURL(tt.raw))
		})
	}
}

func TestResolve_GitRemote(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:acme/widget.git"},
	})
	require.NoError(t, err)

	r := NewResolver(nil)
	identity, err := r.Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, StrategyGitRemote, identity.Strategy)
	assert.Equal(t, "github.com/acme/widget", identity.SourceValue)
	assert.Equal(t, "widget", identity.ProjectName)
	assert.Equal(t, "widget_"+shortHash("github.com/acme/widget"), identity.ProjectID)
}

func TestResolve_RemoteStableAcrossClones(t *testing.T) {
	mkClone := func(t *testing.T) string {
		dir := t.TempDir()
		repo, err := git.PlainInit(dir, false)
		require.NoError(t, err)
		_, err = repo.CreateRemote(&config.RemoteConfig{
			Name: "origin",
			URLs: []string{"https://github.com/acme/widget.git"},
		})
		require.NoError(t, err)
		return dir
	}

	r := NewResolver(nil)
	first, err := r.Resolve(mkClone(t))
	require.NoError(t, err)
	second, err := r.Resolve(mkClone(t))
	require.NoError(t, err)

	assert.Equal(t, first.ProjectID, second.ProjectID)
}

func TestResolve_RemoteChangeChangesProjectID(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/acme/widget.git"},
	})
	require.NoError(t, err)

	r := NewResolver(nil)
	before, err := r.Resolve(dir)
	require.NoError(t, err)

	// Re-point origin at a different host; the path-derived repo name is
	// unchanged but the hashed remote differs.
	require.NoError(t, repo.DeleteRemote("origin"))
	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://gitlab.com/acme/widget.git"},
	})
	require.NoError(t, err)

	r.ClearCache()
	after, err := r.Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, before.ProjectName, after.ProjectName)
	assert.NotEqual(t, before.ProjectID, after.ProjectID)
}

func TestResolve_GitLocal(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	r := NewResolver(nil)
	identity, err := r.Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, StrategyGitLocal, identity.Strategy)
	assert.Equal(t, filepath.Base(dir), identity.ProjectName)
	assert.Contains(t, identity.ProjectID, filepath.Base(dir)+"_")
}

func TestResolve_GitLocal_FromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	sub := filepath.Join(dir, "internal", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	r := NewResolver(nil)
	fromRoot, err := r.Resolve(dir)
	require.NoError(t, err)
	fromSub, err := r.Resolve(sub)
	require.NoError(t, err)

	assert.Equal(t, fromRoot.ProjectID, fromSub.ProjectID)
}

func TestResolve_UUIDMarkerPersists(t *testing.T) {
	dir := t.TempDir()

	r := NewResolver(nil)
	first, err := r.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, StrategyUUID, first.Strategy)

	markerPath := filepath.Join(dir, MarkerDirName, markerFileName)
	_, err = os.Stat(markerPath)
	require.NoError(t, err, "marker file should be created")

	// A fresh resolver must read the marker back, not mint a new uuid.
	second, err := NewResolver(nil).Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, first.ProjectID, second.ProjectID)
	assert.Equal(t, first.SourceValue, second.SourceValue)
}

func TestResolve_CacheHit(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(nil)

	first, err := r.Resolve(dir)
	require.NoError(t, err)

	// Removing the marker does not affect cached resolutions.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, MarkerDirName)))
	second, err := r.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, first.ProjectID, second.ProjectID)

	r.ClearCache()
	third, err := r.Resolve(dir)
	require.NoError(t, err)
	assert.NotEqual(t, first.ProjectID, third.ProjectID)
}

func TestResolve_EmptyPath(t *testing.T) {
	_, err := NewResolver(nil).Resolve("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(inside, 0o755))

	assert.NoError(t, Validate(root, root))
	assert.NoError(t, Validate(inside, root))

	err := Validate(filepath.Dir(root), root)
	assert.ErrorIs(t, err, ErrProjectMismatch)

	// A sibling whose name shares the root's prefix is still outside.
	sibling := root + "-dist"
	require.NoError(t, os.MkdirAll(sibling, 0o755))
	assert.ErrorIs(t, Validate(sibling, root), ErrProjectMismatch)
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	assert.True(t, Within(filepath.Join(root, "a", "b"), root))
	assert.True(t, Within(root, root))
	assert.False(t, Within(root+"-build", root))
	assert.False(t, Within(filepath.Dir(root), root))
}
