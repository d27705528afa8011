package boundary

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProjectRoot(t *testing.T) {
	home := t.TempDir()

	gitProject := filepath.Join(home, "Projects", "alpha")
	require.NoError(t, os.MkdirAll(filepath.Join(gitProject, ".git"), 0o755))

	nodeProject := filepath.Join(home, "Projects", "webapp")
	require.NoError(t, os.MkdirAll(nodeProject, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nodeProject, "package.json"), []byte("{}"), 0o644))

	bare := filepath.Join(home, "Projects", "scratch")
	require.NoError(t, os.MkdirAll(bare, 0o755))

	t.Run("git root is high confidence", func(t *testing.T) {
		cand := findProjectRoot(filepath.Join(gitProject, "src", "main.go"), home)
		assert.Equal(t, gitProject, cand.root)
		assert.Equal(t, ".git", cand.marker)
		assert.Equal(t, ConfidenceHigh, cand.confidence)
	})

	t.Run("manifest is medium confidence", func(t *testing.T) {
		cand := findProjectRoot(filepath.Join(nodeProject, "index.js"), home)
		assert.Equal(t, nodeProject, cand.root)
		assert.Equal(t, "package.json", cand.marker)
		assert.Equal(t, ConfidenceMedium, cand.confidence)
	})

	t.Run("no marker is low confidence", func(t *testing.T) {
		cand := findProjectRoot(filepath.Join(bare, "notes.txt"), home)
		assert.Empty(t, cand.root)
		assert.Equal(t, ConfidenceLow, cand.confidence)
	})

	t.Run("walk stops at home", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(home, ".git"), 0o755))
		cand := findProjectRoot(filepath.Join(bare, "notes.txt"), home)
		assert.Equal(t, ConfidenceLow, cand.confidence)
	})
}

func TestIsSkipPath(t *testing.T) {
	home := "/home/dev"
	prefixes := []string{"/tmp", "/var"}

	assert.True(t, isSkipPath("/tmp/scratch.txt", home, prefixes))
	assert.True(t, isSkipPath("/var/log/app.log", home, prefixes))
	assert.True(t, isSkipPath(home, home, prefixes))
	assert.False(t, isSkipPath("/home/dev/Projects/alpha", home, prefixes))
	// Prefix matching is per component.
	assert.False(t, isSkipPath("/tmpfiles/a.txt", home, prefixes))
}

func TestIsDerivativeFolder(t *testing.T) {
	tests := []struct {
		name   string
		new    string
		active string
		want   bool
	}{
		{"dist suffix", "/p/myapp-dist", "/p/myapp", true},
		{"build suffix with infix", "/p/MyApp-Windows-Build", "/p/MyApp", true},
		{"underscore build", "/p/tool_build", "/p/tool", true},
		{"prefixed sibling", "/p/alpha2", "/p/alpha", true},
		{"prefixed but different parent", "/q/alpha2", "/p/alpha", false},
		{"unrelated sibling", "/p/beta", "/p/alpha", false},
		{"same name", "/p/alpha", "/p/alpha", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDerivativeFolder(tt.new, tt.active))
		})
	}
}

func TestIsFreshRelatedFolder(t *testing.T) {
	base := t.TempDir()
	now := time.Now()

	related := filepath.Join(base, "alpha-copy")
	require.NoError(t, os.MkdirAll(related, 0o755))

	unrelated := filepath.Join(base, "gamma")
	require.NoError(t, os.MkdirAll(unrelated, 0o755))

	old := filepath.Join(base, "alpha-old")
	require.NoError(t, os.MkdirAll(old, 0o755))
	past := now.Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	assert.True(t, isFreshRelatedFolder(related, "/p/alpha", DefaultFreshFolderAge, now))
	assert.False(t, isFreshRelatedFolder(unrelated, "/p/alpha", DefaultFreshFolderAge, now))
	assert.False(t, isFreshRelatedFolder(old, "/p/alpha", DefaultFreshFolderAge, now))
}

func TestPotentialProjectRoot(t *testing.T) {
	home := t.TempDir()

	tool := filepath.Join(home, "Desktop", "newtool")
	require.NoError(t, os.MkdirAll(filepath.Join(tool, "src"), 0o755))

	got := potentialProjectRoot(filepath.Join(tool, "src", "main.py"), home)
	assert.Equal(t, tool, got)

	elsewhere := filepath.Join(home, "Downloads", "thing")
	require.NoError(t, os.MkdirAll(elsewhere, 0o755))
	assert.Empty(t, potentialProjectRoot(filepath.Join(elsewhere, "a.txt"), home))
}

func TestIsValidAutoCreateFolder(t *testing.T) {
	home := t.TempDir()

	good := filepath.Join(home, "Documents", "sidegig")
	require.NoError(t, os.MkdirAll(good, 0o755))
	assert.True(t, isValidAutoCreateFolder(good, home))

	denied := filepath.Join(home, "Documents", "node_modules")
	require.NoError(t, os.MkdirAll(denied, 0o755))
	assert.False(t, isValidAutoCreateFolder(denied, home))

	outside := filepath.Join(home, "opt", "thing")
	require.NoError(t, os.MkdirAll(outside, 0o755))
	assert.False(t, isValidAutoCreateFolder(outside, home))

	assert.False(t, isValidAutoCreateFolder(filepath.Join(home, "Documents", "missing"), home))
}

func TestAutoCreateMarker(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "newtool")
	require.NoError(t, os.MkdirAll(folder, 0o755))

	markerPath, err := autoCreateMarker(folder, time.Now())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, "package.json"), markerPath)

	data, err := os.ReadFile(markerPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"auto_created": true`)
	assert.Contains(t, string(data), `"name": "newtool"`)

	// An existing manifest is left untouched.
	require.NoError(t, os.WriteFile(markerPath, []byte(`{"name":"real"}`), 0o644))
	again, err := autoCreateMarker(folder, time.Now())
	require.NoError(t, err)
	assert.Equal(t, markerPath, again)
	data, err = os.ReadFile(markerPath)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"real"}`, string(data))
}
