package safefile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, WriteJSON(path, record{Name: "alpha", Count: 3}))

	var got record
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, record{Name: "alpha", Count: 3}, got)
}

func TestReadJSON_MissingFileKeepsDefault(t *testing.T) {
	var got = record{Name: "default"}
	require.NoError(t, ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &got))
	assert.Equal(t, "default", got.Name)
}

func TestReadJSON_CorruptFileRecoversFromBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, WriteJSON(path, record{Name: "v1", Count: 1}))
	require.NoError(t, WriteJSON(path, record{Name: "v2", Count: 2}))

	// Corrupt the primary; the backup still holds v1.
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	var got record
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, "v1", got.Name)
}

func TestReadJSON_CorruptFileNoBackupKeepsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	got := record{Name: "fallback"}
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, "fallback", got.Name)
}

func TestLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	first := NewLock(path, time.Second)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := NewLock(path, 200*time.Millisecond)
	err := second.Acquire()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestLock_ReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	lock := NewLock(path, time.Second)
	require.NoError(t, lock.Acquire())
	lock.Release()

	again := NewLock(path, time.Second)
	require.NoError(t, again.Acquire())
	again.Release()
}

func TestWithLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	ran := false
	require.NoError(t, WithLock(path, time.Second, func() error {
		ran = true
		return WriteJSON(path, record{Name: "locked"})
	}))
	assert.True(t, ran)
}
