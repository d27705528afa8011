package vectorindex

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectors_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := [][]float32{
		{1, 2, 3, 4},
		{-0.5, 0, 0.5, 1.5},
	}

	require.NoError(t, writeVectors(dir, in, 4))
	out, err := readVectors(dir, 4)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVectors_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeVectors(dir, [][]float32{{1, 2}}, 2))

	_, err := readVectors(dir, 4)
	require.ErrorIs(t, err, errBadVectorsFile)
}

func TestVectors_CountBeyondFileSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeVectors(dir, [][]float32{{1, 2, 3, 4}}, 4))

	// Inflate the row count in the header without growing the file. The
	// reader must reject it before allocating for the claimed count.
	path := filepath.Join(dir, vectorsFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[8:], 1<<30)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = readVectors(dir, 4)
	require.ErrorIs(t, err, errBadVectorsFile)
}

func TestVectors_TruncatedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeVectors(dir, [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}}, 4))

	path := filepath.Join(dir, vectorsFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o644))

	_, err = readVectors(dir, 4)
	require.ErrorIs(t, err, errBadVectorsFile)
}
