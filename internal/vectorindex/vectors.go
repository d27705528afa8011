package vectorindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// vectorsFile stores the vector matrix as little-endian float32 rows
// behind a small header. It plays the role a .npy file plays elsewhere.
const vectorsFile = "vectors.bin"

var vectorsMagic = [4]byte{'R', 'C', 'L', 'V'}

const vectorsFormatVersion = 1

var errBadVectorsFile = errors.New("malformed vectors file")

// writeVectors atomically persists the matrix (rows × dim).
func writeVectors(indexDir string, vectors [][]float32, dim int) error {
	tmp, err := os.CreateTemp(indexDir, vectorsFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp vectors file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	header := make([]byte, 16)
	copy(header, vectorsMagic[:])
	binary.LittleEndian.PutUint32(header[4:], vectorsFormatVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(header[12:], uint32(dim))
	if _, err := tmp.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("writing vectors header: %w", err)
	}

	row := make([]byte, dim*4)
	for _, vec := range vectors {
		for i, v := range vec {
			binary.LittleEndian.PutUint32(row[i*4:], math.Float32bits(v))
		}
		if _, err := tmp.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("writing vector row: %w", err)
		}
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing vectors file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing vectors file: %w", err)
	}
	return os.Rename(tmpName, filepath.Join(indexDir, vectorsFile))
}

// readVectors loads the matrix, validating the header against dim.
func readVectors(indexDir string, dim int) ([][]float32, error) {
	f, err := os.Open(filepath.Join(indexDir, vectorsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, 16)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("%w: short header", errBadVectorsFile)
	}
	if [4]byte(header[:4]) != vectorsMagic {
		return nil, fmt.Errorf("%w: bad magic", errBadVectorsFile)
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != vectorsFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", errBadVectorsFile, v)
	}
	count := int(binary.LittleEndian.Uint32(header[8:]))
	fileDim := int(binary.LittleEndian.Uint32(header[12:]))
	if fileDim != dim {
		return nil, fmt.Errorf("%w: dimension %d, expected %d", errBadVectorsFile, fileDim, dim)
	}

	// Check the declared row count against the real file size before
	// allocating; a corrupt header must not drive a huge allocation.
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat vectors file: %w", err)
	}
	if want := int64(16) + int64(count)*int64(dim)*4; fi.Size() != want {
		return nil, fmt.Errorf("%w: size %d does not match %d rows of dimension %d",
			errBadVectorsFile, fi.Size(), count, dim)
	}

	vectors := make([][]float32, count)
	row := make([]byte, dim*4)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(f, row); err != nil {
			return nil, fmt.Errorf("%w: truncated at row %d", errBadVectorsFile, i)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(row[j*4:]))
		}
		vectors[i] = vec
	}
	return vectors, nil
}
