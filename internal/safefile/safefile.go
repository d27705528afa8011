// Package safefile provides crash-safe JSON persistence and advisory
// file locking for the small state records the daemon shares across
// processes (active project, boundary state, index metadata).
//
// Writes go to a temp file in the target directory, are synced, and are
// renamed over the target so a crash never leaves a half-written file.
// Reads fall back to a once-removed backup when the primary file fails
// to decode.
package safefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// backupSuffix names the once-removed copy kept beside every JSON file.
const backupSuffix = ".bak"

// WriteJSON atomically persists v as indented JSON at path.
//
// The previous content, if any, is preserved at path+".bak" before the
// rename, giving ReadJSON one level of corruption recovery.
func WriteJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	// Keep the previous good content as backup. Best effort: a missing
	// original is not an error.
	if prev, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(path+backupSuffix, prev, 0o644)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming %s over %s: %w", tmpName, path, err)
	}
	return nil
}

// ReadJSON decodes path into v. When the primary file is missing or
// fails to decode, it tries the backup; when that also fails, v is left
// untouched (the caller's default) and no error is returned for decode
// failures. I/O errors other than non-existence are reported.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if json.Unmarshal(data, v) == nil {
			return nil
		}
		// Corrupt primary, fall through to backup.
	case errors.Is(err, os.ErrNotExist):
		// Fall through to backup.
	default:
		return fmt.Errorf("reading %s: %w", path, err)
	}

	backup, err := os.ReadFile(path + backupSuffix)
	if err != nil {
		return nil // no backup either: keep caller default
	}
	_ = json.Unmarshal(backup, v) // best effort; default survives failure
	return nil
}
