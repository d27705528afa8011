package boundary

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// rootCandidate is the outcome of walking up from a path looking for
// project markers.
type rootCandidate struct {
	root       string
	marker     string
	confidence Confidence
}

// findProjectRoot walks up from path toward the filesystem root,
// stopping before home, and returns the first directory carrying a
// strong marker. Without one the candidate is low confidence.
func findProjectRoot(path, home string) rootCandidate {
	none := rootCandidate{confidence: ConfidenceLow}
	if path == "" {
		return none
	}

	current := startDir(path)
	if current == "" {
		return none
	}

	for current != home && current != filepath.Dir(current) {
		for _, m := range strongMarkers {
			if _, err := os.Stat(filepath.Join(current, m.name)); err == nil {
				return rootCandidate{root: current, marker: m.name, confidence: m.confidence}
			}
		}
		current = filepath.Dir(current)
	}
	return none
}

// startDir resolves the directory to begin the walk from. Files and
// not-yet-written paths both start at the nearest existing ancestor
// directory.
func startDir(path string) string {
	current := path
	if info, err := os.Stat(current); err == nil {
		if !info.IsDir() {
			current = filepath.Dir(current)
		}
		return current
	}
	current = filepath.Dir(current)
	for current != filepath.Dir(current) {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		current = filepath.Dir(current)
	}
	return ""
}

// isSkipPath reports whether a path can never trigger a switch. The
// home directory itself is skipped; its subdirectories are not.
func isSkipPath(path, home string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+string(os.PathSeparator)) {
			return true
		}
	}
	return path == home
}

// isDerivativeFolder reports whether newRoot looks like a build or
// output folder derived from the active project. Matches
// "{active}-dist" style names and same-parent siblings whose name is
// prefixed by the active project's name.
func isDerivativeFolder(newRoot, activeRoot string) bool {
	if newRoot == "" || activeRoot == "" {
		return false
	}
	newName := strings.ToLower(filepath.Base(newRoot))
	activeName := strings.ToLower(filepath.Base(activeRoot))

	for _, suffix := range derivativeSuffixes {
		if newName == activeName+suffix {
			return true
		}
		if strings.HasPrefix(newName, activeName) && strings.Contains(newName, suffix) {
			return true
		}
	}

	if filepath.Dir(newRoot) == filepath.Dir(activeRoot) {
		if newName != activeName && strings.HasPrefix(newName, activeName) {
			return true
		}
	}
	return false
}

// isFreshRelatedFolder reports whether newRoot was touched within
// maxAge and its name textually overlaps the active project's name.
// Both must hold: a fresh folder with an unrelated name is a
// legitimate new project.
func isFreshRelatedFolder(newRoot, activeRoot string, maxAge time.Duration, now time.Time) bool {
	newName := strings.ToLower(filepath.Base(newRoot))
	activeName := strings.ToLower(filepath.Base(activeRoot))
	if !strings.Contains(newName, activeName) && !strings.Contains(activeName, newName) {
		return false
	}

	info, err := os.Stat(newRoot)
	if err != nil {
		return true
	}
	return now.Sub(info.ModTime()) < maxAge
}

// potentialProjectRoot finds the directory holding path that sits
// directly under one of the well-known project locations. Empty when
// the path is not under any of them.
func potentialProjectRoot(path, home string) string {
	current := startDir(path)
	if current == "" {
		return ""
	}

	locations := make(map[string]struct{}, len(projectLocationNames))
	for _, name := range projectLocationNames {
		locations[filepath.Join(home, name)] = struct{}{}
	}

	for current != home && current != filepath.Dir(current) {
		parent := filepath.Dir(current)
		if _, ok := locations[parent]; ok {
			return current
		}
		current = parent
	}
	return ""
}

// isValidAutoCreateFolder reports whether a folder may receive an
// auto-created manifest: it must exist, sit under a project location,
// and not have a denylisted name.
func isValidAutoCreateFolder(folder, home string) bool {
	if folder == "" {
		return false
	}
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return false
	}

	underLocation := false
	for _, name := range projectLocationNames {
		loc := filepath.Join(home, name)
		if strings.HasPrefix(folder, loc+string(os.PathSeparator)) {
			underLocation = true
			break
		}
	}
	if !underLocation {
		return false
	}

	_, denied := autoCreateDenylist[strings.ToLower(filepath.Base(folder))]
	return !denied
}

// autoCreatedManifest is the minimal package.json written into a
// markerless project folder.
type autoCreatedManifest struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Recalld     autoCreatedMetadata `json:"_recalld"`
}

type autoCreatedMetadata struct {
	AutoCreated bool      `json:"auto_created"`
	CreatedAt   time.Time `json:"created_at"`
}

// autoCreateMarker writes a minimal package.json into folder so root
// discovery can find it. An existing manifest is left alone.
func autoCreateMarker(folder string, now time.Time) (string, error) {
	markerPath := filepath.Join(folder, "package.json")
	if _, err := os.Stat(markerPath); err == nil {
		return markerPath, nil
	}

	manifest := autoCreatedManifest{
		Name:        filepath.Base(folder),
		Version:     "1.0.0",
		Description: "project detected automatically",
		Recalld: autoCreatedMetadata{
			AutoCreated: true,
			CreatedAt:   now,
		},
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(markerPath, data, 0o644); err != nil {
		return "", err
	}
	return markerPath, nil
}
