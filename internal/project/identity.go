// Package project resolves stable project identities from filesystem
// paths and guards cross-project access.
//
// Identity derivation is hybrid, in priority order:
//
//  1. git remote — id from the normalized remote URL; the same repository
//     yields the same id on every machine and for every collaborator.
//  2. git local — a repository without remotes; id from the repo root
//     path, stable on one machine only.
//  3. uuid — no repository at all; id from a UUID persisted in a marker
//     file at the project root. This is the only strategy that writes to
//     the filesystem during resolution.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
)

// Strategy names how a project id was derived.
type Strategy string

const (
	// StrategyGitRemote derives the id from the normalized remote URL.
	StrategyGitRemote Strategy = "git_remote"
	// StrategyGitLocal derives the id from the repository root path.
	StrategyGitLocal Strategy = "git_local"
	// StrategyUUID derives the id from a persisted project UUID.
	StrategyUUID Strategy = "uuid"
)

// Common errors.
var (
	// ErrProjectMismatch is returned by Validate when a working directory
	// falls outside the project root. Callers must treat it as a hard
	// stop: it guards against cross-project data leakage.
	ErrProjectMismatch = errors.New("project mismatch: cwd is not within project root")

	// ErrEmptyPath indicates an empty path argument.
	ErrEmptyPath = errors.New("path cannot be empty")
)

// Identity is a fully resolved project identity. Once resolved for a
// path it is never mutated; if the path's git state changes, a later
// resolution produces a new Identity.
type Identity struct {
	// ProjectID is the stable identifier, "{name}_{hash12}".
	ProjectID string `json:"project_id"`

	// Strategy records which derivation produced the id.
	Strategy Strategy `json:"strategy"`

	// SourceValue is the literal input to the hash (remote URL, repo
	// root path, or UUID), retained for diagnostics.
	SourceValue string `json:"source_value"`

	// ProjectName is the human-readable name (repo or folder name).
	ProjectName string `json:"project_name"`
}

// shortHash hashes a source value into the 12-hex-digit id suffix.
func shortHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:12]
}

// Validate checks that cwd is equal to or a strict descendant of
// projectRoot, comparing path components rather than string prefixes so
// that /proj does not match /proj-test. Returns ErrProjectMismatch
// otherwise.
func Validate(cwd, projectRoot string) error {
	if cwd == "" || projectRoot == "" {
		return ErrEmptyPath
	}

	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return err
	}
	rootAbs, err := filepath.Abs(projectRoot)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(rootAbs, cwdAbs)
	if err != nil {
		return ErrProjectMismatch
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return ErrProjectMismatch
	}
	return nil
}

// Within reports whether path is equal to or a strict descendant of
// root, with the same component-wise semantics as Validate.
func Within(path, root string) bool {
	return Validate(path, root) == nil
}
