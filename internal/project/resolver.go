package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/google/uuid"
	giturls "github.com/whilp/git-urls"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/safefile"
)

// MarkerDirName is the project-local directory holding the persisted
// UUID for projects without version control.
const MarkerDirName = ".recalld"

// markerFileName is the JSON file inside MarkerDirName.
const markerFileName = "project.json"

// markerFile is the persisted UUID record.
type markerFile struct {
	ProjectUUID string    `json:"project_uuid"`
	ProjectName string    `json:"project_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Resolver resolves project identities, caching by absolute path so
// repeated resolutions of the same directory avoid git inspection.
type Resolver struct {
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]Identity
}

// NewResolver creates a resolver. A nil logger is replaced with a nop
// logger.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger: logger,
		cache:  make(map[string]Identity),
	}
}

// Resolve derives the identity for a project path using the hybrid
// strategy. Results are cached per absolute path for the resolver's
// lifetime; ClearCache drops them.
func (r *Resolver) Resolve(path string) (Identity, error) {
	if path == "" {
		return Identity{}, ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Identity{}, fmt.Errorf("resolving path: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[abs]; ok {
		return cached, nil
	}

	identity := r.resolveUncached(abs)
	r.cache[abs] = identity
	r.logger.Debug("project identity resolved",
		zap.String("project_id", identity.ProjectID),
		zap.String("strategy", string(identity.Strategy)))
	return identity, nil
}

// ResolveID is a convenience wrapper returning only the project id.
func (r *Resolver) ResolveID(path string) (string, error) {
	identity, err := r.Resolve(path)
	if err != nil {
		return "", err
	}
	return identity.ProjectID, nil
}

// ClearCache drops all cached resolutions.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]Identity)
}

func (r *Resolver) resolveUncached(abs string) Identity {
	folderName := filepath.Base(abs)

	remoteURL, repoRoot := r.gitInfo(abs)

	if remoteURL != "" {
		repoName := remoteURL
		if i := strings.LastIndex(strings.TrimRight(remoteURL, "/"), "/"); i >= 0 {
			repoName = strings.TrimRight(remoteURL, "/")[i+1:]
		}
		return Identity{
			ProjectID:   repoName + "_" + shortHash(remoteURL),
			Strategy:    StrategyGitRemote,
			SourceValue: remoteURL,
			ProjectName: repoName,
		}
	}

	if repoRoot != "" {
		return Identity{
			ProjectID:   folderName + "_" + shortHash(repoRoot),
			Strategy:    StrategyGitLocal,
			SourceValue: repoRoot,
			ProjectName: folderName,
		}
	}

	projectUUID := r.readOrCreateUUID(abs, folderName)
	return Identity{
		ProjectID:   folderName + "_" + shortHash(projectUUID),
		Strategy:    StrategyUUID,
		SourceValue: projectUUID,
		ProjectName: folderName,
	}
}

// gitInfo returns the normalized primary remote URL and the repository
// root for a path, either of which may be empty. It works from any
// subdirectory of the repository.
func (r *Resolver) gitInfo(path string) (remoteURL, repoRoot string) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return "", ""
	}

	if wt, err := repo.Worktree(); err == nil {
		repoRoot = wt.Filesystem.Root()
	}

	// Prefer origin, fall back to the first configured remote.
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		remotes, listErr := repo.Remotes()
		if listErr != nil || len(remotes) == 0 {
			return "", repoRoot
		}
		remote = remotes[0]
	}
	urls := remote.Config().URLs
	if len(urls) == 0 || urls[0] == "" {
		return "", repoRoot
	}
	return NormalizeRemoteURL(urls[0]), repoRoot
}

// NormalizeRemoteURL converts any git remote URL form to a canonical
// "host/org/repo" string:
//
//	git@github.com:user/repo.git  -> github.com/user/repo
//	https://github.com/user/repo  -> github.com/user/repo
//	ssh://git@github.com/user/repo.git -> github.com/user/repo
func NormalizeRemoteURL(raw string) string {
	raw = strings.TrimSpace(raw)

	if u, err := giturls.Parse(raw); err == nil && u.Host != "" {
		host := u.Hostname()
		if host == "" {
			host = u.Host
		}
		path := strings.Trim(u.Path, "/")
		path = strings.TrimSuffix(path, ".git")
		if path != "" {
			return host + "/" + path
		}
	}

	// Fallback for forms the parser rejects.
	raw = strings.TrimSuffix(raw, ".git")
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	if strings.HasPrefix(raw, "git@") {
		raw = strings.Replace(raw[len("git@"):], ":", "/", 1)
	}
	return raw
}

// readOrCreateUUID loads the persisted project UUID, creating the marker
// file when absent. This is the one place resolution writes to disk.
func (r *Resolver) readOrCreateUUID(projectRoot, folderName string) string {
	markerPath := filepath.Join(projectRoot, MarkerDirName, markerFileName)

	var marker markerFile
	if err := safefile.ReadJSON(markerPath, &marker); err == nil && marker.ProjectUUID != "" {
		return marker.ProjectUUID
	}

	marker = markerFile{
		ProjectUUID: uuid.New().String(),
		ProjectName: folderName,
		CreatedAt:   time.Now(),
	}
	if err := os.MkdirAll(filepath.Dir(markerPath), 0o755); err != nil {
		r.logger.Warn("failed to create project marker directory", zap.Error(err))
		return marker.ProjectUUID
	}
	if err := safefile.WriteJSON(markerPath, marker); err != nil {
		r.logger.Warn("failed to persist project uuid", zap.Error(err))
	}
	return marker.ProjectUUID
}
