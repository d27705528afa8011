// Package registry manages per-project memory engines.
//
// Each project id owns an isolated engine: a solutions database, a
// TF-IDF matcher and an embedding index, all living under the data
// directory:
//
//	{data}/projects/{id}/
//	├── project.json          ← project info record
//	├── solutions.db          ← personal solutions store
//	└── {id}.embeddings/      ← embedding index
//	    ├── config.json
//	    ├── vectors.bin
//	    └── metadata.json
//
// Engines are constructed lazily on first use and cached for the
// registry's lifetime. A shared team scope, when configured, is built
// once and attached to every engine's solutions service.
package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/lexical"
	"github.com/fyrsmithlabs/recalld/internal/safefile"
	"github.com/fyrsmithlabs/recalld/internal/solutions"
	"github.com/fyrsmithlabs/recalld/internal/vectorindex"
)

// ErrEmptyProjectID rejects operations without a project id.
var ErrEmptyProjectID = errors.New("project id is required")

// embeddingsSuffix names the per-project index directory.
const embeddingsSuffix = ".embeddings"

// ProjectInfo is the persisted record describing a registered project.
type ProjectInfo struct {
	ProjectID   string    `json:"project_id"`
	DisplayName string    `json:"display_name"`
	WorkingDir  string    `json:"working_dir"`
	CreatedAt   time.Time `json:"created_at"`
}

// Engine is one project's memory: store, matchers and index.
type Engine struct {
	ProjectID string
	Dir       string
	Solutions solutions.Service
	Index     *vectorindex.Index
	Matcher   *lexical.Matcher
}

// Registry creates and caches engines per project id.
type Registry struct {
	cfg      *config.Config
	provider embeddings.Provider
	logger   *zap.Logger

	mu      sync.Mutex
	engines map[string]*Engine
	team    *solutions.Engine
}

// New creates a registry. provider backs every project's embedding
// index; logger may be nil.
func New(cfg *config.Config, provider embeddings.Provider, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:      cfg,
		provider: provider,
		logger:   logger,
		engines:  make(map[string]*Engine),
	}
}

func (r *Registry) projectDir(projectID string) string {
	return filepath.Join(r.cfg.Data.Dir, "projects", projectID)
}

func (r *Registry) infoPath(projectID string) string {
	return filepath.Join(r.projectDir(projectID), "project.json")
}

// Engine returns the engine for a project, constructing and hydrating
// it on first use.
func (r *Registry) Engine(ctx context.Context, projectID string) (*Engine, error) {
	if projectID == "" {
		return nil, ErrEmptyProjectID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if eng, ok := r.engines[projectID]; ok {
		return eng, nil
	}

	eng, err := r.buildEngine(ctx, projectID)
	if err != nil {
		return nil, err
	}
	r.engines[projectID] = eng
	return eng, nil
}

func (r *Registry) buildEngine(ctx context.Context, projectID string) (*Engine, error) {
	dir := r.projectDir(projectID)

	store, err := solutions.OpenStore(filepath.Join(dir, "solutions.db"), r.logger)
	if err != nil {
		return nil, fmt.Errorf("opening solutions store for %s: %w", projectID, err)
	}

	matcher := lexical.NewMatcher(lexical.Config{
		SimilarityThreshold: r.cfg.Lexical.SimilarityThreshold,
		NGramMin:            r.cfg.Lexical.NGramMin,
		NGramMax:            r.cfg.Lexical.NGramMax,
		MaxFeatures:         r.cfg.Lexical.MaxFeatures,
	}, r.logger)

	index := vectorindex.New(projectID,
		filepath.Join(dir, projectID+embeddingsSuffix),
		r.provider, r.logger)

	team, err := r.teamEngineLocked()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc, err := solutions.NewService(&solutions.Config{
		SemanticMinScore: r.cfg.Semantic.MinScore,
		SearchLimit:      r.cfg.Semantic.SearchLimit,
	}, &solutions.Engine{
		Store:   store,
		Matcher: matcher,
		Index:   index,
	}, team, r.logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := svc.Hydrate(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("hydrating matchers for %s: %w", projectID, err)
	}

	r.logger.Info("project engine ready", zap.String("project_id", projectID))
	return &Engine{
		ProjectID: projectID,
		Dir:       dir,
		Solutions: svc,
		Index:     index,
		Matcher:   matcher,
	}, nil
}

// teamEngineLocked builds the shared team scope once. Returns nil when
// no team database is configured.
func (r *Registry) teamEngineLocked() (*solutions.Engine, error) {
	if r.cfg.Team.DatabasePath == "" {
		return nil, nil
	}
	if r.team != nil {
		return r.team, nil
	}

	store, err := solutions.OpenStore(r.cfg.Team.DatabasePath, r.logger)
	if err != nil {
		return nil, fmt.Errorf("opening team solutions store: %w", err)
	}
	r.team = &solutions.Engine{
		Store:   store,
		Matcher: lexical.NewMatcher(lexical.DefaultConfig(), r.logger),
	}
	return r.team, nil
}

// EnsureProject creates the project's memory on disk when absent. It
// satisfies the boundary monitor's provisioning hook.
func (r *Registry) EnsureProject(projectID, workingDir string) error {
	if projectID == "" {
		return ErrEmptyProjectID
	}

	infoPath := r.infoPath(projectID)
	var existing ProjectInfo
	if err := safefile.ReadJSON(infoPath, &existing); err == nil && existing.ProjectID != "" {
		return nil
	}

	info := ProjectInfo{
		ProjectID:   projectID,
		DisplayName: filepath.Base(workingDir),
		WorkingDir:  workingDir,
		CreatedAt:   time.Now(),
	}
	if err := safefile.WriteJSON(infoPath, info); err != nil {
		return fmt.Errorf("creating project memory for %s: %w", projectID, err)
	}
	r.logger.Info("project memory created",
		zap.String("project_id", projectID),
		zap.String("working_dir", workingDir))
	return nil
}

// ProjectInfo returns the persisted record for a project id, or false
// when the project has no memory yet.
func (r *Registry) ProjectInfo(projectID string) (ProjectInfo, bool) {
	var info ProjectInfo
	if err := safefile.ReadJSON(r.infoPath(projectID), &info); err != nil || info.ProjectID == "" {
		return ProjectInfo{}, false
	}
	return info, true
}

// Close closes every cached engine and the shared team store. The team
// store belongs to the registry, not to any single engine, so closing
// one engine never takes the team scope away from the others.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for id, eng := range r.engines {
		if err := eng.Solutions.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing engine %s: %w", id, err)
		}
	}
	if r.team != nil {
		if err := r.team.Store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing team store: %w", err)
		}
	}
	r.engines = make(map[string]*Engine)
	r.team = nil
	return firstErr
}
