// Package solutions stores error/fix pairs and retrieves them through a
// tiered hybrid lookup. A personal scope is always searched first; a
// team scope, when configured, is searched only on a personal miss.
// Within a scope the tiers are semantic, lexical, exact, then partial
// substring match, and a failure in one tier falls through to the next.
package solutions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/lexical"
	"github.com/fyrsmithlabs/recalld/internal/normalize"
	"github.com/fyrsmithlabs/recalld/internal/vectorindex"
)

const instrumentationName = "github.com/fyrsmithlabs/recalld/internal/solutions"

// docTypeError tags error documents in the embedding index.
const docTypeError = "error"

// metadataSolutionID carries the store row id on indexed documents.
const metadataSolutionID = "solution_id"

// ErrScopeUnavailable is returned when an operation targets a scope
// that has no configured store.
var ErrScopeUnavailable = errors.New("scope not configured")

// LexicalMatcher is the slice of the TF-IDF matcher the service uses.
type LexicalMatcher interface {
	Add(id int64, cleanText string)
	Load(ids []int64, cleanTexts []string)
	FindSimilar(rawText string) (lexical.Match, bool)
}

// SemanticIndex is the slice of the embedding index the service uses.
type SemanticIndex interface {
	Add(ctx context.Context, docType, text string, metadata map[string]string, docID string) (string, error)
	Search(ctx context.Context, query string, k int, docType string, minScore float64) ([]vectorindex.SearchResult, error)
	Delete(docID string) (bool, error)
}

// Engine bundles one scope's store and matchers. Matcher and Index may
// be nil; the corresponding tiers are then skipped.
type Engine struct {
	Store   *Store
	Matcher LexicalMatcher
	Index   SemanticIndex
}

// Service provides solution management operations.
type Service interface {
	// Save stores an error/fix pair in the given scope and registers it
	// with that scope's matchers. Returns the new solution id, or
	// ErrScopeUnavailable when the scope has no store.
	Save(ctx context.Context, scope Scope, errorMessage, solutionText string) (int64, error)

	// FindHybrid looks up a solution for an error message. Returns nil
	// when no tier in any scope matches.
	FindHybrid(ctx context.Context, errorMessage string) (*FindResult, error)

	// IncrementSuccess bumps a solution's success counter. Failures are
	// logged, never propagated.
	IncrementSuccess(ctx context.Context, scope Scope, id int64)

	// List returns stored solutions for a scope, newest first.
	List(ctx context.Context, scope Scope, limit int) ([]Solution, error)

	// Delete removes a solution and its index entries.
	Delete(ctx context.Context, scope Scope, id int64) (bool, error)

	// Hydrate loads persisted solutions into the lexical matchers.
	// Call once after construction.
	Hydrate(ctx context.Context) error

	// Close closes the personal scope store. A team engine may be shared
	// between services, so its store is closed by whoever built it.
	Close() error
}

// Config configures the solutions service.
type Config struct {
	// SemanticMinScore is the minimum cosine similarity for a semantic
	// tier hit (default: 0.35).
	SemanticMinScore float64

	// SearchLimit caps semantic search candidates (default: 3).
	SearchLimit int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() *Config {
	return &Config{
		SemanticMinScore: 0.35,
		SearchLimit:      3,
	}
}

type service struct {
	config   *Config
	personal *Engine
	team     *Engine
	logger   *zap.Logger

	tracer         trace.Tracer
	meter          metric.Meter
	saveCounter    metric.Int64Counter
	findCounter    metric.Int64Counter
	successCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewService creates a solutions service. The personal engine is
// required; team may be nil.
func NewService(cfg *Config, personal *Engine, team *Engine, logger *zap.Logger) (Service, error) {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if personal == nil || personal.Store == nil {
		return nil, errors.New("personal scope store is required")
	}
	if team != nil && team.Store == nil {
		return nil, errors.New("team scope requires a store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		config:   cfg,
		personal: personal,
		team:     team,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *service) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"recalld.solutions.saves_total",
		metric.WithDescription("Total number of solutions saved"),
		metric.WithUnit("{solution}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.findCounter, err = s.meter.Int64Counter(
		"recalld.solutions.finds_total",
		metric.WithDescription("Total number of hybrid lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		s.logger.Warn("failed to create find counter", zap.Error(err))
	}

	s.successCounter, err = s.meter.Int64Counter(
		"recalld.solutions.successes_total",
		metric.WithDescription("Total number of success confirmations"),
		metric.WithUnit("{confirmation}"),
	)
	if err != nil {
		s.logger.Warn("failed to create success counter", zap.Error(err))
	}
}

func (s *service) engine(scope Scope) *Engine {
	if scope == ScopeTeam {
		return s.team
	}
	return s.personal
}

func (s *service) Hydrate(ctx context.Context) error {
	for _, scope := range []Scope{ScopePersonal, ScopeTeam} {
		eng := s.engine(scope)
		if eng == nil || eng.Matcher == nil {
			continue
		}
		all, err := eng.Store.All(ctx)
		if err != nil {
			return err
		}
		ids := make([]int64, len(all))
		cleans := make([]string, len(all))
		for i, sol := range all {
			ids[i] = sol.ID
			cleans[i] = sol.ErrorClean
		}
		eng.Matcher.Load(ids, cleans)
		s.logger.Debug("matcher hydrated",
			zap.String("scope", string(scope)),
			zap.Int("solutions", len(all)))
	}
	return nil
}

func (s *service) Save(ctx context.Context, scope Scope, errorMessage, solutionText string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "solutions.save")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	eng := s.engine(scope)
	if eng == nil {
		return 0, fmt.Errorf("%w: %s", ErrScopeUnavailable, scope)
	}

	clean := normalize.Clean(errorMessage)
	id, err := eng.Store.Insert(ctx, errorMessage, solutionText, clean)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	if eng.Matcher != nil {
		eng.Matcher.Add(id, clean)
	}
	if eng.Index != nil {
		meta := map[string]string{metadataSolutionID: strconv.FormatInt(id, 10)}
		if _, err := eng.Index.Add(ctx, docTypeError, clean, meta, ""); err != nil {
			// Lookup degrades to the lexical tier; the row is intact.
			s.logger.Warn("semantic index add failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1)
	}
	s.logger.Info("solution saved",
		zap.String("scope", string(scope)), zap.Int64("id", id))
	return id, nil
}

func (s *service) FindHybrid(ctx context.Context, errorMessage string) (*FindResult, error) {
	ctx, span := s.tracer.Start(ctx, "solutions.find_hybrid")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	clean := normalize.Clean(errorMessage)

	scopes := []Scope{ScopePersonal}
	if s.team != nil {
		scopes = append(scopes, ScopeTeam)
	}

	for _, scope := range scopes {
		result := s.findInScope(ctx, s.engine(scope), scope, errorMessage, clean)
		if result != nil {
			span.SetAttributes(
				attribute.String("match_type", string(result.MatchType)),
				attribute.String("source", string(result.Source)),
			)
			if s.findCounter != nil {
				s.findCounter.Add(ctx, 1, metric.WithAttributes(
					attribute.String("match_type", string(result.MatchType)),
					attribute.String("source", string(result.Source)),
				))
			}
			return result, nil
		}
	}

	if s.findCounter != nil {
		s.findCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("match_type", "none"),
		))
	}
	return nil, nil
}

// findInScope runs the tiers for one scope. Every tier failure is
// logged and falls through to the next tier.
func (s *service) findInScope(ctx context.Context, eng *Engine, scope Scope, raw, clean string) *FindResult {
	if eng == nil {
		return nil
	}

	if eng.Index != nil {
		results, err := eng.Index.Search(ctx, clean, s.config.SearchLimit, docTypeError, s.config.SemanticMinScore)
		if err != nil {
			s.logger.Warn("semantic tier failed",
				zap.String("scope", string(scope)), zap.Error(err))
		} else if len(results) > 0 {
			if r := s.resolveSemantic(ctx, eng, scope, results); r != nil {
				return r
			}
		}
	}

	if eng.Matcher != nil {
		if match, ok := eng.Matcher.FindSimilar(raw); ok {
			sol, err := eng.Store.Get(ctx, match.ID)
			if err != nil {
				s.logger.Warn("lexical match references missing solution",
					zap.Int64("id", match.ID), zap.Error(err))
			} else {
				return s.result(sol, match.Score, MatchLexical, scope)
			}
		}
	}

	if sol, ok, err := eng.Store.FindExact(ctx, clean); err != nil {
		s.logger.Warn("exact tier failed",
			zap.String("scope", string(scope)), zap.Error(err))
	} else if ok {
		return s.result(sol, 1.0, MatchExact, scope)
	}

	if sol, ok, err := eng.Store.FindPartial(ctx, clean); err != nil {
		s.logger.Warn("partial tier failed",
			zap.String("scope", string(scope)), zap.Error(err))
	} else if ok {
		return s.result(sol, 0.5, MatchPartial, scope)
	}

	return nil
}

// resolveSemantic maps index hits back to store rows, skipping stale
// documents whose row has since been deleted.
func (s *service) resolveSemantic(ctx context.Context, eng *Engine, scope Scope, results []vectorindex.SearchResult) *FindResult {
	for _, r := range results {
		idStr, ok := r.Document.Metadata[metadataSolutionID]
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		sol, err := eng.Store.Get(ctx, id)
		if err != nil {
			s.logger.Debug("semantic hit references missing solution",
				zap.Int64("id", id), zap.Error(err))
			continue
		}
		return s.result(sol, r.Score, MatchSemantic, scope)
	}
	return nil
}

func (s *service) result(sol Solution, score float64, matchType MatchType, scope Scope) *FindResult {
	return &FindResult{
		SolutionID:   sol.ID,
		MatchedError: sol.ErrorMessage,
		Solution:     sol.SolutionText,
		Score:        score,
		MatchType:    matchType,
		SuccessCount: sol.SuccessCount,
		Source:       scope,
	}
}

func (s *service) IncrementSuccess(ctx context.Context, scope Scope, id int64) {
	eng := s.engine(scope)
	if eng == nil {
		s.logger.Warn("success confirmation for unconfigured scope",
			zap.String("scope", string(scope)), zap.Int64("id", id))
		return
	}
	if err := eng.Store.IncrementSuccess(ctx, id); err != nil {
		s.logger.Warn("failed to increment success count",
			zap.Int64("id", id), zap.Error(err))
		return
	}
	if s.successCounter != nil {
		s.successCounter.Add(ctx, 1)
	}
}

func (s *service) List(ctx context.Context, scope Scope, limit int) ([]Solution, error) {
	eng := s.engine(scope)
	if eng == nil {
		return nil, nil
	}
	return eng.Store.List(ctx, limit)
}

func (s *service) Delete(ctx context.Context, scope Scope, id int64) (bool, error) {
	eng := s.engine(scope)
	if eng == nil {
		return false, nil
	}
	sol, err := eng.Store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	deleted, err := eng.Store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if eng.Index != nil {
		docID := vectorindex.DocumentID(docTypeError, sol.ErrorClean)
		if _, derr := eng.Index.Delete(docID); derr != nil {
			s.logger.Warn("failed to remove index document",
				zap.String("doc_id", docID), zap.Error(derr))
		}
	}
	return deleted, nil
}

func (s *service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("service is closed")
	}
	return nil
}

func (s *service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.personal.Store.Close()
}
