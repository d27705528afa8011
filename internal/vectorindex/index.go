// Package vectorindex implements a per-project flat vector index with
// provider-versioned persistence.
//
// Layout on disk, one directory per project:
//
//	{dataDir}/projects/{project_id}.embeddings/
//	├── config.json    // provider identity (model, dimension, version)
//	├── vectors.bin    // float32 matrix, row-aligned with metadata.json
//	└── metadata.json  // documents (id, text, type, metadata, created_at)
//
// The documents slice and the vector matrix are parallel arrays; every
// mutation must keep them aligned by index.
package vectorindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/safefile"
)

const metadataFile = "metadata.json"

// Document is an indexed text with its metadata. Vectors are stored
// separately, column-aligned in the matrix.
type Document struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	DocType   string            `json:"doc_type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// SearchResult is a ranked hit from Search.
type SearchResult struct {
	Document Document
	Score    float64
	Rank     int
}

// Stats summarizes an index for diagnostics.
type Stats struct {
	ProjectID     string         `json:"project_id"`
	DocumentCount int            `json:"document_count"`
	DocTypes      map[string]int `json:"doc_types"`
	Dimension     int            `json:"dimension"`
	ModelID       string         `json:"model_id"`
	Stale         bool           `json:"stale"`
}

// Index is a per-project flat vector index.
//
// Loading is lazy: nothing is read from disk until the first operation.
// If the persisted config does not match the active provider's identity,
// the index is marked stale and treated as empty until Rebuild — stale
// vectors are never mixed with fresh ones.
type Index struct {
	projectID string
	dir       string
	provider  embeddings.Provider
	logger    *zap.Logger

	mu        sync.Mutex
	loaded    bool
	stale     bool
	vectors   [][]float32
	documents []Document
	config    *Config
}

// New creates an index handle for a project. dir is the project's
// ".embeddings" directory; nothing is created until the first write.
func New(projectID, dir string, provider embeddings.Provider, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		projectID: projectID,
		dir:       dir,
		provider:  provider,
		logger:    logger.With(zap.String("project_id", projectID)),
	}
}

// DocumentID derives the content-hash id for a (docType, text) pair.
// Identical pairs always produce the same id, which is what makes Add
// idempotent.
func DocumentID(docType, text string) string {
	sum := sha256.Sum256([]byte(docType + ":" + text))
	return hex.EncodeToString(sum[:])[:12]
}

func (ix *Index) ensureLoadedLocked() {
	if ix.loaded {
		return
	}
	ix.loaded = true
	ix.vectors = nil
	ix.documents = nil

	cfg := LoadConfig(ix.dir)
	if cfg == nil {
		return // no existing index
	}
	if cfg.NeedsRebuild(ix.provider) {
		ix.stale = true
		ix.config = cfg
		ix.logger.Warn("embedding index incompatible with active provider, treating as empty until rebuild",
			zap.String("index_model", cfg.ModelID),
			zap.String("provider_model", ix.provider.ModelID()))
		return
	}
	ix.config = cfg

	var docs []Document
	if err := safefile.ReadJSON(filepath.Join(ix.dir, metadataFile), &docs); err != nil {
		ix.logger.Warn("failed to read index metadata", zap.Error(err))
		return
	}
	vectors, err := readVectors(ix.dir, ix.provider.Dimension())
	if err != nil {
		if !os.IsNotExist(err) {
			ix.logger.Warn("failed to read index vectors", zap.Error(err))
		}
		return
	}
	if len(vectors) != len(docs) {
		ix.logger.Warn("index vectors and metadata misaligned, ignoring persisted index",
			zap.Int("vectors", len(vectors)),
			zap.Int("documents", len(docs)))
		return
	}

	ix.documents = docs
	ix.vectors = vectors
	ix.logger.Debug("embedding index loaded", zap.Int("documents", len(docs)))
}

// persistLocked writes vectors, metadata and config together.
func (ix *Index) persistLocked() error {
	if err := os.MkdirAll(ix.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	if err := writeVectors(ix.dir, ix.vectors, ix.provider.Dimension()); err != nil {
		return err
	}
	if err := safefile.WriteJSON(filepath.Join(ix.dir, metadataFile), ix.documents); err != nil {
		return err
	}
	if ix.config == nil {
		ix.config = NewConfig(ix.provider)
	}
	ix.config.DocumentCount = len(ix.documents)
	return ix.config.Save(ix.dir)
}

// Add embeds text and inserts it under a content-hash id (or docID when
// given). Adding an existing id is a no-op returning that id. The index
// is persisted before Add returns.
func (ix *Index) Add(ctx context.Context, docType, text string, metadata map[string]string, docID string) (string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureLoadedLocked()

	// Writing through a stale index would bury its on-disk documents and
	// persist vectors under the old provider's config. Recover and
	// re-embed them first so the append lands on a consistent index.
	if ix.stale {
		if _, err := ix.rebuildLocked(ctx); err != nil {
			return "", fmt.Errorf("rebuilding stale index before add: %w", err)
		}
	}

	if docID == "" {
		docID = DocumentID(docType, text)
	}
	for _, doc := range ix.documents {
		if doc.ID == docID {
			ix.logger.Debug("document already indexed", zap.String("doc_id", docID))
			return docID, nil
		}
	}

	vec, err := ix.provider.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embedding document: %w", err)
	}

	ix.documents = append(ix.documents, Document{
		ID:        docID,
		Text:      text,
		DocType:   docType,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
	ix.vectors = append(ix.vectors, vec)

	if err := ix.persistLocked(); err != nil {
		// Roll back the in-memory append so arrays stay aligned with disk.
		ix.documents = ix.documents[:len(ix.documents)-1]
		ix.vectors = ix.vectors[:len(ix.vectors)-1]
		return "", err
	}
	return docID, nil
}

// BatchItem is one document for AddBatch.
type BatchItem struct {
	DocType  string
	Text     string
	Metadata map[string]string
}

// AddBatch inserts several documents with a single batched embed call,
// skipping ids that already exist. Returns the ids of newly added
// documents.
func (ix *Index) AddBatch(ctx context.Context, items []BatchItem) ([]string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureLoadedLocked()

	if len(items) == 0 {
		return nil, nil
	}

	if ix.stale {
		if _, err := ix.rebuildLocked(ctx); err != nil {
			return nil, fmt.Errorf("rebuilding stale index before add: %w", err)
		}
	}

	existing := make(map[string]bool, len(ix.documents))
	for _, doc := range ix.documents {
		existing[doc.ID] = true
	}

	type pending struct {
		id   string
		item BatchItem
	}
	var fresh []pending
	for _, item := range items {
		id := DocumentID(item.DocType, item.Text)
		if existing[id] {
			continue
		}
		existing[id] = true
		fresh = append(fresh, pending{id: id, item: item})
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	texts := make([]string, len(fresh))
	for i, p := range fresh {
		texts[i] = p.item.Text
	}
	vecs, err := ix.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding batch: %w", err)
	}
	if len(vecs) != len(fresh) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts",
			embeddings.ErrEmbeddingFailed, len(vecs), len(fresh))
	}

	prevDocs, prevVecs := len(ix.documents), len(ix.vectors)
	ids := make([]string, len(fresh))
	for i, p := range fresh {
		ix.documents = append(ix.documents, Document{
			ID:        p.id,
			Text:      p.item.Text,
			DocType:   p.item.DocType,
			Metadata:  p.item.Metadata,
			CreatedAt: time.Now(),
		})
		ix.vectors = append(ix.vectors, vecs[i])
		ids[i] = p.id
	}

	if err := ix.persistLocked(); err != nil {
		ix.documents = ix.documents[:prevDocs]
		ix.vectors = ix.vectors[:prevVecs]
		return nil, err
	}

	ix.logger.Debug("batch indexed", zap.Int("added", len(ids)))
	return ids, nil
}

// Search embeds the query and returns up to k documents ranked by cosine
// similarity, score-descending with insertion order breaking ties.
// Results scoring below minScore are excluded; a score exactly at
// minScore is included. An empty docType matches all types.
func (ix *Index) Search(ctx context.Context, query string, k int, docType string, minScore float64) ([]SearchResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureLoadedLocked()

	if len(ix.documents) == 0 || k <= 0 {
		return nil, nil
	}

	queryVec, err := ix.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	normalizeInPlace(queryVec)

	type scored struct {
		idx   int
		score float64
	}
	var candidates []scored
	for i, doc := range ix.documents {
		if docType != "" && doc.DocType != docType {
			continue
		}
		candidates = append(candidates, scored{
			idx:   i,
			score: cosineAgainstNormalized(ix.vectors[i], queryVec),
		})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	var results []SearchResult
	for _, c := range candidates {
		if len(results) >= k {
			break
		}
		if c.score < minScore {
			continue
		}
		results = append(results, SearchResult{
			Document: ix.documents[c.idx],
			Score:    c.score,
			Rank:     len(results) + 1,
		})
	}
	return results, nil
}

// Delete removes a document and its vector row, keeping both arrays
// aligned. Returns false when the id is unknown.
func (ix *Index) Delete(docID string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureLoadedLocked()

	idx := -1
	for i, doc := range ix.documents {
		if doc.ID == docID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	ix.documents = append(ix.documents[:idx], ix.documents[idx+1:]...)
	ix.vectors = append(ix.vectors[:idx], ix.vectors[idx+1:]...)

	if err := ix.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Rebuild re-embeds every stored document with the active provider and
// rewrites vectors and config. Used after a model or version change.
// Returns the number of documents indexed.
func (ix *Index) Rebuild(ctx context.Context) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureLoadedLocked()
	return ix.rebuildLocked(ctx)
}

func (ix *Index) rebuildLocked(ctx context.Context) (int, error) {
	// A stale index still has its documents on disk even though they are
	// hidden from search; rebuild recovers them.
	if ix.stale {
		var docs []Document
		if err := safefile.ReadJSON(filepath.Join(ix.dir, metadataFile), &docs); err == nil {
			ix.documents = docs
		}
	}

	if len(ix.documents) == 0 {
		ix.stale = false
		ix.config = NewConfig(ix.provider)
		return 0, ix.persistLocked()
	}

	texts := make([]string, len(ix.documents))
	for i, doc := range ix.documents {
		texts[i] = doc.Text
	}
	vecs, err := ix.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("re-embedding documents: %w", err)
	}

	ix.vectors = vecs
	ix.stale = false
	ix.config = NewConfig(ix.provider)
	ix.config.MarkRebuilt(len(ix.documents))

	if err := ix.persistLocked(); err != nil {
		return 0, err
	}

	ix.logger.Info("embedding index rebuilt", zap.Int("documents", len(ix.documents)))
	return len(ix.documents), nil
}

// Clear removes all documents and vectors.
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureLoadedLocked()

	ix.documents = nil
	ix.vectors = nil
	ix.stale = false
	ix.config = NewConfig(ix.provider)
	return ix.persistLocked()
}

// Stats returns index statistics for diagnostics.
func (ix *Index) Stats() Stats {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureLoadedLocked()

	docTypes := make(map[string]int)
	for _, doc := range ix.documents {
		docTypes[doc.DocType]++
	}
	return Stats{
		ProjectID:     ix.projectID,
		DocumentCount: len(ix.documents),
		DocTypes:      docTypes,
		Dimension:     ix.provider.Dimension(),
		ModelID:       ix.provider.ModelID(),
		Stale:         ix.stale,
	}
}

func normalizeInPlace(vec []float32) {
	var sq float64
	for _, v := range vec {
		sq += float64(v) * float64(v)
	}
	if sq == 0 {
		return
	}
	norm := float32(math.Sqrt(sq))
	for i := range vec {
		vec[i] /= norm
	}
}

// cosineAgainstNormalized computes cosine similarity between a raw
// corpus vector and an already-normalized query vector.
func cosineAgainstNormalized(vec, normalizedQuery []float32) float64 {
	var dot, sq float64
	for i := range vec {
		dot += float64(vec[i]) * float64(normalizedQuery[i])
		sq += float64(vec[i]) * float64(vec[i])
	}
	if sq == 0 {
		return 0
	}
	return dot / math.Sqrt(sq)
}
