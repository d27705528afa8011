//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedConfig holds configuration for the FastEmbed provider.
type FastEmbedConfig struct {
	// Model is the embedding model to use.
	// Supported: BAAI/bge-small-en-v1.5 (default), BAAI/bge-base-en-v1.5,
	// sentence-transformers/all-MiniLM-L6-v2, etc.
	Model string

	// CacheDir is the directory to cache model files.
	// Defaults to ~/.cache/recalld/models.
	CacheDir string

	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int
}

// FastEmbedProvider generates embeddings with local ONNX models.
//
// The model is loaded lazily on first use and kept for the provider's
// lifetime; construction is cheap so processes that never search never
// pay the load cost.
type FastEmbedProvider struct {
	cfg        FastEmbedConfig
	modelName  string
	embedModel fastembed.EmbeddingModel
	dimension  int

	mu     sync.Mutex
	model  *fastembed.FlagEmbedding
	loaded bool
}

// modelMapping maps friendly model names to fastembed model constants.
var modelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                  fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                       fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                   fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                        fastembed.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2":  fastembed.AllMiniLML6V2,
}

// modelDimensions maps fastembed models to their embedding dimensions.
var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseENV15:  768,
	fastembed.BGEBaseEN:     768,
	fastembed.AllMiniLML6V2: 384,
}

const defaultFastEmbedModel = "BAAI/bge-small-en-v1.5"

// NewFastEmbedProvider creates a FastEmbed provider. The model itself is
// not downloaded or loaded until the first Embed call.
func NewFastEmbedProvider(cfg FastEmbedConfig) (*FastEmbedProvider, error) {
	if cfg.Model == "" {
		cfg.Model = defaultFastEmbedModel
	}
	model, ok := modelMapping[cfg.Model]
	if !ok {
		model = fastembed.EmbeddingModel(cfg.Model)
		if _, known := modelDimensions[model]; !known {
			return nil, fmt.Errorf("%w: unsupported model %q", ErrInvalidConfig, cfg.Model)
		}
	}

	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving cache dir: %w", err)
		}
		cfg.CacheDir = filepath.Join(home, ".cache", "recalld", "models")
	}
	if cfg.MaxLength == 0 {
		cfg.MaxLength = 512
	}

	return &FastEmbedProvider{
		cfg:        cfg,
		modelName:  cfg.Model,
		embedModel: model,
		dimension:  modelDimensions[model],
	}, nil
}

// ensureLoaded initializes the ONNX model on first use.
func (p *FastEmbedProvider) ensureLoaded() (*fastembed.FlagEmbedding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return p.model, nil
	}

	showProgress := false
	opts := &fastembed.InitOptions{
		Model:                p.embedModel,
		CacheDir:             p.cfg.CacheDir,
		MaxLength:            p.cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	}

	model, err := fastembed.NewFlagEmbedding(opts)
	if err != nil {
		return nil, fmt.Errorf("initializing FastEmbed: %w", err)
	}

	p.model = model
	p.loaded = true
	return model, nil
}

// ModelID returns the configured model name.
func (p *FastEmbedProvider) ModelID() string { return p.modelName }

// Dimension returns the embedding dimension for the configured model.
func (p *FastEmbedProvider) Dimension() int { return p.dimension }

// Version returns the provider version tracked in index config.
func (p *FastEmbedProvider) Version() string { return "1.0" }

// Embed generates an embedding for a single query text.
func (p *FastEmbedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	model, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}

	vec, err := model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts in one batched call.
func (p *FastEmbedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	model, err := p.ensureLoaded()
	if err != nil {
		return nil, err
	}

	vecs, err := model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vecs, nil
}

// Close releases the loaded model.
func (p *FastEmbedProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		p.model.Destroy()
		p.model = nil
		p.loaded = false
	}
	return nil
}
