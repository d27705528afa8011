// Package embeddings provides vector-embedding generation behind a
// provider-agnostic interface. Callers never depend on which model backs
// the vectors; the (ModelID, Dimension, Version) triple is what index
// compatibility checks key on.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Sentinel errors.
var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmptyInput indicates empty text input.
	ErrEmptyInput = errors.New("empty input text")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Provider generates vector embeddings from text.
//
// Implementations must be safe for concurrent use. Model loading may be
// lazy: the first Embed call is allowed to block while the model loads,
// and subsequent calls must reuse the loaded model.
type Provider interface {
	// ModelID uniquely identifies the backing model, e.g.
	// "BAAI/bge-small-en-v1.5". Used for index invalidation.
	ModelID() string

	// Dimension is the length of produced vectors.
	Dimension() int

	// Version is the provider version string tracked in index config.
	Version() string

	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	// Provider is "fastembed", "hash", or "" for auto-probe.
	Provider string `koanf:"provider"`

	// Model is the embedding model name (fastembed only).
	Model string `koanf:"model"`

	// CacheDir is the model cache directory (fastembed only).
	CacheDir string `koanf:"cache_dir"`

	// Dimension overrides the vector size for the hash provider.
	Dimension int `koanf:"dimension"`
}

// NewProvider creates a provider from config.
//
// With an empty Provider field it probes implementations in priority
// order: fastembed first, then the deterministic hash provider. The hash
// provider always succeeds, so auto-probing never fails; a process with
// no usable ONNX runtime still gets stable (if semantically weak)
// vectors instead of no search at all.
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "fastembed":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "hash":
		return NewHashProvider(cfg.Dimension), nil
	case "":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
		if err == nil {
			logger.Info("embeddings provider selected",
				zap.String("provider", "fastembed"),
				zap.String("model", p.ModelID()))
			return p, nil
		}
		logger.Warn("fastembed unavailable, falling back to hash provider",
			zap.Error(err))
		return NewHashProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
