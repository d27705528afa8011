package vectorindex

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/safefile"
)

// configFile names the per-index config document.
const configFile = "config.json"

// Config records which provider produced an index's vectors. Any drift
// between this and the active provider's (model, dimension, version)
// invalidates the index.
type Config struct {
	ModelID      string    `json:"model_id"`
	Dimension    int       `json:"dimension"`
	Version      string    `json:"version"`
	ProviderType string    `json:"provider_type"`
	CreatedAt    time.Time `json:"created_at"`
	LastRebuild  time.Time `json:"last_rebuild,omitzero"`
	DocumentCount int      `json:"document_count"`
}

// NewConfig captures the provider's identity triple.
func NewConfig(provider embeddings.Provider) *Config {
	return &Config{
		ModelID:      provider.ModelID(),
		Dimension:    provider.Dimension(),
		Version:      provider.Version(),
		ProviderType: providerTypeName(provider),
		CreatedAt:    time.Now(),
	}
}

// LoadConfig reads the index config, returning nil when none exists or
// the file cannot be decoded.
func LoadConfig(indexDir string) *Config {
	path := filepath.Join(indexDir, configFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	var cfg Config
	if err := safefile.ReadJSON(path, &cfg); err != nil {
		return nil
	}
	if cfg.ModelID == "" && cfg.Dimension == 0 {
		return nil
	}
	return &cfg
}

// Save persists the config into the index directory.
func (c *Config) Save(indexDir string) error {
	return safefile.WriteJSON(filepath.Join(indexDir, configFile), c)
}

// NeedsRebuild reports whether the index was built by a different
// provider identity than the one now active.
func (c *Config) NeedsRebuild(provider embeddings.Provider) bool {
	return c.ModelID != provider.ModelID() ||
		c.Dimension != provider.Dimension() ||
		c.Version != provider.Version()
}

// MarkRebuilt records a completed rebuild.
func (c *Config) MarkRebuilt(documentCount int) {
	c.LastRebuild = time.Now()
	c.DocumentCount = documentCount
}

func providerTypeName(provider embeddings.Provider) string {
	switch provider.(type) {
	case *embeddings.HashProvider:
		return "hash"
	case *embeddings.FastEmbedProvider:
		return "fastembed"
	default:
		return "unknown"
	}
}
