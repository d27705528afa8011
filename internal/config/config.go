// Package config provides configuration loading for recalld.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
)

// Config is the full daemon configuration.
type Config struct {
	Data       DataConfig                `koanf:"data"`
	Lexical    LexicalConfig             `koanf:"lexical"`
	Embeddings embeddings.ProviderConfig `koanf:"embeddings"`
	Semantic   SemanticConfig            `koanf:"semantic"`
	Boundary   BoundaryConfig            `koanf:"boundary"`
	Team       TeamConfig                `koanf:"team"`
	Logging    LoggingConfig             `koanf:"logging"`
}

// DataConfig locates daemon state on disk.
type DataConfig struct {
	// Dir holds per-project memory, active_project.json and
	// boundary_state.json. Default: ~/.local/share/recalld.
	Dir string `koanf:"dir"`

	// LockTimeout bounds advisory lock acquisition on state files.
	LockTimeout Duration `koanf:"lock_timeout"`
}

// LexicalConfig tunes the TF-IDF matcher.
type LexicalConfig struct {
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	NGramMin            int     `koanf:"ngram_min"`
	NGramMax            int     `koanf:"ngram_max"`
	MaxFeatures         int     `koanf:"max_features"`
}

// SemanticConfig tunes embedding-index lookup in the solutions service.
type SemanticConfig struct {
	MinScore    float64 `koanf:"min_score"`
	SearchLimit int     `koanf:"search_limit"`
}

// BoundaryConfig tunes the boundary monitor.
type BoundaryConfig struct {
	Cooldown       Duration `koanf:"cooldown"`
	FreshFolderAge Duration `koanf:"fresh_folder_age"`
	ManualWindow   Duration `koanf:"manual_window"`

	// DisableAutoCreate turns off marker auto-creation in markerless
	// candidate folders.
	DisableAutoCreate bool `koanf:"disable_auto_create"`
}

// TeamConfig enables the shared team scope when a database path is
// set.
type TeamConfig struct {
	DatabasePath string `koanf:"database_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Data.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Data.Dir = filepath.Join(home, ".local", "share", "recalld")
		}
	}
	if cfg.Data.LockTimeout == 0 {
		cfg.Data.LockTimeout = Duration(10 * time.Second)
	}
	if cfg.Lexical.SimilarityThreshold == 0 {
		cfg.Lexical.SimilarityThreshold = 0.25
	}
	if cfg.Lexical.NGramMin == 0 {
		cfg.Lexical.NGramMin = 1
	}
	if cfg.Lexical.NGramMax == 0 {
		cfg.Lexical.NGramMax = 3
	}
	if cfg.Lexical.MaxFeatures == 0 {
		cfg.Lexical.MaxFeatures = 5000
	}
	if cfg.Semantic.MinScore == 0 {
		cfg.Semantic.MinScore = 0.35
	}
	if cfg.Semantic.SearchLimit == 0 {
		cfg.Semantic.SearchLimit = 3
	}
	if cfg.Boundary.Cooldown == 0 {
		cfg.Boundary.Cooldown = Duration(5 * time.Second)
	}
	if cfg.Boundary.FreshFolderAge == 0 {
		cfg.Boundary.FreshFolderAge = Duration(2 * time.Minute)
	}
	if cfg.Boundary.ManualWindow == 0 {
		cfg.Boundary.ManualWindow = Duration(10 * time.Minute)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if c.Lexical.SimilarityThreshold < 0 || c.Lexical.SimilarityThreshold > 1 {
		return fmt.Errorf("lexical.similarity_threshold must be in [0, 1], got %v", c.Lexical.SimilarityThreshold)
	}
	if c.Lexical.NGramMin < 1 || c.Lexical.NGramMax < c.Lexical.NGramMin {
		return fmt.Errorf("invalid lexical ngram range [%d, %d]", c.Lexical.NGramMin, c.Lexical.NGramMax)
	}
	if c.Lexical.MaxFeatures < 1 {
		return fmt.Errorf("lexical.max_features must be positive, got %d", c.Lexical.MaxFeatures)
	}
	if c.Semantic.MinScore < 0 || c.Semantic.MinScore > 1 {
		return fmt.Errorf("semantic.min_score must be in [0, 1], got %v", c.Semantic.MinScore)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
