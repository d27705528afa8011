// Package lexical finds previously-solved problems by sparse lexical
// similarity: TF-IDF over synonym/stem-expanded error text with cosine
// scoring. It needs no model and serves as the always-available fallback
// to embedding search.
package lexical

import (
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/normalize"
)

// Default tuning values. Both are exposed through Config rather than
// hardcoded at call sites.
const (
	DefaultSimilarityThreshold = 0.25
	DefaultNGramMin            = 1
	DefaultNGramMax            = 3
	DefaultMaxFeatures         = 5000
)

// Config tunes the matcher.
type Config struct {
	// SimilarityThreshold is the minimum cosine score for a match.
	// Scores exactly at the threshold are included.
	SimilarityThreshold float64

	// NGramMin and NGramMax bound the word n-gram range.
	NGramMin int
	NGramMax int

	// MaxFeatures caps the vocabulary size.
	MaxFeatures int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: DefaultSimilarityThreshold,
		NGramMin:            DefaultNGramMin,
		NGramMax:            DefaultNGramMax,
		MaxFeatures:         DefaultMaxFeatures,
	}
}

// Match is a successful similarity lookup.
type Match struct {
	// ID is the identifier the text was added under.
	ID int64

	// Score is the cosine similarity in [0, 1].
	Score float64

	// MatchedClean is the stored normalized text that matched.
	MatchedClean string
}

// Matcher maintains the corpus and fitted TF-IDF state.
//
// Adding a document refits the vectorizer over the full expanded corpus:
// TF-IDF vocabularies are not incrementally updatable, so every insert is
// O(corpus). This is a known scaling ceiling, acceptable at the corpus
// sizes a single developer machine accumulates.
type Matcher struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.RWMutex
	ids    []int64
	corpus []string // normalized texts, parallel to ids
	vz     *vectorizer
	matrix []sparseVec
	fitted bool
}

// NewMatcher creates a matcher. A nil logger is replaced with a nop logger.
func NewMatcher(cfg Config, logger *zap.Logger) *Matcher {
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.NGramMin == 0 {
		cfg.NGramMin = DefaultNGramMin
	}
	if cfg.NGramMax == 0 {
		cfg.NGramMax = DefaultNGramMax
	}
	if cfg.MaxFeatures == 0 {
		cfg.MaxFeatures = DefaultMaxFeatures
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{cfg: cfg, logger: logger}
}

// Add appends a normalized text to the corpus under the given id and refits
// the TF-IDF matrix.
func (m *Matcher) Add(id int64, cleanText string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ids = append(m.ids, id)
	m.corpus = append(m.corpus, cleanText)
	m.refitLocked()
}

// Load replaces the whole corpus in one pass, refitting once. Used at
// startup to hydrate from the solution store.
func (m *Matcher) Load(ids []int64, cleanTexts []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ids = append([]int64(nil), ids...)
	m.corpus = append([]string(nil), cleanTexts...)
	m.refitLocked()
}

func (m *Matcher) refitLocked() {
	expanded := make([]string, len(m.corpus))
	for i, text := range m.corpus {
		expanded[i] = Expand(text)
	}
	m.vz = newVectorizer(m.cfg.NGramMin, m.cfg.NGramMax, m.cfg.MaxFeatures)
	m.matrix = m.vz.Fit(expanded)
	m.fitted = len(m.corpus) > 0

	m.logger.Debug("lexical corpus refit",
		zap.Int("documents", len(m.corpus)))
}

// FindSimilar cleans and expands rawText, vectorizes it with the fitted
// vectorizer, and returns the best cosine match at or above the threshold.
// It returns false when the corpus is empty, the matcher is unfit, or the
// best score falls below the threshold.
func (m *Matcher) FindSimilar(rawText string) (Match, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.fitted || len(m.corpus) == 0 {
		return Match{}, false
	}

	cleanText := normalize.Clean(rawText)
	if cleanText == "" {
		return Match{}, false
	}

	query := m.vz.Transform(Expand(cleanText))

	bestIdx := -1
	bestScore := -1.0
	for i, row := range m.matrix {
		score := query.dot(row)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < m.cfg.SimilarityThreshold {
		m.logger.Debug("no lexical match above threshold",
			zap.Float64("best_score", bestScore),
			zap.Float64("threshold", m.cfg.SimilarityThreshold))
		return Match{}, false
	}

	return Match{
		ID:           m.ids[bestIdx],
		Score:        bestScore,
		MatchedClean: m.corpus[bestIdx],
	}, true
}

// Size returns the number of documents in the corpus.
func (m *Matcher) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.corpus)
}
