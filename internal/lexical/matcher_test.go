package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStem(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"loading", "load"},
		{"failed", "fail"},
		{"matches", "match"},
		{"errors", "error"},
		{"null", "null"},  // too short, unchanged
		{"read", "read"},  // too short, unchanged
		{"readable", "read"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stem(tt.word), "Stem(%q)", tt.word)
	}
}

func TestExpand_AddsSynonymsAndStems(t *testing.T) {
	out := Expand("undefined property")
	assert.Contains(t, out, "undefined")
	assert.Contains(t, out, "null")      // synonym of undefined
	assert.Contains(t, out, "attribute") // synonym of property
}

func TestMatcher_EmptyCorpus(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	_, ok := m.FindSimilar("TypeError: Cannot read property 'id' of undefined")
	assert.False(t, ok)
}

func TestMatcher_NearDuplicatePhrasing(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	m.Add(1, "TypeError: Cannot read property 'id' of undefined at line X")
	m.Add(2, "connection refused dialing database on port 5432")

	match, ok := m.FindSimilar("Cannot read property 'name' of undefined, line 17")
	require.True(t, ok)
	assert.Equal(t, int64(1), match.ID)
	assert.GreaterOrEqual(t, match.Score, DefaultSimilarityThreshold)
	assert.Contains(t, match.MatchedClean, "Cannot read property")
}

func TestMatcher_DisjointVocabularyBelowThreshold(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	m.Add(1, "TypeError: Cannot read property 'id' of undefined")

	_, ok := m.FindSimilar("kubernetes ingress certificate rotation stalled")
	assert.False(t, ok)
}

func TestMatcher_ThresholdIsConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.999
	m := NewMatcher(cfg, nil)
	m.Add(1, "disk quota exceeded while writing snapshot")

	// Even a close paraphrase should fail a near-exact threshold.
	_, ok := m.FindSimilar("disk quota exceeded writing snapshots")
	assert.False(t, ok)

	// The identical text still scores 1.0.
	match, ok := m.FindSimilar("disk quota exceeded while writing snapshot")
	require.True(t, ok)
	assert.InDelta(t, 1.0, match.Score, 1e-9)
}

func TestMatcher_LoadReplacesCorpus(t *testing.T) {
	m := NewMatcher(DefaultConfig(), nil)
	m.Add(99, "stale entry")

	m.Load([]int64{1, 2}, []string{
		"index out of range in slice append",
		"nil pointer dereference in handler",
	})
	assert.Equal(t, 2, m.Size())

	match, ok := m.FindSimilar("index out of range appending to slice")
	require.True(t, ok)
	assert.Equal(t, int64(1), match.ID)
}
