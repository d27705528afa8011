package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimension is the vector size the hash provider produces
// unless overridden.
const DefaultHashDimension = 384

var hashTokenRe = regexp.MustCompile(`\w+`)

// HashProvider produces deterministic pseudo-embeddings from token
// hashes. It has no notion of semantics beyond shared vocabulary, but it
// is stable across processes and machines, needs no model download, and
// makes index and search behavior fully testable.
//
// Each token is hashed into a handful of bucket/weight pairs (a feature-
// hashing projection); the resulting vector is L2-normalized so cosine
// scores stay in [0, 1] for non-negative overlaps.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a deterministic hash provider. A non-positive
// dimension selects DefaultHashDimension.
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashProvider{dimension: dimension}
}

// ModelID identifies the hashing scheme, not a real model.
func (p *HashProvider) ModelID() string {
	return fmt.Sprintf("recalld/hash-v1-%d", p.dimension)
}

// Dimension returns the configured vector size.
func (p *HashProvider) Dimension() int { return p.dimension }

// Version returns the hashing scheme version.
func (p *HashProvider) Version() string { return "1.0" }

// Embed produces the deterministic vector for text.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	return p.vectorize(text), nil
}

// EmbedBatch produces deterministic vectors for each text.
func (p *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Close is a no-op.
func (p *HashProvider) Close() error { return nil }

func (p *HashProvider) vectorize(text string) []float32 {
	vec := make([]float32, p.dimension)
	tokens := hashTokenRe.FindAllString(strings.ToLower(text), -1)

	for _, token := range tokens {
		sum := sha256.Sum256([]byte(token))
		// Four bucket/weight pairs per token spreads collisions while
		// keeping shared tokens strongly correlated.
		for i := 0; i < 4; i++ {
			bucket := binary.LittleEndian.Uint32(sum[i*8:]) % uint32(p.dimension)
			weight := float32(1.0)
			if sum[i*8+4]&1 == 1 {
				weight = 0.5
			}
			vec[bucket] += weight
		}
	}

	var sq float64
	for _, v := range vec {
		sq += float64(v) * float64(v)
	}
	if sq > 0 {
		norm := float32(math.Sqrt(sq))
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
