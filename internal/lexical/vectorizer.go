package lexical

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenRe = regexp.MustCompile(`\w+`)

// sparseVec is a sparse feature vector keyed by vocabulary index.
type sparseVec map[int]float64

// dot computes the dot product of two sparse vectors. Both sides are
// expected to be L2-normalized, making this cosine similarity.
func (v sparseVec) dot(other sparseVec) float64 {
	// Iterate the smaller map.
	if len(other) < len(v) {
		v, other = other, v
	}
	var sum float64
	for i, a := range v {
		if b, ok := other[i]; ok {
			sum += a * b
		}
	}
	return sum
}

func (v sparseVec) normalize() {
	var sq float64
	for _, a := range v {
		sq += a * a
	}
	if sq == 0 {
		return
	}
	norm := math.Sqrt(sq)
	for i := range v {
		v[i] /= norm
	}
}

// vectorizer is a TF-IDF vectorizer over word n-grams.
//
// Vocabulary and document frequencies are computed by Fit over the whole
// corpus; they are not incrementally updatable, so every corpus change
// requires a refit.
type vectorizer struct {
	ngramMin    int
	ngramMax    int
	maxFeatures int

	vocab  map[string]int
	idf    []float64
	fitted bool
}

func newVectorizer(ngramMin, ngramMax, maxFeatures int) *vectorizer {
	return &vectorizer{
		ngramMin:    ngramMin,
		ngramMax:    ngramMax,
		maxFeatures: maxFeatures,
	}
}

// ngrams tokenizes text (lowercased word tokens) and emits n-grams in the
// configured range, joined by single spaces.
func (vz *vectorizer) ngrams(text string) []string {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	var grams []string
	for n := vz.ngramMin; n <= vz.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// Fit builds the vocabulary and IDF weights from the corpus and returns the
// TF-IDF matrix of the corpus itself, with each row L2-normalized.
func (vz *vectorizer) Fit(corpus []string) []sparseVec {
	termCounts := make(map[string]int) // total occurrences, for maxFeatures cut
	docFreq := make(map[string]int)
	docGrams := make([][]string, len(corpus))

	for i, doc := range corpus {
		grams := vz.ngrams(doc)
		docGrams[i] = grams
		seen := make(map[string]bool, len(grams))
		for _, g := range grams {
			termCounts[g]++
			if !seen[g] {
				seen[g] = true
				docFreq[g]++
			}
		}
	}

	terms := make([]string, 0, len(termCounts))
	for t := range termCounts {
		terms = append(terms, t)
	}
	// Keep the most frequent terms when over the feature budget; ties break
	// alphabetically so the vocabulary is deterministic.
	sort.Slice(terms, func(i, j int) bool {
		if termCounts[terms[i]] != termCounts[terms[j]] {
			return termCounts[terms[i]] > termCounts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if vz.maxFeatures > 0 && len(terms) > vz.maxFeatures {
		terms = terms[:vz.maxFeatures]
	}
	sort.Strings(terms)

	vz.vocab = make(map[string]int, len(terms))
	vz.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, t := range terms {
		vz.vocab[t] = i
		// Smoothed IDF: ln((1+n)/(1+df)) + 1.
		vz.idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
	vz.fitted = true

	matrix := make([]sparseVec, len(corpus))
	for i, grams := range docGrams {
		matrix[i] = vz.vectorize(grams)
	}
	return matrix
}

// Transform vectorizes text with the already-fitted vocabulary. Terms not
// seen during Fit are ignored.
func (vz *vectorizer) Transform(text string) sparseVec {
	if !vz.fitted {
		return sparseVec{}
	}
	return vz.vectorize(vz.ngrams(text))
}

func (vz *vectorizer) vectorize(grams []string) sparseVec {
	vec := make(sparseVec)
	for _, g := range grams {
		if idx, ok := vz.vocab[g]; ok {
			vec[idx]++
		}
	}
	for idx := range vec {
		vec[idx] *= vz.idf[idx]
	}
	vec.normalize()
	return vec
}
