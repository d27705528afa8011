package lexical

import "strings"

// errorSynonyms maps a token to words that mean roughly the same thing in
// programming-error context. Expansion makes TF-IDF treat "null" and
// "undefined" as overlapping vocabulary instead of disjoint terms.
var errorSynonyms = map[string][]string{
	// Null/undefined family
	"undefined": {"null", "none", "nil", "unset", "missing", "empty"},
	"null":      {"undefined", "none", "nil", "unset", "missing", "empty"},
	"none":      {"undefined", "null", "nil", "unset", "missing"},
	"missing":   {"undefined", "null", "absent"},

	// Error type family
	"error":     {"exception", "failure", "fault", "problem", "issue"},
	"exception": {"error", "failure", "fault", "thrown"},
	"failed":    {"error", "failure", "crashed", "broken"},

	// Access family
	"cannot": {"unable", "impossible"},
	"unable": {"cannot"},
	"read":   {"access", "get", "fetch", "retrieve", "load"},
	"write":  {"save", "store", "update", "set", "put"},

	// Property family
	"property":  {"attribute", "field", "key", "member", "prop"},
	"attribute": {"property", "field", "key", "member"},
	"key":       {"property", "field", "index", "name"},

	// Type family
	"type":     {"kind", "class", "typeof"},
	"array":    {"list", "collection", "items", "elements"},
	"object":   {"dict", "dictionary", "hash", "map", "record"},
	"string":   {"str", "text", "char"},
	"number":   {"int", "integer", "float", "numeric", "digit"},
	"function": {"method", "func", "procedure", "callback"},

	// Action family
	"map":       {"iterate", "loop", "foreach", "transform"},
	"filter":    {"select", "find", "search", "query"},
	"parse":     {"decode", "deserialize", "convert", "read"},
	"stringify": {"serialize", "encode", "convert", "format"},

	// Network family
	"fetch":      {"request", "get", "load", "retrieve", "call"},
	"request":    {"fetch", "call", "api", "http"},
	"response":   {"result", "reply", "return", "data"},
	"timeout":    {"slow", "hang", "stuck"},
	"connection": {"network", "socket", "link", "connect"},
}

// maxSynonymsPerToken bounds expansion so common tokens don't dominate
// the document.
const maxSynonymsPerToken = 3

// stemSuffixes are stripped in order; first match wins.
var stemSuffixes = []string{
	"tion", "sion", "ing", "ed", "er", "ly", "es", "s",
	"ment", "ness", "able", "ible",
}

// Stem applies lightweight rule-based suffix stripping. Words of four
// characters or fewer are returned unchanged, and a suffix is only removed
// when at least three characters remain.
func Stem(word string) string {
	if len(word) <= 4 {
		return word
	}
	for _, suffix := range stemSuffixes {
		if strings.HasSuffix(word, suffix) && len(word)-len(suffix) >= 3 {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

// Expand broadens text with synonyms and stemmed variants of each token.
// The original tokens are kept so exact overlap still scores highest.
func Expand(text string) string {
	words := strings.Fields(strings.ToLower(text))
	expanded := make([]string, 0, len(words)*2)

	for _, word := range words {
		expanded = append(expanded, word)
		if syns, ok := errorSynonyms[word]; ok {
			n := len(syns)
			if n > maxSynonymsPerToken {
				n = maxSynonymsPerToken
			}
			expanded = append(expanded, syns[:n]...)
		}
		if stemmed := Stem(word); stemmed != word {
			expanded = append(expanded, stemmed)
		}
	}

	return strings.Join(expanded, " ")
}
