package solutions

import "time"

// Scope identifies which memory a solution came from.
type Scope string

const (
	// ScopePersonal is the developer's own memory, searched first.
	ScopePersonal Scope = "personal"

	// ScopeTeam is the shared memory, searched only when the personal
	// scope has no match.
	ScopeTeam Scope = "team"
)

// MatchType records which tier of the hybrid lookup produced a match.
type MatchType string

const (
	// MatchSemantic is an embedding-index hit.
	MatchSemantic MatchType = "semantic"

	// MatchLexical is a TF-IDF similarity hit.
	MatchLexical MatchType = "lexical"

	// MatchExact is an exact match on the normalized error text.
	MatchExact MatchType = "exact"

	// MatchPartial is a substring match on the normalized error prefix.
	MatchPartial MatchType = "partial"
)

// Solution is a stored error/fix pair.
type Solution struct {
	ID              int64     `json:"id"`
	ErrorMessage    string    `json:"error_message"`
	SolutionText    string    `json:"solution_text"`
	Timestamp       time.Time `json:"timestamp"`
	ErrorClean      string    `json:"error_clean"`
	ConfidenceScore float64   `json:"confidence_score"`
	SuccessCount    int       `json:"success_count"`
}

// FindResult is a hybrid lookup hit.
type FindResult struct {
	SolutionID   int64     `json:"solution_id"`
	MatchedError string    `json:"matched_error"`
	Solution     string    `json:"solution"`
	Score        float64   `json:"score"`
	MatchType    MatchType `json:"match_type"`
	SuccessCount int       `json:"success_count"`
	Source       Scope     `json:"source"`
}
