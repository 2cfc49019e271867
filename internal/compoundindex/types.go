// Package compoundindex implements the SearchIndex collaborator (C7): a
// single search(request) -> Response façade composing internal/lexindex
// (bleve, must/text clauses) and internal/vectorindex (hnsw, knn clauses)
// behind must/should compound-query semantics, fused via reciprocal rank
// fusion since the two sub-indexes live in unrelated scoring spaces.
package compoundindex

// PredicateKind tags a must-clause variant.
type PredicateKind string

const (
	PredicateEquals PredicateKind = "equals"
	PredicateRange  PredicateKind = "range"
	PredicatePhrase PredicateKind = "phrase"
	PredicateText   PredicateKind = "text"
)

// Predicate is one required (must) clause.
type Predicate struct {
	Kind  PredicateKind
	Path  string
	Value string
	// GTE/LTE apply to PredicateRange only.
	GTE float64
	LTE float64
	// Paths applies to PredicateText only: the field set searched.
	Paths []string
	Query string
}

func Equals(path, value string) Predicate { return Predicate{Kind: PredicateEquals, Path: path, Value: value} }
func Phrase(path, value string) Predicate { return Predicate{Kind: PredicatePhrase, Path: path, Value: value} }
func RangeP(path string, gte, lte float64) Predicate {
	return Predicate{Kind: PredicateRange, Path: path, GTE: gte, LTE: lte}
}
func TextMust(query string, paths []string) Predicate {
	return Predicate{Kind: PredicateText, Query: query, Paths: paths}
}

// ClauseKind tags a should-clause variant.
type ClauseKind string

const (
	ClauseText ClauseKind = "text"
	ClauseKNN  ClauseKind = "knn"
)

// Clause is one scored (should) clause.
type Clause struct {
	Kind  ClauseKind
	Query string
	Paths []string
	Boost float64 // Text only; the collaborator refuses boosted kNN.

	Vector []float32 // KNN only.
	Path   string    // KNN only: "text_embedding" or "caption_embedding".
	K      int       // KNN only.
}

func TextShould(query string, paths []string, boost float64) Clause {
	return Clause{Kind: ClauseText, Query: query, Paths: paths, Boost: boost}
}
func KNN(vector []float32, path string, k int) Clause {
	return Clause{Kind: ClauseKNN, Vector: vector, Path: path, K: k}
}

// Request is a compound search request: required filters plus scored
// relevance clauses.
type Request struct {
	TenantID        string
	Must            []Predicate
	Should          []Clause
	Limit           int
	MinShouldMatch  int
	Highlight       bool
	ProjectionPaths []string
}

// Hit is one scored result from the compound index.
type Hit struct {
	ChunkID    string
	ResourceID string
	Score      float64
	Fields     map[string]string
	Highlights []string
}

// Response is the compound index's answer: hits in non-increasing score
// order.
type Response struct {
	Hits []Hit
}
