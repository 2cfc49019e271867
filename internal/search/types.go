// Package search implements the compound search executor (C8): it builds
// a compound query from a raw text query, a tenant, and the query
// analyzer's (C3) decomposition, executes it against the compound index
// (C7), and falls back to the resource store's lexical scan (C10) when C7
// is unavailable.
package search

import (
	"github.com/docsearch-core/docsearch/internal/query"
)

// Strategy records which retrieval path produced a ResultSet.
type Strategy string

const (
	StrategyCompound        Strategy = "compound"
	StrategyCompoundDegraded Strategy = "compound_degraded"
	StrategyKeywordFallback  Strategy = "keyword_fallback"
)

// MatchType classifies why a hit is relevant, in the priority order C8
// assigns it.
type MatchType string

const (
	MatchExactAmount   MatchType = "exact_amount"
	MatchExactID       MatchType = "exact_id"
	MatchExactPhrase   MatchType = "exact_phrase"
	MatchSemanticStrong MatchType = "semantic_strong"
	MatchHybrid        MatchType = "hybrid"
)

// Result is one ranked, classified, linked search hit.
type Result struct {
	ResourceID string
	ChunkID    string
	FileName   string
	FileType   string
	Score      float64
	MatchType  MatchType
	PageNumber *int
	RowIndex   *int
	Highlights []string
	OpenURL    string

	ChunkText    string
	Vendor       string
	Currency     string
	AmountsCents []int64
}

// ResultSet is compound_search's return value.
type ResultSet struct {
	Query    string
	Analysis query.Analysis
	Results  []Result
	Total    int
	Strategy Strategy
}
