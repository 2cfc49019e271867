package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docsearch-core/docsearch/internal/compoundindex"
	"github.com/docsearch-core/docsearch/internal/config"
	"github.com/docsearch-core/docsearch/internal/embedclient"
	apperrors "github.com/docsearch-core/docsearch/internal/errors"
	"github.com/docsearch-core/docsearch/internal/query"
)

// CompoundIndex is the narrow view of C7 the executor needs: one
// search(request) call. Satisfied by *internal/compoundindex.Index.
type CompoundIndex interface {
	Search(ctx context.Context, req compoundindex.Request) (*compoundindex.Response, error)
}

// FallbackStore is C10's lexical_fallback_search, the degraded path used
// when C7 is unavailable.
type FallbackStore interface {
	LexicalFallbackSearch(ctx context.Context, tenantID, text string, limit int) ([]Result, error)
}

// Executor implements C8: it builds a compound request from a raw query,
// executes it against C7, and falls back to C10's lexical scan when C7
// fails. Grounded on the teacher's search.Engine constructor pattern, but
// thinner: C7 now owns the fan-out and fusion, so Executor only classifies,
// dedups, normalizes, links, and truncates.
type Executor struct {
	index    CompoundIndex
	fallback FallbackStore
	embedder embedclient.Embedder
	cfg      config.SearchConfig
}

// New constructs an Executor. fallback may be nil if no degraded path is
// configured, in which case a C7 failure surfaces as SearchUnavailable.
func New(index CompoundIndex, fallback FallbackStore, embedder embedclient.Embedder, cfg config.SearchConfig) *Executor {
	return &Executor{index: index, fallback: fallback, embedder: embedder, cfg: cfg}
}

// Search runs spec.md §4.8's ten-step compound search algorithm: analyze,
// embed, build, execute, dedup, classify, normalize, link, truncate.
func (e *Executor) Search(ctx context.Context, rawQuery, tenantID string, limit int) (*ResultSet, error) {
	if tenantID == "" {
		return nil, apperrors.Forbidden("search requires a tenant_id", nil)
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit <= 0 {
		limit = 20
	}

	analysis := query.Analyze(rawQuery)

	var qVec []float32
	if analysis.CleanText != "" && e.embedder != nil {
		v, err := e.embedder.Embed(ctx, analysis.CleanText)
		if err != nil && apperrors.GetCode(err) != apperrors.ErrCodeEmbeddingUnavailable {
			return nil, err
		}
		qVec = []float32(v)
	}

	req := buildRequest(rawQuery, analysis, tenantID, qVec, e.cfg, limit)

	resp, err := e.index.Search(ctx, req)
	if err != nil {
		return e.degrade(ctx, rawQuery, tenantID, analysis, limit, err)
	}

	results := e.assemble(resp.Hits, analysis, rawQuery)
	if len(results) > limit {
		results = results[:limit]
	}

	return &ResultSet{
		Query:    rawQuery,
		Analysis: analysis,
		Results:  results,
		Total:    len(results),
		Strategy: StrategyCompound,
	}, nil
}

// degrade falls back to C10's lexical scan when C7 errors. If no fallback
// is configured, or the fallback itself fails, the original error
// surfaces wrapped as SearchUnavailable.
func (e *Executor) degrade(ctx context.Context, rawQuery, tenantID string, analysis query.Analysis, limit int, cause error) (*ResultSet, error) {
	if e.fallback == nil {
		return nil, apperrors.SearchUnavailable("compound search index unavailable and no fallback configured", cause)
	}

	results, ferr := e.fallback.LexicalFallbackSearch(ctx, tenantID, rawQuery, limit)
	if ferr != nil {
		return nil, apperrors.SearchUnavailable("compound search index unavailable and fallback failed", cause)
	}

	strategy := StrategyKeywordFallback
	if len(results) > 0 {
		strategy = StrategyCompoundDegraded
	}

	return &ResultSet{
		Query:    rawQuery,
		Analysis: analysis,
		Results:  results,
		Total:    len(results),
		Strategy: strategy,
	}, nil
}

// assemble dedups hits by resource (keeping the highest-scoring chunk),
// classifies match type, normalizes score, and builds each deep link.
func (e *Executor) assemble(hits []compoundindex.Hit, analysis query.Analysis, rawQuery string) []Result {
	bestByResource := make(map[string]compoundindex.Hit, len(hits))
	order := make([]string, 0, len(hits))
	for _, h := range hits {
		existing, ok := bestByResource[h.ResourceID]
		if !ok {
			order = append(order, h.ResourceID)
			bestByResource[h.ResourceID] = h
			continue
		}
		if h.Score > existing.Score {
			bestByResource[h.ResourceID] = h
		}
	}

	results := make([]Result, 0, len(order))
	for _, resourceID := range order {
		h := bestByResource[resourceID]
		results = append(results, e.toResult(h, analysis, rawQuery))
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func (e *Executor) toResult(h compoundindex.Hit, analysis query.Analysis, rawQuery string) Result {
	ceiling := e.cfg.ScoreCeiling
	if ceiling <= 0 {
		ceiling = 1
	}
	normalized := h.Score / ceiling
	if normalized > 1 {
		normalized = 1
	}

	chunkText := h.Fields["chunk_text"]
	searchableText := h.Fields["searchable_text"]
	r := Result{
		ResourceID:   h.ResourceID,
		ChunkID:      h.ChunkID,
		FileName:     h.Fields["file_name"],
		FileType:     h.Fields["file_type"],
		Score:        normalized,
		MatchType:    classify(h, analysis, rawQuery, searchableText, normalized, e.cfg),
		Highlights:   h.Highlights,
		ChunkText:    chunkText,
		Vendor:       h.Fields["vendor"],
		Currency:     h.Fields["currency"],
		AmountsCents: parseAmountsCents(h.Fields["amounts_cents"]),
	}

	if pn, ok := parsePositive(h.Fields["page_number"]); ok {
		r.PageNumber = &pn
	}
	if ri, ok := parsePositive(h.Fields["row_index"]); ok {
		ri-- // stored as 1-based to distinguish "absent" from row 0
		r.RowIndex = &ri
	}

	r.OpenURL = buildOpenURL(h.ResourceID, r.PageNumber, r.RowIndex)
	return r
}

// classify assigns a MatchType in priority order: an exact structured
// match (amount, ID/email/IBAN) outranks an exact phrase match, which
// outranks a strong semantic match, which outranks the hybrid default.
// The exact-phrase check runs against the chunk's full searchable_text,
// not the truncated chunk_text preview, so a phrase past the preview's
// cutoff still classifies correctly.
func classify(h compoundindex.Hit, analysis query.Analysis, rawQuery, searchableText string, normalized float64, cfg config.SearchConfig) MatchType {
	if len(analysis.Money) > 0 && h.Fields["currency"] != "" {
		return MatchExactAmount
	}
	for _, id := range append(append([]string{}, analysis.IDs...), append(analysis.Emails, analysis.IBANs...)...) {
		if containsNormalized(h.Fields["keywords"], id) {
			return MatchExactID
		}
	}
	if containsNormalized(searchableText, rawQuery) {
		return MatchExactPhrase
	}
	threshold := cfg.SemanticStrongThreshold
	if threshold <= 0 {
		threshold = 0.8
	}
	if normalized >= threshold {
		return MatchSemanticStrong
	}
	return MatchHybrid
}

func parsePositive(s string) (int, bool) {
	if s == "" || s == "0" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseAmountsCents parses the space-joined integer list stringFields
// flattens a chunk's amounts_cents field into.
func parseAmountsCents(s string) []int64 {
	if s == "" {
		return nil
	}
	fields := strings.Fields(s)
	amounts := make([]int64, 0, len(fields))
	for _, f := range fields {
		if n, err := strconv.ParseInt(f, 10, 64); err == nil {
			amounts = append(amounts, n)
		}
	}
	return amounts
}

// buildOpenURL constructs the deep-link format spec.md §6.4 defines:
// /resources/{resource_id}?page=<n>&row=<n>.
func buildOpenURL(resourceID string, page, row *int) string {
	url := fmt.Sprintf("/resources/%s", resourceID)
	sep := "?"
	if page != nil {
		url += fmt.Sprintf("%spage=%d", sep, *page)
		sep = "&"
	}
	if row != nil {
		url += fmt.Sprintf("%srow=%d", sep, *row)
	}
	return url
}
