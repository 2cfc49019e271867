package search

import (
	"fmt"
	"strings"

	"github.com/docsearch-core/docsearch/internal/compoundindex"
	"github.com/docsearch-core/docsearch/internal/config"
	"github.com/docsearch-core/docsearch/internal/query"
	"github.com/docsearch-core/docsearch/internal/textnorm"
)

// buildRequest assembles a compound request per spec.md §4.8 step 3: a
// tenant ACL filter plus structured-token filters in must, and scored
// relevance clauses (kNN over a non-nil query embedding, boosted lexical
// matches over several field groups) in should.
func buildRequest(rawQuery string, analysis query.Analysis, tenantID string, qVec []float32, cfg config.SearchConfig, limit int) compoundindex.Request {
	must := []compoundindex.Predicate{}

	for _, id := range analysis.IDs {
		must = append(must, compoundindex.Phrase("keywords", id))
	}
	for _, email := range analysis.Emails {
		must = append(must, compoundindex.Phrase("keywords", email))
	}
	for _, iban := range analysis.IBANs {
		must = append(must, compoundindex.Phrase("keywords", iban))
	}

	should := []compoundindex.Clause{}

	if len(analysis.Money) > 0 {
		m := analysis.Money[0]
		if m.Currency != "" {
			must = append(must, compoundindex.Equals("currency", m.Currency))
		}
		lo := float64(m.AmountCents) * (1 - cfg.MoneyTolerance)
		hi := float64(m.AmountCents) * (1 + cfg.MoneyTolerance)
		must = append(must, compoundindex.RangeP("amounts_cents", lo, hi))

		for _, other := range analysis.Money[1:] {
			should = append(should, compoundindex.TextShould(fmt.Sprintf("%d", other.AmountCents), []string{"content"}, 1))
		}
	}

	for _, ft := range analysis.FileTypes {
		must = append(must, compoundindex.Equals("file_type", ft))
	}

	if len(qVec) > 0 {
		should = append(should, compoundindex.KNN(qVec, "text_embedding", 100))
		should = append(should, compoundindex.KNN(qVec, "caption_embedding", 100))
	}

	normalizedQuery := textnorm.NormalizeQuery(rawQuery)
	should = append(should,
		compoundindex.TextShould(normalizedQuery, []string{"text", "content", "summary", "entities", "vendor", "file_name"}, 5),
		compoundindex.TextShould(normalizedQuery, []string{"ocr_text", "ocr_text_normalized", "caption", "image_description_normalized"}, 10),
		compoundindex.TextShould(normalizedQuery, []string{"vendor", "entities", "keywords"}, 3),
	)
	for _, entity := range analysis.Entities {
		should = append(should, compoundindex.TextShould(entity, []string{"vendor", "entities", "file_name"}, 3))
	}

	minShouldMatch := 0
	if len(should) > 0 {
		minShouldMatch = 1
	}

	return compoundindex.Request{
		TenantID:       tenantID,
		Must:           must,
		Should:         should,
		Limit:          limit * cfg.OverFetchFactor,
		MinShouldMatch: minShouldMatch,
		Highlight:      true,
	}
}

// containsNormalized reports whether haystack contains needle as a
// contiguous substring once both are normalized, used for exact_phrase
// classification.
func containsNormalized(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(textnorm.Normalize(haystack), textnorm.Normalize(needle))
}
