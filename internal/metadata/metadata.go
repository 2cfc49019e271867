// Package metadata implements the structured-metadata extractor (C2):
// keywords, money, vendor, entities, and dates pulled from a text chunk via
// compiled regex families shared with the query analyzer (internal/query).
package metadata

import (
	"strings"

	"github.com/docsearch-core/docsearch/internal/model"
)

// Extract runs the full C2 pipeline over a chunk (or resource) of text,
// producing the denormalized Structured metadata shape. vendorMap is the
// operator-supplied variant -> canonical vendor dictionary.
//
// Extract is deterministic: same input always yields the same output.
func Extract(text string, vendorMap map[string]string) model.Structured {
	rawKeywords := ExtractKeywords(text)

	keywords := make([]string, len(rawKeywords))
	for i, k := range rawKeywords {
		keywords[i] = strings.ToLower(k)
	}
	keywords = dedupPreserveOrder(keywords)

	money, currency := ExtractMoney(text)
	amounts := make([]int64, len(money))
	for i, m := range money {
		amounts[i] = m.AmountCents
	}

	return model.Structured{
		Vendor:       ExtractVendor(text, vendorMap),
		Currency:     currency,
		AmountsCents: amounts,
		Entities:     ExtractEntities(text, rawKeywords),
		Keywords:     keywords,
		Dates:        ExtractDates(text),
	}
}

// Merge unions per-chunk Structured metadata into a resource-level
// aggregate: union of keywords/entities/dates,
// multiset union of amounts_cents, first non-null currency/vendor wins.
func Merge(parts ...model.Structured) model.Structured {
	var out model.Structured

	keywordSeen := make(map[string]struct{})
	entitySeen := make(map[string]struct{})
	dateSeen := make(map[int64]struct{})

	for _, p := range parts {
		if out.Vendor == "" {
			out.Vendor = p.Vendor
		}
		if out.Currency == "" {
			out.Currency = p.Currency
		}
		out.AmountsCents = append(out.AmountsCents, p.AmountsCents...)

		for _, k := range p.Keywords {
			if _, ok := keywordSeen[k]; ok {
				continue
			}
			keywordSeen[k] = struct{}{}
			out.Keywords = append(out.Keywords, k)
		}
		for _, e := range p.Entities {
			if _, ok := entitySeen[e]; ok {
				continue
			}
			entitySeen[e] = struct{}{}
			out.Entities = append(out.Entities, e)
		}
		for _, d := range p.Dates {
			if _, ok := dateSeen[d.UnixNano()]; ok {
				continue
			}
			dateSeen[d.UnixNano()] = struct{}{}
			out.Dates = append(out.Dates, d)
		}
	}

	return out
}
