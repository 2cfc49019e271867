package metadata

import (
	"regexp"
	"sort"
	"strings"
)

// structuredSpanPatterns are the regex families considered "structured
// tokens": the same families ExtractKeywords/ExtractMoney use, reused here
// so the query analyzer's free-text residue is computed with one pass
// rather than restating the regexes.
var structuredSpanPatterns = []*regexp.Regexp{
	invoiceIDPattern,
	digitRunPattern,
	emailPattern,
	ibanPattern,
	phonePattern,
	moneySymbolPattern,
	moneyCodePattern,
}

// RemoveStructuredSpans strips every structured-token match (ids, emails,
// ibans, phones, money) from text, leaving the free-text residue used for
// semantic/lexical search and for the entity heuristic.
func RemoveStructuredSpans(text string) string {
	type span struct{ start, end int }
	var spans []span
	for _, p := range structuredSpanPatterns {
		for _, m := range p.FindAllStringIndex(text, -1) {
			spans = append(spans, span{m[0], m[1]})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	last := 0
	for _, s := range spans {
		if s.start < last {
			continue // overlaps a span already removed
		}
		b.WriteString(text[last:s.start])
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String()
}
