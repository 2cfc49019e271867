package metadata

// ExtractEntities returns the set of entity strings for a chunk: every
// structured keyword match (original casing) plus any title-cased
// multi-word span ("proper noun") found in the text, deduplicated
// preserving first-seen order.
func ExtractEntities(text string, keywordsOriginalCase []string) []string {
	all := make([]string, 0, len(keywordsOriginalCase))
	all = append(all, keywordsOriginalCase...)
	all = append(all, titleCaseSpanPattern.FindAllString(text, -1)...)
	return dedupPreserveOrder(all)
}

// ExtractTitleCaseSpans returns every title-cased multi-word span in text,
// the "proper noun" heuristic on its own, for callers (the query analyzer)
// that want it applied to a residue text rather than the full document.
func ExtractTitleCaseSpans(text string) []string {
	return dedupPreserveOrder(titleCaseSpanPattern.FindAllString(text, -1))
}
