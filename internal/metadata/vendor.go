package metadata

import "strings"

// vendorLookahead bounds how much of the document is scanned for an
// implicit (proper-noun) vendor match.
const vendorLookahead = 200

// ExtractVendor chooses a normalized canonical vendor string for text,
// using vendorMap (variant -> canonical, e.g. "T-Mobile Czech Republic" ->
// "t-mobile") as the external, non-learned normalization dictionary.
//
// Priority:
//  1. An explicit vendor-like line ("Vendor: X", "From: X").
//  2. The first title-cased proper noun in the first 200 characters that
//     matches a known variant in vendorMap.
//  3. Empty string if neither matches.
func ExtractVendor(text string, vendorMap map[string]string) string {
	if m := vendorLinePattern.FindStringSubmatch(text); m != nil {
		if canonical, ok := lookupVendor(m[1], vendorMap); ok {
			return canonical
		}
		// An explicit line with no known mapping is still a strong signal;
		// fall back to it verbatim, lowercased for consistency with the
		// canonical key shape.
		return strings.ToLower(strings.TrimSpace(m[1]))
	}

	head := text
	if len([]rune(head)) > vendorLookahead {
		head = string([]rune(head)[:vendorLookahead])
	}

	for _, span := range titleCaseSpanPattern.FindAllString(head, -1) {
		if canonical, ok := lookupVendor(span, vendorMap); ok {
			return canonical
		}
	}

	return ""
}

func lookupVendor(candidate string, vendorMap map[string]string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	for variant, canonical := range vendorMap {
		if strings.EqualFold(variant, candidate) {
			return canonical, true
		}
	}
	return "", false
}
