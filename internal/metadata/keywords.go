package metadata

// ExtractKeywords finds invoice-style IDs, long digit runs, emails,
// IBAN-shaped tokens, and phone numbers, in that priority order, and
// deduplicates preserving first-seen order. Matches retain original casing;
// callers lowercase for the keywords field and keep original casing for
// entities.
func ExtractKeywords(text string) []string {
	var all []string
	all = append(all, invoiceIDPattern.FindAllString(text, -1)...)
	all = append(all, digitRunPattern.FindAllString(text, -1)...)
	all = append(all, emailPattern.FindAllString(text, -1)...)
	all = append(all, ibanPattern.FindAllString(text, -1)...)
	all = append(all, phonePattern.FindAllString(text, -1)...)

	return dedupPreserveOrder(all)
}

// ExtractIDs returns invoice-style IDs and long digit runs, deduplicated.
// Exported so callers that need the family split out (the query analyzer)
// don't duplicate the regexes.
func ExtractIDs(text string) []string {
	var all []string
	all = append(all, invoiceIDPattern.FindAllString(text, -1)...)
	all = append(all, digitRunPattern.FindAllString(text, -1)...)
	return dedupPreserveOrder(all)
}

// ExtractEmails returns every email-shaped match, deduplicated.
func ExtractEmails(text string) []string {
	return dedupPreserveOrder(emailPattern.FindAllString(text, -1))
}

// ExtractIBANs returns every IBAN-shaped match, deduplicated.
func ExtractIBANs(text string) []string {
	return dedupPreserveOrder(ibanPattern.FindAllString(text, -1))
}

// ExtractPhones returns every phone-shaped match, deduplicated.
func ExtractPhones(text string) []string {
	return dedupPreserveOrder(phonePattern.FindAllString(text, -1))
}

// DedupPreserveOrder exports the shared dedup helper for other packages
// composing these families (the query analyzer).
func DedupPreserveOrder(tokens []string) []string {
	return dedupPreserveOrder(tokens)
}

func dedupPreserveOrder(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
