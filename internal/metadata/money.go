package metadata

import (
	"sort"
	"strconv"
	"strings"
)

// maxSaneCents is the upper bound beyond which a parsed amount is assumed to
// be parser noise rather than a real amount.
const maxSaneCents = int64(1e12)

// Money is one (amount, currency) match extracted from text.
type Money struct {
	AmountCents int64
	Currency    string // ISO-ish code, uppercase A-Z, empty if unknown
}

type moneyMatch struct {
	start    int
	cents    int64
	currency string
}

// ExtractMoney finds all (amount, currency) pairs in text using both
// symbol-prefix ("$1,234.56") and code-suffix ("1234,56 EUR") forms, in the
// order they appear. The winning currency is the first one found; every
// parsed amount (regardless of which currency it appeared with) is
// returned, modulo the sane upper-bound filter.
func ExtractMoney(text string) (amounts []Money, currency string) {
	var matches []moneyMatch

	for _, m := range moneySymbolPattern.FindAllStringSubmatchIndex(text, -1) {
		symbol := text[m[2]:m[3]]
		raw := text[m[4]:m[5]]
		cents, ok := parseAmountToCents(raw)
		if !ok || cents < 0 || cents >= maxSaneCents {
			continue
		}
		matches = append(matches, moneyMatch{start: m[0], cents: cents, currency: currencySymbolToCode[symbol]})
	}

	for _, m := range moneyCodePattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[2]:m[3]]
		code := text[m[4]:m[5]]
		cents, ok := parseAmountToCents(raw)
		if !ok || cents < 0 || cents >= maxSaneCents {
			continue
		}
		matches = append(matches, moneyMatch{start: m[0], cents: cents, currency: code})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	out := make([]Money, 0, len(matches))
	for _, m := range matches {
		out = append(out, Money{AmountCents: m.cents, Currency: m.currency})
		if currency == "" && m.currency != "" {
			currency = m.currency
		}
	}

	return out, currency
}

// parseAmountToCents converts a raw numeric string (possibly with '.' or
// ',' used as either decimal or thousands separator) to integer cents.
//
// The rightmost of '.' or ',' is the decimal separator if 1-2 digits follow
// it; otherwise every separator present is a thousands separator and the
// whole string is an integer amount.
func parseAmountToCents(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	lastDot := strings.LastIndexByte(raw, '.')
	lastComma := strings.LastIndexByte(raw, ',')
	lastSep := lastDot
	if lastComma > lastSep {
		lastSep = lastComma
	}

	var intPart, fracPart string
	if lastSep == -1 {
		intPart = raw
	} else {
		trailingDigits := len(raw) - lastSep - 1
		if trailingDigits >= 1 && trailingDigits <= 2 {
			intPart = stripSeparators(raw[:lastSep])
			fracPart = raw[lastSep+1:]
		} else {
			intPart = stripSeparators(raw)
		}
	}

	if intPart == "" {
		intPart = "0"
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, false
	}

	fracPart = (fracPart + "00")[:2]
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, false
	}

	return whole*100 + frac, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}
