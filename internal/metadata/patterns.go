package metadata

import "regexp"

// Compiled regex families, shared verbatim by the query analyzer (C3) so
// both components recognize the same structured tokens. Compiled once at
// package init, same shape as a classifier's precompiled patterns:
// pure functions operating on these, never panicking on malformed input.
var (
	// invoiceIDPattern matches invoice-style identifiers: 2+ uppercase
	// letters, an optional hyphen, 3+ digits (e.g. "INV-2024-001", "AB1234").
	invoiceIDPattern = regexp.MustCompile(`\b[A-Z]{2,}-?\d{3,}(?:-\d+)*\b`)

	// digitRunPattern matches long digit runs (account numbers, phone-less IDs).
	digitRunPattern = regexp.MustCompile(`\b\d{8,}\b`)

	// emailPattern matches RFC-5321-shaped emails.
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// ibanPattern matches IBAN-shaped tokens: 2 letters + 2 digits + up to 30
	// alphanumerics.
	ibanPattern = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{1,30}\b`)

	// phonePattern matches E.164-shaped phone numbers.
	phonePattern = regexp.MustCompile(`\+\d{1,3}[\s\-]?\d{2,4}[\s\-]?\d{3,4}[\s\-]?\d{0,4}`)

	// moneySymbolPattern matches symbol-prefixed amounts: "$1,234.56", "€99".
	moneySymbolPattern = regexp.MustCompile(`([$€£¥])\s?(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)`)

	// moneyCodePattern matches code-suffixed amounts: "1234,56 EUR", "99 USD".
	moneyCodePattern = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)\s?([A-Z]{3})\b`)

	// vendorLinePattern matches explicit vendor-declaration lines.
	vendorLinePattern = regexp.MustCompile(`(?im)^\s*(?:Vendor|From)\s*:\s*(.+?)\s*$`)

	// titleCaseSpanPattern matches a run of 2+ consecutive Title-Cased words,
	// the heuristic for "proper noun" / entity spans.
	titleCaseSpanPattern = regexp.MustCompile(`\b(?:[A-Z][a-z]+(?:[\s-][A-Z][a-z]+)+)\b`)

	// isoDatePattern matches ISO-ish dates: 2024-01-31, 2024/01/31.
	isoDatePattern = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)

	// slashDatePattern matches common slash dates: 01/31/2024, 31/01/2024.
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

var currencySymbolToCode = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}
