package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripsDiacriticsAndLowercases(t *testing.T) {
	assert.Equal(t, "datova budoucnost", Normalize("Datová Budoucnost"))
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a   b\tc \n"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	cases := []string{"Jak se formuje datová budoucnost", "", "   ", "ACME Corp — Invoice #42"}
	for _, s := range cases {
		once := Normalize(s)
		twice := Normalize(once)
		assert.Equal(t, once, twice, s)
	}
}

func TestNormalizeQueryMatchesDocumentNormalization(t *testing.T) {
	query := NormalizeQuery("Jak se formuje datová budoucnost")
	doc := Normalize("jak se formuje datova budoucnost")
	assert.Equal(t, doc, query)
}

func TestCreateSearchableText(t *testing.T) {
	got := CreateSearchableText("Invoice total", "Jak se formuje datová budoucnost", "a scanned invoice", []string{"Invoice", "Receipt"})
	assert.Equal(t, "invoice total jak se formuje datova budoucnost a scanned invoice invoice receipt", got)
}

func TestCreateSearchableTextSkipsEmptyParts(t *testing.T) {
	got := CreateSearchableText("only text", "", "", nil)
	assert.Equal(t, "only text", got)
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	tokens := Tokenize("I am a Google Cloud invoice")
	assert.NotContains(t, tokens, "i")
	assert.NotContains(t, tokens, "a")
	assert.Contains(t, tokens, "google")
	assert.Contains(t, tokens, "cloud")
}

func TestTokenizeOnDiacritics(t *testing.T) {
	tokens := Tokenize("datová budoucnost")
	assert.Equal(t, []string{"datova", "budoucnost"}, tokens)
}

func TestUniqueTokensDeduplicatesPreservingOrder(t *testing.T) {
	tokens := UniqueTokens("invoice invoice google invoice cloud")
	assert.Equal(t, []string{"invoice", "google", "cloud"}, tokens)
}
