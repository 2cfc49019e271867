package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeEmptyQueryIsAllEmptySemantic(t *testing.T) {
	a := Analyze("")
	assert.Equal(t, StrategySemantic, a.EstimatedStrategy)
	assert.Empty(t, a.IDs)
	assert.Empty(t, a.Emails)
	assert.Empty(t, a.Money)
	assert.Empty(t, a.CleanText)
}

func TestAnalyzeWhitespaceOnlyQueryIsAllEmpty(t *testing.T) {
	a := Analyze("   \t  ")
	assert.Equal(t, StrategySemantic, a.EstimatedStrategy)
}

func TestAnalyzeSoleIDIsExactStrategy(t *testing.T) {
	a := Analyze("INV-2024-001")
	require.Len(t, a.IDs, 1)
	assert.Equal(t, "INV-2024-001", a.IDs[0])
	assert.Equal(t, StrategyExact, a.EstimatedStrategy)
	assert.Empty(t, a.CleanText)
}

func TestAnalyzeSoleEmailIsExactStrategy(t *testing.T) {
	a := Analyze("billing@acme.com")
	require.Len(t, a.Emails, 1)
	assert.Equal(t, StrategyExact, a.EstimatedStrategy)
}

func TestAnalyzePlainTextHasNoStructuredMatchesIsSemantic(t *testing.T) {
	a := Analyze("quarterly budget planning notes")
	assert.Empty(t, a.IDs)
	assert.Empty(t, a.Emails)
	assert.Empty(t, a.Money)
	assert.Equal(t, StrategySemantic, a.EstimatedStrategy)
	assert.Equal(t, "quarterly budget planning notes", a.CleanText)
}

func TestAnalyzeStructuredPlusProseIsHybrid(t *testing.T) {
	a := Analyze("invoice INV-2024-001 from last quarter about office supplies")
	require.Len(t, a.IDs, 1)
	assert.Equal(t, StrategyHybrid, a.EstimatedStrategy)
	assert.Contains(t, a.CleanText, "office supplies")
}

func TestAnalyzeExtractsMoney(t *testing.T) {
	a := Analyze("invoices over $1,234.56")
	require.Len(t, a.Money, 1)
	assert.Equal(t, int64(123456), a.Money[0].AmountCents)
	assert.Equal(t, "USD", a.Money[0].Currency)
}

func TestAnalyzeExtractsFileTypes(t *testing.T) {
	a := Analyze("find the pdf invoices from acme")
	assert.Contains(t, a.FileTypes, "pdf")
}

func TestAnalyzeExtractsEntitiesFromResidue(t *testing.T) {
	a := Analyze("contract with Acme Corporation about INV-2024-001")
	assert.Contains(t, a.Entities, "Acme Corporation")
	assert.NotContains(t, a.CleanText, "inv-2024-001")
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	q := "invoice INV-2024-001 for $500 from billing@acme.com"
	first := Analyze(q)
	second := Analyze(q)
	assert.Equal(t, first, second)
}

func TestAnalyzeIBANAloneIsExact(t *testing.T) {
	a := Analyze("DE89370400440532013000")
	require.Len(t, a.IBANs, 1)
	assert.Equal(t, StrategyExact, a.EstimatedStrategy)
}

func TestAnalyzePhoneAloneIsNotExact(t *testing.T) {
	// estimated_strategy's exact case is ids/emails/ibans/money only; a
	// lone phone number with no other structured match and no residue
	// text still counts as "no structured matches at all" is false, so
	// it falls to hybrid rather than exact or semantic.
	a := Analyze("+1 415 555 1234")
	require.Len(t, a.Phones, 1)
	assert.Equal(t, StrategyHybrid, a.EstimatedStrategy)
}
