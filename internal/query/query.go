// Package query implements the query analyzer (C3): a pure, deterministic
// decomposition of a raw user query into the structured-token families C2
// recognizes (internal/metadata), plus the free-text residue and an
// advisory retrieval-strategy estimate. It reuses C2's regex families
// rather than restating them, the same way the teacher's classifier reused
// its pattern library instead of duplicating it per call site.
package query

import (
	"github.com/docsearch-core/docsearch/internal/metadata"
	"github.com/docsearch-core/docsearch/internal/textnorm"
)

// Strategy is the advisory retrieval strategy Analyze estimates. It never
// gates what the search executor actually does: a compound query is always
// assembled regardless of the estimate.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategySemantic Strategy = "semantic"
	StrategyHybrid   Strategy = "hybrid"
)

// fileTypeVocabulary is the closed set of file-type tokens Analyze looks
// for among the query's normalized tokens.
var fileTypeVocabulary = map[string]struct{}{
	"pdf":   {},
	"csv":   {},
	"text":  {},
	"txt":   {},
	"image": {},
	"jpg":   {},
	"jpeg":  {},
	"png":   {},
	"doc":   {},
	"docx":  {},
	"xls":   {},
	"xlsx":  {},
	"ppt":   {},
	"pptx":  {},
}

// Analysis is the output of Analyze: every field is either a set (as a
// slice, deduplicated, first-seen order) or an ordered list.
type Analysis struct {
	IDs               []string
	Emails            []string
	IBANs             []string
	Phones            []string
	Money             []metadata.Money
	Entities          []string
	FileTypes         []string
	CleanText         string
	EstimatedStrategy Strategy
}

// Analyze decomposes a raw query string. It is pure and deterministic: the
// same query always produces the same Analysis. An empty (or all-whitespace)
// query returns an all-empty Analysis with EstimatedStrategy = semantic.
func Analyze(q string) Analysis {
	if textnorm.Normalize(q) == "" {
		return Analysis{EstimatedStrategy: StrategySemantic}
	}

	ids := metadata.ExtractIDs(q)
	emails := metadata.ExtractEmails(q)
	ibans := metadata.ExtractIBANs(q)
	phones := metadata.ExtractPhones(q)
	money, _ := metadata.ExtractMoney(q)

	residue := metadata.RemoveStructuredSpans(q)
	entities := metadata.ExtractTitleCaseSpans(residue)
	cleanText := textnorm.Normalize(residue)
	cleanTokens := textnorm.Tokenize(cleanText)

	var fileTypes []string
	for _, tok := range cleanTokens {
		if _, ok := fileTypeVocabulary[tok]; ok {
			fileTypes = append(fileTypes, tok)
		}
	}
	fileTypes = metadata.DedupPreserveOrder(fileTypes)

	hasStructured := len(ids) > 0 || len(emails) > 0 || len(ibans) > 0 || len(phones) > 0 || len(money) > 0
	exactEligible := (len(ids) > 0 || len(emails) > 0 || len(ibans) > 0 || len(money) > 0) && len(cleanTokens) < 2

	strategy := StrategyHybrid
	switch {
	case exactEligible:
		strategy = StrategyExact
	case !hasStructured:
		strategy = StrategySemantic
	}

	return Analysis{
		IDs:               ids,
		Emails:            emails,
		IBANs:             ibans,
		Phones:            phones,
		Money:             money,
		Entities:          entities,
		FileTypes:         fileTypes,
		CleanText:         cleanText,
		EstimatedStrategy: strategy,
	}
}
