package embedclient

import (
	"context"
	"hash/fnv"

	"github.com/docsearch-core/docsearch/internal/textnorm"
)

const (
	tokenWeight = float32(0.7)
	ngramWeight = float32(0.3)
	ngramSize   = 3
)

// StaticEmbedder produces deterministic hash-based vectors from token and
// character-n-gram features. It never calls out to a network and is always
// Available, so it serves both as the "static" provider choice and as a
// dependency-free option for tests.
type StaticEmbedder struct {
	dimText    int
	dimCaption int
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder constructs a StaticEmbedder with the given dimensions.
func NewStaticEmbedder(dimText, dimCaption int) *StaticEmbedder {
	if dimText <= 0 {
		dimText = 768
	}
	if dimCaption <= 0 {
		dimCaption = dimText
	}
	return &StaticEmbedder{dimText: dimText, dimCaption: dimCaption}
}

func hashToIndex(s string, dim int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32()) % dim
}

func generateVector(text string, dim int) []float32 {
	vector := make([]float32, dim)

	for _, tok := range textnorm.Tokenize(text) {
		idx := hashToIndex(tok, dim)
		if idx < 0 {
			idx += dim
		}
		vector[idx] += tokenWeight
	}

	normalized := textnorm.Normalize(text)
	runes := []rune(normalized)
	for i := 0; i+ngramSize <= len(runes); i++ {
		ngram := string(runes[i : i+ngramSize])
		idx := hashToIndex(ngram, dim)
		if idx < 0 {
			idx += dim
		}
		vector[idx] += ngramWeight
	}

	return vector
}

// Embed implements Embedder.
func (e *StaticEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	if textnorm.Normalize(text) == "" {
		return make(Vector, e.dimText), nil
	}
	return normalizeVector(generateVector(text, e.dimText)), nil
}

// EmbedImageCaption implements Embedder.
func (e *StaticEmbedder) EmbedImageCaption(_ context.Context, text string) (Vector, error) {
	if textnorm.Normalize(text) == "" {
		return make(Vector, e.dimCaption), nil
	}
	return normalizeVector(generateVector(text, e.dimCaption)), nil
}

// TextDimensions implements Embedder.
func (e *StaticEmbedder) TextDimensions() int { return e.dimText }

// CaptionDimensions implements Embedder.
func (e *StaticEmbedder) CaptionDimensions() int { return e.dimCaption }

// Available always reports true: StaticEmbedder has no external dependency.
func (e *StaticEmbedder) Available(_ context.Context) bool { return true }

// Close is a no-op.
func (e *StaticEmbedder) Close() error { return nil }
