package embedclient

import (
	"github.com/docsearch-core/docsearch/internal/config"
)

// New builds an Embedder from configuration: an "ollama" or "static"
// provider, always wrapped in the LRU cache (the teacher's query-embedding
// cache is always-on for the same reason: saves 50-200ms per repeated
// query).
func New(cfg *config.Config) Embedder {
	var inner Embedder
	switch cfg.Embedding.Provider {
	case "static":
		inner = NewStaticEmbedder(cfg.Embedding.DimText, cfg.Embedding.DimCaption)
	default:
		inner = NewOllamaEmbedder(OllamaConfig{
			TextModel:           cfg.Embedding.Model,
			DimText:             cfg.Embedding.DimText,
			DimCaption:          cfg.Embedding.DimCaption,
			MaxInputChars:       cfg.Embedding.MaxInputChars,
			BreakerMaxFailures:  cfg.Breaker.MaxFailures,
			BreakerResetTimeout: cfg.Breaker.ResetTimeout,
		})
	}
	return NewCachedEmbedder(inner, cfg.Embedding.CacheSize)
}
