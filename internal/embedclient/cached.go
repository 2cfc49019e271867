package embedclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of embeddings to keep cached.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with two independent LRU caches (text,
// caption), avoiding redundant provider calls for repeated queries and
// repeated resource text across tenants.
type CachedEmbedder struct {
	inner        Embedder
	textCache    *lru.Cache[string, Vector]
	captionCache *lru.Cache[string, Vector]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU cache of the given size.
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	textCache, _ := lru.New[string, Vector](cacheSize)
	captionCache, _ := lru.New[string, Vector](cacheSize)
	return &CachedEmbedder{inner: inner, textCache: textCache, captionCache: captionCache}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	key := cacheKey(text)
	if v, ok := c.textCache.Get(key); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.textCache.Add(key, v)
	return v, nil
}

// EmbedImageCaption implements Embedder.
func (c *CachedEmbedder) EmbedImageCaption(ctx context.Context, text string) (Vector, error) {
	key := cacheKey(text)
	if v, ok := c.captionCache.Get(key); ok {
		return v, nil
	}
	v, err := c.inner.EmbedImageCaption(ctx, text)
	if err != nil {
		return nil, err
	}
	c.captionCache.Add(key, v)
	return v, nil
}

// TextDimensions implements Embedder.
func (c *CachedEmbedder) TextDimensions() int { return c.inner.TextDimensions() }

// CaptionDimensions implements Embedder.
func (c *CachedEmbedder) CaptionDimensions() int { return c.inner.CaptionDimensions() }

// Available implements Embedder.
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close implements Embedder.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }

// Inner returns the wrapped embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }
