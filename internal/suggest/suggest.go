// Package suggest implements the suggestion index (C9): per-tenant,
// per-category prefix lookup over terms drawn from ingested resources,
// grounded on internal/store/tokenizer.go's ordered-term-collection idiom
// but generalized from code identifiers to document-level terms via
// internal/textnorm.
package suggest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docsearch-core/docsearch/internal/model"
	"github.com/docsearch-core/docsearch/internal/textnorm"
)

// Category is one of the five term families spec.md §4.9 tracks.
type Category string

const (
	CategoryFilenames Category = "filenames"
	CategoryVendors   Category = "vendors"
	CategoryEntities  Category = "entities"
	CategoryKeywords  Category = "keywords"
	CategoryAllTerms  Category = "all_terms"
)

// categoryWeights are the fixed per-category score multipliers spec.md
// §4.9 step 3 names.
var categoryWeights = map[Category]float64{
	CategoryFilenames: 1.0,
	CategoryVendors:   0.9,
	CategoryKeywords:  0.8,
	CategoryEntities:  0.7,
	CategoryAllTerms:  0.5,
}

var allCategories = []Category{CategoryFilenames, CategoryVendors, CategoryEntities, CategoryKeywords, CategoryAllTerms}

// allTermsCap bounds how many content tokens a single resource can
// contribute to the all_terms category, so one large document cannot
// dominate every tenant's suggestions.
const allTermsCap = 200

// Suggestion is one candidate returned by Suggest.
type Suggestion struct {
	Term  string
	Kind  Category
	Score float64
}

// tenantIndex is one tenant's per-category ordered term sets plus the
// idempotency marker set index_resource and remove_resource rely on.
type tenantIndex struct {
	mu         sync.RWMutex
	categories map[Category]*orderedSet
	// contributions maps (resource_id, category) -> the set of terms that
	// resource contributed in that category, so remove_resource can undo
	// exactly what index_resource added without re-deriving it from the
	// resource's current (possibly already-changed) fields.
	contributions map[string]map[string]struct{}
}

func newTenantIndex() *tenantIndex {
	categories := make(map[Category]*orderedSet, len(allCategories))
	for _, c := range allCategories {
		categories[c] = newOrderedSet()
	}
	return &tenantIndex{categories: categories, contributions: make(map[string]map[string]struct{})}
}

// Index is the C9 collaborator: a suggestion index scoped to many
// tenants, each with its own ordered term sets, plus a hot-prefix cache
// shared across tenants (keyed on tenant+prefix so entries never cross a
// tenant boundary).
type Index struct {
	mu      sync.RWMutex
	tenants map[string]*tenantIndex
	cache   *lru.Cache[string, []Suggestion]
}

// New constructs an Index. cacheSize bounds the hot-prefix cache entry
// count; 0 disables caching.
func New(cacheSize int) *Index {
	var cache *lru.Cache[string, []Suggestion]
	if cacheSize > 0 {
		cache, _ = lru.New[string, []Suggestion](cacheSize)
	}
	return &Index{tenants: make(map[string]*tenantIndex), cache: cache}
}

func (ix *Index) tenant(tenantID string) *tenantIndex {
	ix.mu.RLock()
	t, ok := ix.tenants[tenantID]
	ix.mu.RUnlock()
	if ok {
		return t
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if t, ok := ix.tenants[tenantID]; ok {
		return t
	}
	t = newTenantIndex()
	ix.tenants[tenantID] = t
	return t
}

// IndexResourceTerms implements internal/ingest.SuggestionIndexer: it
// increments the frequency of every term the resource contributes across
// its applicable categories, idempotently per resource.
func (ix *Index) IndexResourceTerms(ctx context.Context, tenantID string, resource *model.Resource) error {
	t := ix.tenant(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	add := func(category Category, term string) {
		term = textnorm.Normalize(term)
		if term == "" {
			return
		}
		key := category2key(category, term)
		contributed := t.contributions[resource.ResourceID]
		if contributed == nil {
			contributed = make(map[string]struct{})
			t.contributions[resource.ResourceID] = contributed
		}
		if _, already := contributed[key]; already {
			return
		}
		contributed[key] = struct{}{}
		t.categories[category].increment(term)
	}

	if resource.Name != "" {
		add(CategoryFilenames, resource.Name)
	}
	if resource.Vendor != "" {
		add(CategoryVendors, resource.Vendor)
	}
	for _, e := range resource.Entities {
		add(CategoryEntities, e)
	}
	for _, k := range resource.Keywords {
		add(CategoryKeywords, k)
	}

	tokens := textnorm.UniqueTokens(resource.Content)
	if len(tokens) > allTermsCap {
		tokens = tokens[:allTermsCap]
	}
	for _, tok := range tokens {
		add(CategoryAllTerms, tok)
	}

	ix.invalidateCache(tenantID)
	return nil
}

// RemoveResourceTerms decrements every counter the given resource
// contributed, deleting any term whose frequency falls to zero.
func (ix *Index) RemoveResourceTerms(ctx context.Context, tenantID, resourceID string) error {
	t := ix.tenant(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	contributed := t.contributions[resourceID]
	for key := range contributed {
		category, term, ok := splitKey(key)
		if !ok {
			continue
		}
		t.categories[category].decrement(term)
	}
	delete(t.contributions, resourceID)

	ix.invalidateCache(tenantID)
	return nil
}

// Suggest implements spec.md §4.9's suggest(tenant_id, prefix, limit):
// normalize, scan every category's ordered set for the prefix range,
// score, dedup keeping the highest-scoring kind, and truncate.
func (ix *Index) Suggest(ctx context.Context, tenantID, prefix string, limit int) ([]Suggestion, error) {
	normalizedPrefix := textnorm.Normalize(prefix)
	cacheKey := tenantID + "\x00" + normalizedPrefix + "\x00" + fmt.Sprint(limit)
	if ix.cache != nil {
		if cached, ok := ix.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	t := ix.tenant(tenantID)
	t.mu.RLock()
	defer t.mu.RUnlock()

	best := make(map[string]Suggestion)
	for _, category := range allCategories {
		weight := categoryWeights[category]
		for _, member := range t.categories[category].prefixRange(normalizedPrefix) {
			score := weight * math.Log(1+float64(member.frequency))
			if existing, ok := best[member.term]; !ok || score > existing.Score {
				best[member.term] = Suggestion{Term: member.term, Kind: category, Score: score}
			}
		}
	}

	out := make([]Suggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	if ix.cache != nil {
		ix.cache.Add(cacheKey, out)
	}
	return out, nil
}

func (ix *Index) invalidateCache(tenantID string) {
	if ix.cache == nil {
		return
	}
	prefix := tenantID + "\x00"
	for _, key := range ix.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			ix.cache.Remove(key)
		}
	}
}

func category2key(category Category, term string) string {
	return string(category) + "\x00" + term
}

func splitKey(key string) (Category, string, bool) {
	parts := strings.SplitN(key, "\x00", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return Category(parts[0]), parts[1], true
}
