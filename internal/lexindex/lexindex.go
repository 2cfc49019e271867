// Package lexindex implements the lexical half of the compound search
// index (C7) and the lexical-fallback scan used by C10: a bleve index
// over the chunk fields the search executor's `text`/`equals`/`range`/
// `phrase` clauses target, grounded on internal/store/bm25.go's
// BleveBM25Index.
package lexindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Document is one chunk's lexically-searchable projection. Every field a
// search executor's must/should clauses can name lives here.
type Document struct {
	TenantID   string `json:"tenant_id"`
	ResourceID string `json:"resource_id"`
	ChunkID    string `json:"chunk_id"`

	Text                       string `json:"text"`
	Content                    string `json:"content"`
	Summary                    string `json:"summary"`
	Vendor                     string `json:"vendor"`
	FileName                   string `json:"file_name"`
	OCRText                    string `json:"ocr_text"`
	OCRTextNormalized          string `json:"ocr_text_normalized"`
	Caption                    string `json:"caption"`
	ImageDescriptionNormalized string `json:"image_description_normalized"`
	SearchableText             string `json:"searchable_text"`
	Currency                   string `json:"currency"`
	FileType                   string `json:"file_type"`

	Entities []string `json:"entities"`
	Keywords []string `json:"keywords"`

	// AmountsCents is indexed as a numeric multi-value field so a
	// range(amounts_cents, gte, lte) predicate matches if any amount
	// on the chunk falls in the window.
	AmountsCents []float64 `json:"amounts_cents"`

	// ChunkText, PageNumber, and RowIndex are stored but not searched:
	// the compound search executor reads them back off a hit's Fields
	// to build a preview and a deep link, without a second round-trip
	// to the resource store.
	ChunkText  string `json:"chunk_text"`
	PageNumber int    `json:"page_number,omitempty"` // 0 means absent
	RowIndex   int    `json:"row_index,omitempty"`   // stored as index+1; 0 means absent
}

// keywordFields are indexed but not analyzed: exact equals/phrase
// matching only, no tokenization.
var keywordFields = map[string]struct{}{
	"tenant_id":   {},
	"resource_id": {},
	"chunk_id":    {},
	"currency":    {},
	"file_type":   {},
}

// Index wraps a bleve.Index scoped to the compound search executor's
// lexical clauses.
type Index struct {
	mu    sync.RWMutex
	bleve bleve.Index
}

// New opens (or creates) the bleve index at path. path == "" keeps it memory-only,
// matching BleveBM25Index's in-memory mode for ephemeral/test use.
func New(path string) (*Index, error) {
	m, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("lexindex: building mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("lexindex: opening index: %w", err)
	}
	return &Index{bleve: idx}, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = "keyword"

	docMapping := bleve.NewDocumentMapping()
	for field := range keywordFields {
		docMapping.AddFieldMappingsAt(field, keywordFieldMapping)
	}
	im.AddDocumentMapping("_default", docMapping)
	return im, nil
}

// IndexChunks upserts a batch of documents.
func (ix *Index) IndexChunks(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.bleve.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ChunkID, doc); err != nil {
			return fmt.Errorf("lexindex: indexing %s: %w", doc.ChunkID, err)
		}
	}
	return ix.bleve.Batch(batch)
}

// DeleteChunks removes documents by chunk ID.
func (ix *Index) DeleteChunks(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.bleve.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
	}
	return ix.bleve.Batch(batch)
}

// ChunkIDsForResource finds every indexed chunk belonging to a resource,
// for DeleteResource to use ahead of DeleteChunks.
func (ix *Index) ChunkIDsForResource(ctx context.Context, tenantID, resourceID string) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q := bleve.NewConjunctionQuery(
		bleve.NewTermQuery(tenantID).SetField("tenant_id"),
		bleve.NewTermQuery(resourceID).SetField("resource_id"),
	)
	req := bleve.NewSearchRequest(q)
	req.Size = 10000

	result, err := ix.bleve.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexindex: resource lookup: %w", err)
	}
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Query runs a raw bleve query built by internal/compoundindex and
// returns the underlying bleve result, including highlight fragments
// when requested.
func (ix *Index) Query(ctx context.Context, q bleve.Query, limit int, highlightFields []string) (*bleve.SearchResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"*"}
	if len(highlightFields) > 0 {
		req.Highlight = bleve.NewHighlightWithStyle("html")
		for _, f := range highlightFields {
			req.Highlight.AddField(f)
		}
	}
	return ix.bleve.SearchInContext(ctx, req)
}

// FieldsForChunks fetches the stored field projection for a set of chunk
// IDs directly (no scoring), used by internal/compoundindex to backfill
// fields for hits that a kNN sub-search surfaced but the lexical query
// did not.
func (ix *Index) FieldsForChunks(ctx context.Context, chunkIDs []string) (map[string]map[string]interface{}, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q := bleve.NewDocIDQuery(chunkIDs)
	req := bleve.NewSearchRequest(q)
	req.Size = len(chunkIDs)
	req.Fields = []string{"*"}

	result, err := ix.bleve.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexindex: fields-for-chunks lookup: %w", err)
	}

	out := make(map[string]map[string]interface{}, len(result.Hits))
	for _, hit := range result.Hits {
		out[hit.ID] = hit.Fields
	}
	return out, nil
}

// Close releases the underlying bleve index.
func (ix *Index) Close() error {
	return ix.bleve.Close()
}
