// Package ingest implements the ingestion pipeline (C6): parse -> extract
// -> normalize -> embed -> aggregate -> persist -> post-commit
// side-effects, serialized per (tenant_id, uri) via internal/ingestlease.
package ingest

import (
	"context"

	"github.com/docsearch-core/docsearch/internal/model"
)

// ResourceStore is the narrow persistence collaborator (C10) the pipeline
// depends on. UpsertResource must behave atomically: on reingestion of an
// existing (tenant_id, uri), old chunks are deleted, new chunks written,
// and the Resource row replaced, all-or-nothing.
type ResourceStore interface {
	UpsertResource(ctx context.Context, resource *model.Resource, chunks []*model.Chunk) error
	DeleteResource(ctx context.Context, tenantID, resourceID string) error
}

// SearchIndexer is the narrow search-index collaborator (C7) the pipeline
// notifies post-commit. Failures here are non-fatal: logged, and
// reconciled later or covered by C10's lexical fallback.
type SearchIndexer interface {
	IndexResource(ctx context.Context, resource *model.Resource, chunks []*model.Chunk) error
	DeleteResource(ctx context.Context, tenantID, resourceID string) error
}

// SuggestionIndexer is the narrow suggestion-index collaborator (C9) the
// pipeline updates post-commit with the resource's name, vendor, entities,
// keywords, and a bounded content-token sample.
type SuggestionIndexer interface {
	IndexResourceTerms(ctx context.Context, tenantID string, resource *model.Resource) error
	RemoveResourceTerms(ctx context.Context, tenantID, resourceID string) error
}

// part is one unit of content produced by Parse: a page, row, paragraph,
// or image bundle, before extraction/normalization/embedding.
type part struct {
	chunkType model.ChunkType
	pageNum   *int
	rowIndex  *int
	colIndex  *int
	bbox      *model.BBox

	text    string
	ocrText string
	caption string
	labels  []string
}
