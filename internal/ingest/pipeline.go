package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/docsearch-core/docsearch/internal/config"
	"github.com/docsearch-core/docsearch/internal/embedclient"
	apperrors "github.com/docsearch-core/docsearch/internal/errors"
	"github.com/docsearch-core/docsearch/internal/imageproc"
	"github.com/docsearch-core/docsearch/internal/ingestlease"
	"github.com/docsearch-core/docsearch/internal/metadata"
	"github.com/docsearch-core/docsearch/internal/model"
	"github.com/docsearch-core/docsearch/internal/textnorm"
)

// Request is the input to Ingest: the raw bytes of one resource plus
// enough identity/provenance to place it.
type Request struct {
	TenantID    string
	OwnerID     string
	URI         string
	Name        string
	Description string
	MimeType    string
	FileType    model.FileKind
	Tags        []string

	Raw []byte

	// Image is required when FileType is FileKindImage: the caller runs
	// C5 (internal/imageproc) ahead of the pipeline since OCR/captioning
	// collaborators are wired per-deployment, not owned by Pipeline.
	Image imageproc.Result
}

// Pipeline implements the ingestion pipeline (C6): parse, extract,
// normalize, embed, aggregate, persist, and notify, serialized per
// (tenant_id, uri) via an ingestlease.Table.
type Pipeline struct {
	store       ResourceStore
	searchIndex SearchIndexer
	suggest     SuggestionIndexer
	embedder    embedclient.Embedder
	vendors     map[string]string
	lease       *ingestlease.Table
	cfg         config.IngestConfig
	logger      *slog.Logger

	sem *semaphore.Weighted
}

// New constructs a Pipeline. store and embedder are required; searchIndex
// and suggest may be nil to run with those post-commit side effects
// disabled (e.g. in a test harness exercising persistence alone).
func New(store ResourceStore, searchIndex SearchIndexer, suggest SuggestionIndexer, embedder embedclient.Embedder, vendors map[string]string, lease *ingestlease.Table, cfg config.IngestConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if lease == nil {
		lease = ingestlease.New()
	}
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		store:       store,
		searchIndex: searchIndex,
		suggest:     suggest,
		embedder:    embedder,
		vendors:     vendors,
		lease:       lease,
		cfg:         cfg,
		logger:      logger,
		sem:         semaphore.NewWeighted(int64(concurrency)),
	}
}

// Ingest runs the full pipeline for one resource: parse -> extract ->
// normalize -> embed -> aggregate -> persist -> notify. Persistence is
// serialized per (tenant_id, uri) via the ingestion lease; a competing
// ingest of the same resource fails fast with a Conflict error rather
// than blocking.
//
// A parse error or a persistence error fails the ingest; an embedding
// error degrades the affected chunk (EmbeddingMissing set, no text
// embedding) rather than failing the resource. Post-commit search/suggestion index
// updates are best-effort: their failures are logged, not returned.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*model.Resource, error) {
	if req.TenantID == "" || req.URI == "" {
		return nil, apperrors.BadRequest("tenant_id and uri are required", nil)
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeTimeout, "timed out waiting for an ingestion worker slot", err)
	}
	defer p.sem.Release(1)

	release, err := p.lease.TryAcquire(req.TenantID, req.URI)
	if err != nil {
		return nil, err
	}
	defer release()

	parts, err := p.parse(req.FileType, req.Raw, req.Image)
	if err != nil {
		return nil, err
	}

	resource := &model.Resource{
		URI:         req.URI,
		TenantID:    req.TenantID,
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		MimeType:    req.MimeType,
		FileType:    req.FileType,
		SizeBytes:   int64(len(req.Raw)),
		Tags:        req.Tags,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	chunks := make([]*model.Chunk, 0, len(parts))
	structuredParts := make([]model.Structured, 0, len(parts))

	for i, pt := range parts {
		chunk := p.buildChunk(ctx, resource, pt, i)
		chunks = append(chunks, chunk)
		structuredParts = append(structuredParts, chunk.Structured)
	}

	resource.Structured = metadata.Merge(structuredParts...)
	resource.Summary = firstNonEmptyPreview(chunks)
	resource.Content = joinSearchableText(chunks)

	if err := p.store.UpsertResource(ctx, resource, chunks); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, err)
	}

	p.notify(ctx, resource, chunks)

	return resource, nil
}

// buildChunk runs extract -> normalize -> embed over a single part.
func (p *Pipeline) buildChunk(ctx context.Context, resource *model.Resource, pt part, index int) *model.Chunk {
	structured := metadata.Extract(pt.text, p.vendors)

	chunk := &model.Chunk{
		ChunkID:     fmt.Sprintf("%s#%d", resource.URI, index),
		ResourceID:  resource.ResourceID,
		TenantID:    resource.TenantID,
		ChunkType:   pt.chunkType,
		ChunkIndex:  index,
		PageNumber:  pt.pageNum,
		RowIndex:    pt.rowIndex,
		ColIndex:    pt.colIndex,
		BBox:        pt.bbox,
		Text:        pt.text,
		OCRText:     pt.ocrText,
		Caption:     pt.caption,
		ImageLabels: pt.labels,
		Structured:  structured,
		FileType:    resource.FileType,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	chunk.TextNormalized = textnorm.Normalize(pt.text)
	chunk.OCRTextNormalized = textnorm.Normalize(pt.ocrText)
	chunk.SearchableText = textnorm.CreateSearchableText(pt.text, pt.ocrText, pt.caption, pt.labels)

	if p.embedder == nil {
		return chunk
	}

	embedText := chunk.SearchableText
	if embedText != "" {
		vec, err := p.embedder.Embed(ctx, embedText)
		if err != nil {
			p.logger.Warn("chunk text embedding unavailable, marking for reconciliation",
				"resource_uri", resource.URI, "chunk_index", index, "error", err)
			chunk.EmbeddingMissing = true
		} else {
			chunk.TextEmbedding = vec
		}
	}

	if pt.caption != "" {
		vec, err := p.embedder.EmbedImageCaption(ctx, pt.caption)
		if err != nil {
			p.logger.Warn("chunk caption embedding unavailable",
				"resource_uri", resource.URI, "chunk_index", index, "error", err)
		} else {
			chunk.CaptionEmbedding = vec
		}
	}

	return chunk
}

// notify runs the post-commit, best-effort side effects: updating the
// suggestion index and the compound search index. Neither failure fails
// the ingest; both are logged for operator visibility.
func (p *Pipeline) notify(ctx context.Context, resource *model.Resource, chunks []*model.Chunk) {
	if p.suggest != nil {
		if err := p.suggest.IndexResourceTerms(ctx, resource.TenantID, resource); err != nil {
			p.logger.Warn("suggestion index update failed", "resource_uri", resource.URI, "error", err)
		}
	}
	if p.searchIndex != nil {
		if err := p.searchIndex.IndexResource(ctx, resource, chunks); err != nil {
			p.logger.Warn("search index update failed", "resource_uri", resource.URI, "error", err)
		}
	}
}

// Delete removes a resource from the store and, best-effort, from the
// search index.
func (p *Pipeline) Delete(ctx context.Context, tenantID, resourceID string) error {
	release := p.lease.Acquire(tenantID, resourceID)
	defer release()

	if err := p.store.DeleteResource(ctx, tenantID, resourceID); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, err)
	}

	if p.searchIndex != nil {
		if err := p.searchIndex.DeleteResource(ctx, tenantID, resourceID); err != nil {
			p.logger.Warn("search index delete failed", "resource_id", resourceID, "error", err)
		}
	}
	if p.suggest != nil {
		if err := p.suggest.RemoveResourceTerms(ctx, tenantID, resourceID); err != nil {
			p.logger.Warn("suggestion index delete failed", "resource_id", resourceID, "error", err)
		}
	}
	return nil
}

func firstNonEmptyPreview(chunks []*model.Chunk) string {
	for _, c := range chunks {
		if preview := c.Preview(280); preview != "" {
			return preview
		}
	}
	return ""
}

func joinSearchableText(chunks []*model.Chunk) string {
	var out string
	for i, c := range chunks {
		if c.SearchableText == "" {
			continue
		}
		if i > 0 && out != "" {
			out += "\n"
		}
		out += c.SearchableText
	}
	return out
}
