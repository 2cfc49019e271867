package compoundindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"golang.org/x/sync/errgroup"

	"github.com/docsearch-core/docsearch/internal/lexindex"
	"github.com/docsearch-core/docsearch/internal/model"
	"github.com/docsearch-core/docsearch/internal/textnorm"
	"github.com/docsearch-core/docsearch/internal/vectorindex"
)

// Index is the C7 SearchIndex collaborator: it composes internal/lexindex
// and internal/vectorindex behind the single search(request) -> Response
// façade spec.md §4.7 describes, fusing the lexical and vector sub-results
// by reciprocal rank fusion since they report scores in unrelated spaces
// (BM25-derived vs. cosine similarity).
type Index struct {
	lex         *lexindex.Index
	vec         *vectorindex.Index
	rrfConstant int
}

// New constructs a compound Index. rrfConstant is the RRF smoothing
// parameter k (typically 60); 0 falls back to 60.
func New(lex *lexindex.Index, vec *vectorindex.Index, rrfConstant int) *Index {
	if rrfConstant <= 0 {
		rrfConstant = 60
	}
	return &Index{lex: lex, vec: vec, rrfConstant: rrfConstant}
}

// IndexResource indexes every chunk of a resource into both sub-indexes.
// Satisfies internal/ingest.SearchIndexer.
func (ix *Index) IndexResource(ctx context.Context, resource *model.Resource, chunks []*model.Chunk) error {
	docs := make([]lexindex.Document, 0, len(chunks))
	for _, c := range chunks {
		amounts := make([]float64, len(c.AmountsCents))
		for i, a := range c.AmountsCents {
			amounts[i] = float64(a)
		}
		pageNumber := 0
		if c.PageNumber != nil {
			pageNumber = *c.PageNumber
		}
		rowIndex := 0
		if c.RowIndex != nil {
			rowIndex = *c.RowIndex + 1
		}
		docs = append(docs, lexindex.Document{
			TenantID:                   c.TenantID,
			ResourceID:                 c.ResourceID,
			ChunkID:                    c.ChunkID,
			Text:                       c.Text,
			Content:                    resource.Content,
			Summary:                    resource.Summary,
			Vendor:                     c.Vendor,
			FileName:                   resource.Name,
			OCRText:                    c.OCRText,
			OCRTextNormalized:          c.OCRTextNormalized,
			Caption:                    c.Caption,
			ImageDescriptionNormalized: textnorm.Normalize(c.Caption),
			SearchableText:             c.SearchableText,
			Currency:                   c.Currency,
			FileType:                   string(c.FileType),
			Entities:                   c.Entities,
			Keywords:                   c.Keywords,
			AmountsCents:               amounts,
			ChunkText:                  c.Preview(280),
			PageNumber:                 pageNumber,
			RowIndex:                   rowIndex,
		})

		if err := ix.vec.Upsert(c.TenantID, c.ChunkID, c.TextEmbedding, c.CaptionEmbedding); err != nil {
			return fmt.Errorf("compoundindex: vector upsert for chunk %s: %w", c.ChunkID, err)
		}
	}
	return ix.lex.IndexChunks(ctx, docs)
}

// DeleteResource removes every chunk of a resource from both sub-indexes.
func (ix *Index) DeleteResource(ctx context.Context, tenantID, resourceID string) error {
	ids, err := ix.lex.ChunkIDsForResource(ctx, tenantID, resourceID)
	if err != nil {
		return err
	}
	if err := ix.lex.DeleteChunks(ctx, ids); err != nil {
		return err
	}
	ix.vec.Delete(tenantID, ids)
	return nil
}

// Search executes a compound request: a lexical bleve query over the must
// predicates and text-should clauses, run concurrently with any knn
// should-clauses, fused into one ranked Response.
func (ix *Index) Search(ctx context.Context, req Request) (*Response, error) {
	lexQuery, highlightFields := buildBleveQuery(req)

	var lexResult *bleve.SearchResult
	rankedLists := make([][]string, 0, 3)
	knnFields := map[string]map[string]interface{}{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := ix.lex.Query(gctx, lexQuery, req.Limit, highlightFields)
		if err != nil {
			return fmt.Errorf("compoundindex: lexical query: %w", err)
		}
		lexResult = res
		return nil
	})

	knnResults := make([][]vectorindex.Hit, 0, 2)
	var knnMu sync.Mutex
	for _, clause := range req.Should {
		if clause.Kind != ClauseKNN {
			continue
		}
		clause := clause
		g.Go(func() error {
			var hits []vectorindex.Hit
			var err error
			switch clause.Path {
			case "caption_embedding":
				hits, err = ix.vec.SearchCaption(req.TenantID, clause.Vector, clause.K)
			default:
				hits, err = ix.vec.SearchText(req.TenantID, clause.Vector, clause.K)
			}
			if err != nil {
				return fmt.Errorf("compoundindex: knn query on %s: %w", clause.Path, err)
			}
			knnMu.Lock()
			knnResults = append(knnResults, hits)
			knnMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	lexRanked, lexFields, lexHighlights := extractLexical(lexResult)
	rankedLists = append(rankedLists, lexRanked)
	for _, hits := range knnResults {
		ranked := make([]string, len(hits))
		for i, h := range hits {
			ranked[i] = h.ChunkID
		}
		rankedLists = append(rankedLists, ranked)
	}

	fused := reciprocalRankFusion(rankedLists, ix.rrfConstant)

	missing := make([]string, 0)
	for _, f := range fused {
		if _, ok := lexFields[f.id]; !ok {
			missing = append(missing, f.id)
		}
	}
	if len(missing) > 0 {
		extra, err := ix.lex.FieldsForChunks(ctx, missing)
		if err == nil {
			for id, fields := range extra {
				knnFields[id] = fields
			}
		}
	}

	hits := make([]Hit, 0, len(fused))
	for _, f := range fused {
		fields := lexFields[f.id]
		if fields == nil {
			fields = knnFields[f.id]
		}
		hits = append(hits, Hit{
			ChunkID:    f.id,
			ResourceID: stringField(fields, "resource_id"),
			Score:      f.score,
			Fields:     stringFields(fields),
			Highlights: lexHighlights[f.id],
		})
	}

	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}

	return &Response{Hits: hits}, nil
}
