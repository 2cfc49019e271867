package compoundindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsearch-core/docsearch/internal/lexindex"
	"github.com/docsearch-core/docsearch/internal/model"
	"github.com/docsearch-core/docsearch/internal/vectorindex"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	lex, err := lexindex.New("")
	require.NoError(t, err)
	vec := vectorindex.New(8, 8)
	return New(lex, vec, 60)
}

func sampleChunk(tenantID, resourceID, chunkID, text string, textVec []float32) *model.Chunk {
	return &model.Chunk{
		ResourceID:     resourceID,
		TenantID:       tenantID,
		ChunkID:        chunkID,
		ChunkType:      model.ChunkTypeText,
		Text:           text,
		SearchableText: text,
		TextEmbedding:  textVec,
		Structured:     model.Structured{Keywords: []string{"invoice"}, Vendor: "acme"},
	}
}

func TestSearchFindsLexicalMatchWithinTenant(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	resource := &model.Resource{ResourceID: "r1", Name: "invoice.txt"}
	chunk := sampleChunk("tenant-a", "r1", "c1", "Acme Corp invoice for services rendered", nil)
	require.NoError(t, ix.IndexResource(ctx, resource, []*model.Chunk{chunk}))

	resp, err := ix.Search(ctx, Request{
		TenantID: "tenant-a",
		Must:     []Predicate{},
		Should:   []Clause{TextShould("invoice", []string{"text"}, 5)},
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	require.Equal(t, "c1", resp.Hits[0].ChunkID)
}

func TestSearchEnforcesTenantIsolation(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	chunkA := sampleChunk("tenant-a", "r1", "c1", "Acme Corp invoice", nil)
	require.NoError(t, ix.IndexResource(ctx, &model.Resource{ResourceID: "r1"}, []*model.Chunk{chunkA}))

	resp, err := ix.Search(ctx, Request{
		TenantID: "tenant-b",
		Should:   []Clause{TextShould("invoice", []string{"text"}, 5)},
		Limit:    10,
	})
	require.NoError(t, err)
	require.Empty(t, resp.Hits)
}

func TestSearchFusesKNNAndLexicalHits(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	vecA := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	vecB := []float32{0, 1, 0, 0, 0, 0, 0, 0}
	chunkA := sampleChunk("tenant-a", "r1", "c1", "quarterly report narrative", vecA)
	chunkB := sampleChunk("tenant-a", "r2", "c2", "unrelated memo text", vecB)
	require.NoError(t, ix.IndexResource(ctx, &model.Resource{ResourceID: "r1"}, []*model.Chunk{chunkA}))
	require.NoError(t, ix.IndexResource(ctx, &model.Resource{ResourceID: "r2"}, []*model.Chunk{chunkB}))

	resp, err := ix.Search(ctx, Request{
		TenantID: "tenant-a",
		Should: []Clause{
			KNN(vecA, "text_embedding", 10),
			TextShould("report", []string{"text"}, 5),
		},
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)
	require.Equal(t, "c1", resp.Hits[0].ChunkID, "the chunk matching both the knn query and the lexical query should rank first")
}

func TestDeleteResourceRemovesFromBothIndexes(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	chunk := sampleChunk("tenant-a", "r1", "c1", "Acme Corp invoice", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, ix.IndexResource(ctx, &model.Resource{ResourceID: "r1"}, []*model.Chunk{chunk}))
	require.NoError(t, ix.DeleteResource(ctx, "tenant-a", "r1"))

	resp, err := ix.Search(ctx, Request{
		TenantID: "tenant-a",
		Should:   []Clause{TextShould("invoice", []string{"text"}, 5)},
		Limit:    10,
	})
	require.NoError(t, err)
	require.Empty(t, resp.Hits)
}
