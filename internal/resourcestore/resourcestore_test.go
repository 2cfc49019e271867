package resourcestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsearch-core/docsearch/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResourceAndChunks(tenantID, uri string) (*model.Resource, []*model.Chunk) {
	resource := &model.Resource{
		TenantID: tenantID,
		OwnerID:  "owner-1",
		URI:      uri,
		Name:     "invoice.txt",
		Content:  "acme corp invoice for services",
		Structured: model.Structured{
			Vendor:       "Acme Corp",
			AmountsCents: []int64{125000},
		},
	}
	chunks := []*model.Chunk{
		{
			ChunkID:        uri + "#0",
			ResourceID:     resource.ResourceID,
			TenantID:       tenantID,
			ChunkType:      model.ChunkTypeText,
			Text:           "Acme Corp invoice for services rendered",
			SearchableText: "acme corp invoice for services rendered",
		},
	}
	return resource, chunks
}

func TestUpsertThenGetByURIAndID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	resource, chunks := sampleResourceAndChunks("tenant-a", "doc://1")
	require.NoError(t, s.UpsertResource(ctx, resource, chunks))
	require.NotEmpty(t, resource.ResourceID)

	byURI, err := s.GetByURI(ctx, "tenant-a", "doc://1")
	require.NoError(t, err)
	require.NotNil(t, byURI)
	require.Equal(t, "Acme Corp", byURI.Vendor)

	byID, err := s.GetByID(ctx, "tenant-a", resource.ResourceID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, resource.URI, byID.URI)
}

func TestGetByIDEnforcesTenantIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	resource, chunks := sampleResourceAndChunks("tenant-a", "doc://1")
	require.NoError(t, s.UpsertResource(ctx, resource, chunks))

	byID, err := s.GetByID(ctx, "tenant-b", resource.ResourceID)
	require.NoError(t, err)
	require.Nil(t, byID)
}

func TestReingestionReplacesChunksAtomically(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	resource, chunks := sampleResourceAndChunks("tenant-a", "doc://1")
	require.NoError(t, s.UpsertResource(ctx, resource, chunks))
	firstID := resource.ResourceID

	resource2, chunks2 := sampleResourceAndChunks("tenant-a", "doc://1")
	chunks2[0].Text = "updated content"
	chunks2[0].SearchableText = "updated content"
	require.NoError(t, s.UpsertResource(ctx, resource2, chunks2))

	require.Equal(t, firstID, resource2.ResourceID, "reingesting the same (tenant,uri) must reuse the resource id")

	results, err := s.LexicalFallbackSearch(ctx, "tenant-a", "updated", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestDeleteResourceCascadesChunksAndEnforcesOwnership(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	resource, chunks := sampleResourceAndChunks("tenant-a", "doc://1")
	require.NoError(t, s.UpsertResource(ctx, resource, chunks))

	require.Error(t, s.DeleteResource(ctx, "tenant-b", resource.ResourceID), "a different tenant must not be able to delete this resource")

	require.NoError(t, s.DeleteResource(ctx, "tenant-a", resource.ResourceID))
	byID, err := s.GetByID(ctx, "tenant-a", resource.ResourceID)
	require.NoError(t, err)
	require.Nil(t, byID)
}

func TestLexicalFallbackSearchRanksByMatchCountAndScopesToTenant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r1, c1 := sampleResourceAndChunks("tenant-a", "doc://1")
	c1[0].SearchableText = "invoice invoice invoice acme"
	require.NoError(t, s.UpsertResource(ctx, r1, c1))

	r2, c2 := sampleResourceAndChunks("tenant-a", "doc://2")
	c2[0].SearchableText = "invoice widget co"
	require.NoError(t, s.UpsertResource(ctx, r2, c2))

	results, err := s.LexicalFallbackSearch(ctx, "tenant-a", "invoice", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, r1.ResourceID, results[0].ResourceID, "the resource with more keyword matches should rank first")

	noneForOtherTenant, err := s.LexicalFallbackSearch(ctx, "tenant-b", "invoice", 10)
	require.NoError(t, err)
	require.Empty(t, noneForOtherTenant)
}
