package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsearch-core/docsearch/internal/config"
	apperrors "github.com/docsearch-core/docsearch/internal/errors"
	"github.com/docsearch-core/docsearch/internal/embedclient"
	"github.com/docsearch-core/docsearch/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	upserts   int
	resources map[string]*model.Resource
	chunks    map[string][]*model.Chunk
	failWith  error
	delay     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{resources: map[string]*model.Resource{}, chunks: map[string][]*model.Chunk{}}
}

func (f *fakeStore) UpsertResource(ctx context.Context, resource *model.Resource, chunks []*model.Chunk) error {
	if f.delay {
		time.Sleep(20 * time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.upserts++
	if resource.ResourceID == "" {
		resource.ResourceID = resource.TenantID + ":" + resource.URI
	}
	f.resources[resource.URI] = resource
	f.chunks[resource.URI] = chunks
	return nil
}

func (f *fakeStore) DeleteResource(ctx context.Context, tenantID, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for uri, r := range f.resources {
		if r.ResourceID == resourceID {
			delete(f.resources, uri)
			delete(f.chunks, uri)
		}
	}
	return nil
}

type fakeSearchIndex struct {
	mu       sync.Mutex
	indexed  int
	deleted  int
	failWith error
}

func (f *fakeSearchIndex) IndexResource(ctx context.Context, resource *model.Resource, chunks []*model.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed++
	return f.failWith
}

func (f *fakeSearchIndex) DeleteResource(ctx context.Context, tenantID, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return nil
}

type fakeSuggestIndex struct {
	mu     sync.Mutex
	calls  int
	removed int
	failWith error
}

func (f *fakeSuggestIndex) IndexResourceTerms(ctx context.Context, tenantID string, resource *model.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.failWith
}

func (f *fakeSuggestIndex) RemoveResourceTerms(ctx context.Context, tenantID, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed++
	return nil
}

func testPipeline(store ResourceStore, search SearchIndexer, suggest SuggestionIndexer) *Pipeline {
	cfg := config.IngestConfig{ChunkSizeChars: 1500, ChunkOverlapChars: 200, WorkerConcurrency: 4}
	return New(store, search, suggest, embedclient.NewStaticEmbedder(16, 16), nil, nil, cfg, nil)
}

func TestIngestTextResourcePersistsAndNotifies(t *testing.T) {
	store := newFakeStore()
	search := &fakeSearchIndex{}
	suggest := &fakeSuggestIndex{}
	p := testPipeline(store, search, suggest)

	resource, err := p.Ingest(context.Background(), Request{
		TenantID: "tenant-a",
		URI:      "doc://1",
		Name:     "invoice.txt",
		FileType: model.FileKindText,
		Raw:      []byte("Invoice #INV-1029 for $1,250.00 from Acme Corp."),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, 1, search.indexed)
	assert.Equal(t, 1, suggest.calls)
	assert.NotEmpty(t, resource.Content)
	assert.Contains(t, resource.AmountsCents, int64(125000))
}

func TestIngestRejectsMissingIdentity(t *testing.T) {
	p := testPipeline(newFakeStore(), nil, nil)

	_, err := p.Ingest(context.Background(), Request{FileType: model.FileKindText, Raw: []byte("x")})
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeBadRequest, appErr.Code)
}

func TestIngestConcurrentSameResourceConflicts(t *testing.T) {
	store := newFakeStore()
	store.delay = true
	p := testPipeline(store, nil, nil)

	req := Request{TenantID: "tenant-a", URI: "doc://same", FileType: model.FileKindText, Raw: []byte("hello world")}

	var wg sync.WaitGroup
	results := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.Ingest(context.Background(), req)
			results[i] = err
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
			conflicted++
		}
	}
	assert.GreaterOrEqual(t, succeeded, 1, "at least the first caller to acquire the lease should succeed")
	assert.GreaterOrEqual(t, conflicted, 1, "overlapping ingests of the same resource should fail fast, not queue")
	assert.Equal(t, 10, succeeded+conflicted)
}

func TestIngestStoreFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("disk full")
	p := testPipeline(store, nil, nil)

	_, err := p.Ingest(context.Background(), Request{
		TenantID: "tenant-a", URI: "doc://2", FileType: model.FileKindText, Raw: []byte("some content"),
	})
	require.Error(t, err)
}

func TestIngestSearchIndexFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	search := &fakeSearchIndex{failWith: errors.New("index down")}
	p := testPipeline(store, search, nil)

	resource, err := p.Ingest(context.Background(), Request{
		TenantID: "tenant-a", URI: "doc://3", FileType: model.FileKindText, Raw: []byte("some content"),
	})
	require.NoError(t, err)
	assert.NotNil(t, resource)
	assert.Equal(t, 1, search.indexed)
}

func TestIngestCSVProducesRowAndSchemaParts(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(store, nil, nil)

	csv := "name,amount\nAcme,100\nWidgetCo,250\n"
	_, err := p.Ingest(context.Background(), Request{
		TenantID: "tenant-a", URI: "doc://4.csv", FileType: model.FileKindCSV, Raw: []byte(csv),
	})
	require.NoError(t, err)

	chunks := store.chunks["doc://4.csv"]
	require.Len(t, chunks, 3)
	assert.Equal(t, model.ChunkTypeRow, chunks[0].ChunkType)
	assert.Equal(t, model.ChunkTypeRow, chunks[1].ChunkType)
	assert.Equal(t, model.ChunkTypeSchema, chunks[2].ChunkType)
}

func TestIngestMalformedPDFFails(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(store, nil, nil)

	_, err := p.Ingest(context.Background(), Request{
		TenantID: "tenant-a", URI: "doc://5.pdf", FileType: model.FileKindPDF, Raw: []byte("not a real pdf"),
	})
	require.Error(t, err, "a malformed pdf must fail the ingest rather than silently produce zero pages")
}

func TestIngestEmbeddingFailureDegradesChunkNotIngest(t *testing.T) {
	store := newFakeStore()
	cfg := config.IngestConfig{ChunkSizeChars: 1500, ChunkOverlapChars: 200, WorkerConcurrency: 4}
	p := New(store, nil, nil, failingEmbedder{}, nil, nil, cfg, nil)

	resource, err := p.Ingest(context.Background(), Request{
		TenantID: "tenant-a", URI: "doc://6", FileType: model.FileKindText, Raw: []byte("some searchable content"),
	})
	require.NoError(t, err)
	assert.NotNil(t, resource)

	chunks := store.chunks["doc://6"]
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].EmbeddingMissing)
	assert.Nil(t, chunks[0].TextEmbedding)
}

func TestDeleteRemovesFromStoreSearchAndSuggestions(t *testing.T) {
	store := newFakeStore()
	search := &fakeSearchIndex{}
	suggest := &fakeSuggestIndex{}
	p := testPipeline(store, search, suggest)

	resource, err := p.Ingest(context.Background(), Request{
		TenantID: "tenant-a", URI: "doc://7", FileType: model.FileKindText, Raw: []byte("some content"),
	})
	require.NoError(t, err)

	require.NoError(t, p.Delete(context.Background(), "tenant-a", resource.ResourceID))
	assert.Empty(t, store.resources)
	assert.Equal(t, 1, search.deleted)
	assert.Equal(t, 1, suggest.removed)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) (embedclient.Vector, error) {
	return nil, errors.New("provider unreachable")
}
func (failingEmbedder) EmbedImageCaption(ctx context.Context, text string) (embedclient.Vector, error) {
	return nil, errors.New("provider unreachable")
}
func (failingEmbedder) TextDimensions() int           { return 16 }
func (failingEmbedder) CaptionDimensions() int         { return 16 }
func (failingEmbedder) Available(ctx context.Context) bool { return false }
func (failingEmbedder) Close() error                   { return nil }
