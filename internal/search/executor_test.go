package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsearch-core/docsearch/internal/compoundindex"
	"github.com/docsearch-core/docsearch/internal/config"
	"github.com/docsearch-core/docsearch/internal/embedclient"
	apperrors "github.com/docsearch-core/docsearch/internal/errors"
)

type fakeIndex struct {
	resp *compoundindex.Response
	err  error
	got  compoundindex.Request
}

func (f *fakeIndex) Search(ctx context.Context, req compoundindex.Request) (*compoundindex.Response, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeFallback struct {
	results []Result
	err     error
}

func (f *fakeFallback) LexicalFallbackSearch(ctx context.Context, tenantID, text string, limit int) ([]Result, error) {
	return f.results, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (embedclient.Vector, error) {
	return embedclient.Vector(f.vec), f.err
}
func (f *fakeEmbedder) EmbedImageCaption(ctx context.Context, text string) (embedclient.Vector, error) {
	return embedclient.Vector(f.vec), f.err
}
func (f *fakeEmbedder) TextDimensions() int                { return 8 }
func (f *fakeEmbedder) CaptionDimensions() int             { return 8 }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return f.err == nil }
func (f *fakeEmbedder) Close() error                       { return nil }

func defaultSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		MoneyTolerance:          0.10,
		ScoreCeiling:            10,
		SemanticStrongThreshold: 0.8,
		OverFetchFactor:         3,
	}
}

func TestSearchRejectsMissingTenant(t *testing.T) {
	ex := New(&fakeIndex{}, nil, nil, defaultSearchConfig())
	_, err := ex.Search(context.Background(), "invoice", "", 10)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
}

func TestSearchReturnsCompoundHitsClassifiedAndLinked(t *testing.T) {
	idx := &fakeIndex{resp: &compoundindex.Response{Hits: []compoundindex.Hit{
		{
			ChunkID:    "c1",
			ResourceID: "r1",
			Score:      9.5,
			Fields: map[string]string{
				"chunk_text":      "Acme Corp invoice 12345",
				"searchable_text": "Acme Corp invoice 12345",
				"page_number":     "3",
			},
		},
	}}}
	ex := New(idx, nil, &fakeEmbedder{vec: []float32{1, 0, 0, 0, 0, 0, 0, 0}}, defaultSearchConfig())

	rs, err := ex.Search(context.Background(), "invoice 12345", "tenant-a", 10)
	require.NoError(t, err)
	require.Equal(t, StrategyCompound, rs.Strategy)
	require.Len(t, rs.Results, 1)
	require.Equal(t, "r1", rs.Results[0].ResourceID)
	require.Equal(t, MatchExactPhrase, rs.Results[0].MatchType)
	require.NotNil(t, rs.Results[0].PageNumber)
	require.Equal(t, 3, *rs.Results[0].PageNumber)
	require.Equal(t, "/resources/r1?page=3", rs.Results[0].OpenURL)
}

func TestSearchDedupsByResourceKeepingHighestScore(t *testing.T) {
	idx := &fakeIndex{resp: &compoundindex.Response{Hits: []compoundindex.Hit{
		{ChunkID: "c1", ResourceID: "r1", Score: 2.0, Fields: map[string]string{}},
		{ChunkID: "c2", ResourceID: "r1", Score: 8.0, Fields: map[string]string{}},
	}}}
	ex := New(idx, nil, nil, defaultSearchConfig())

	rs, err := ex.Search(context.Background(), "report", "tenant-a", 10)
	require.NoError(t, err)
	require.Len(t, rs.Results, 1)
	require.Equal(t, "c2", rs.Results[0].ChunkID)
}

func TestSearchDegradesToFallbackOnIndexFailure(t *testing.T) {
	idx := &fakeIndex{err: apperrors.IndexUnavailable("index down", nil)}
	fb := &fakeFallback{results: []Result{{ResourceID: "r1", ChunkID: "c1", Score: 0.5}}}
	ex := New(idx, fb, nil, defaultSearchConfig())

	rs, err := ex.Search(context.Background(), "invoice", "tenant-a", 10)
	require.NoError(t, err)
	require.Equal(t, StrategyCompoundDegraded, rs.Strategy)
	require.Len(t, rs.Results, 1)
}

func TestSearchSurfacesSearchUnavailableWithoutFallback(t *testing.T) {
	idx := &fakeIndex{err: apperrors.IndexUnavailable("index down", nil)}
	ex := New(idx, nil, nil, defaultSearchConfig())

	_, err := ex.Search(context.Background(), "invoice", "tenant-a", 10)
	require.Error(t, err)
	require.Equal(t, apperrors.ErrCodeSearchUnavailable, apperrors.GetCode(err))
}

func TestSearchEmbeddingUnavailableDegradesToLexicalOnlyRequest(t *testing.T) {
	idx := &fakeIndex{resp: &compoundindex.Response{}}
	ex := New(idx, nil, &fakeEmbedder{err: apperrors.EmbeddingUnavailable("provider down", nil)}, defaultSearchConfig())

	_, err := ex.Search(context.Background(), "invoice", "tenant-a", 10)
	require.NoError(t, err)
	for _, clause := range idx.got.Should {
		require.NotEqual(t, compoundindex.ClauseKNN, clause.Kind, "no knn should-clause should be built when the embedder is unavailable")
	}
}
