package imageproc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsearch-core/docsearch/internal/embedclient"
)

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) OCR(ctx context.Context, imageBytes []byte, mime string) (string, error) {
	return f.text, f.err
}

type fakeCaption struct {
	caption string
	labels  []string
	err     error
}

func (f fakeCaption) Caption(ctx context.Context, imageBytes []byte, mime string) (string, []string, error) {
	return f.caption, f.labels, f.err
}

func TestProcessRunsFullPipeline(t *testing.T) {
	p := New(
		fakeOCR{text: "Invoice Total: $100"},
		fakeCaption{caption: "A scanned invoice", labels: []string{"document", "invoice"}},
		embedclient.NewStaticEmbedder(32, 32),
		nil,
	)

	res := p.Process(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	assert.Equal(t, "Invoice Total: $100", res.OCRText)
	assert.Equal(t, "invoice total: $100", res.OCRTextNormalized)
	assert.Equal(t, "a scanned invoice", res.ImageDescriptionNormalized)
	assert.Equal(t, []string{"document", "invoice"}, res.ImageLabels)
	require.Len(t, res.CaptionEmbedding, 32)
	assert.NotEmpty(t, res.SearchableText)
}

func TestProcessDegradesOnNilCollaborators(t *testing.T) {
	p := New(nil, nil, embedclient.NewStaticEmbedder(32, 32), nil)
	res := p.Process(context.Background(), []byte{}, "image/png")
	assert.Empty(t, res.OCRText)
	assert.Empty(t, res.Caption)
	assert.Empty(t, res.CaptionEmbedding)
}

func TestProcessDegradesOnOCRFailure(t *testing.T) {
	p := New(
		fakeOCR{err: errors.New("ocr engine down")},
		fakeCaption{caption: "a photo"},
		embedclient.NewStaticEmbedder(16, 16),
		nil,
	)
	res := p.Process(context.Background(), []byte{}, "image/png")
	assert.Empty(t, res.OCRText)
	assert.Equal(t, "a photo", res.Caption)
}

func TestProcessDegradesOnCaptionFailure(t *testing.T) {
	p := New(
		fakeOCR{text: "some text"},
		fakeCaption{err: errors.New("vision service down")},
		embedclient.NewStaticEmbedder(16, 16),
		nil,
	)
	res := p.Process(context.Background(), []byte{}, "image/png")
	assert.Equal(t, "some text", res.OCRText)
	assert.Empty(t, res.Caption)
	assert.Empty(t, res.CaptionEmbedding)
}

func TestProcessSkipsEmbeddingWhenCaptionEmpty(t *testing.T) {
	p := New(fakeOCR{text: "only text"}, nil, embedclient.NewStaticEmbedder(16, 16), nil)
	res := p.Process(context.Background(), []byte{}, "image/png")
	assert.Empty(t, res.CaptionEmbedding)
}
