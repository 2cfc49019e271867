// Package imageproc implements the image processor collaborator (C5):
// given image bytes, run OCR and captioning, normalize the results via C1,
// and embed the caption via C4. A missing OCR or captioning collaborator
// (or a transient failure from either) degrades to empty output for that
// field rather than failing the image's ingestion.
package imageproc

import (
	"context"
	"log/slog"

	"github.com/docsearch-core/docsearch/internal/embedclient"
	"github.com/docsearch-core/docsearch/internal/textnorm"
)

// OCRCollaborator extracts raw text from an image. Implementations call
// out to an external OCR engine/service.
type OCRCollaborator interface {
	OCR(ctx context.Context, imageBytes []byte, mime string) (text string, err error)
}

// CaptionCollaborator produces a short free-form description plus a list
// of detected labels for an image. Implementations call out to an
// external vision/captioning service.
type CaptionCollaborator interface {
	Caption(ctx context.Context, imageBytes []byte, mime string) (caption string, labels []string, err error)
}

// Result is the C5 output bundle, ready to populate a Chunk's image-derived
// fields.
type Result struct {
	OCRText                    string
	OCRTextNormalized          string
	Caption                    string
	ImageDescriptionNormalized string
	ImageLabels                []string
	CaptionEmbedding           embedclient.Vector
	SearchableText             string
}

// Processor runs the OCR -> caption -> normalize -> embed pipeline over an
// image. Any of ocr/caption may be nil, and either collaborator call may
// fail: both cases degrade that field to its zero value rather than
// failing Process.
type Processor struct {
	ocr      OCRCollaborator
	caption  CaptionCollaborator
	embedder embedclient.Embedder
	logger   *slog.Logger
}

// New constructs a Processor. ocr and caption may be nil to run in a
// permanently degraded mode for that collaborator (e.g. no OCR engine
// configured). logger defaults to slog.Default() if nil.
func New(ocr OCRCollaborator, caption CaptionCollaborator, embedder embedclient.Embedder, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{ocr: ocr, caption: caption, embedder: embedder, logger: logger}
}

// Process runs the full C5 pipeline over one image. It never returns an
// error for a collaborator failure — the image is always ingestable, only
// the image-text-derived search paths may be absent.
func (p *Processor) Process(ctx context.Context, imageBytes []byte, mime string) Result {
	var res Result

	if p.ocr != nil {
		text, err := p.ocr.OCR(ctx, imageBytes, mime)
		if err != nil {
			p.logger.Warn("ocr collaborator failed, degrading to empty ocr text", "error", err)
		} else {
			res.OCRText = text
		}
	}

	var labels []string
	if p.caption != nil {
		caption, imgLabels, err := p.caption.Caption(ctx, imageBytes, mime)
		if err != nil {
			p.logger.Warn("caption collaborator failed, degrading to empty caption", "error", err)
		} else {
			res.Caption = caption
			labels = imgLabels
		}
	}
	res.ImageLabels = labels

	res.OCRTextNormalized = textnorm.Normalize(res.OCRText)
	res.ImageDescriptionNormalized = textnorm.Normalize(res.Caption)
	res.SearchableText = textnorm.CreateSearchableText("", res.OCRTextNormalized, res.ImageDescriptionNormalized, res.ImageLabels)

	if res.ImageDescriptionNormalized != "" && p.embedder != nil {
		vec, err := p.embedder.EmbedImageCaption(ctx, res.ImageDescriptionNormalized)
		if err != nil {
			p.logger.Warn("caption embedding unavailable, chunk will be lexical-only", "error", err)
		} else {
			res.CaptionEmbedding = vec
		}
	}

	return res
}
