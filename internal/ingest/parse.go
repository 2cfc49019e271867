package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/docsearch-core/docsearch/internal/errors"
	"github.com/docsearch-core/docsearch/internal/imageproc"
	"github.com/docsearch-core/docsearch/internal/model"
)

// parse dispatches on fileType to obtain the ordered sequence of parts a
// Resource's bytes decompose into. A parse error is fatal for the
// resource: it is not created.
func (p *Pipeline) parse(fileType model.FileKind, raw []byte, img imageproc.Result) ([]part, error) {
	switch fileType {
	case model.FileKindText, model.FileKindOther:
		return parseText(string(raw), p.cfg.ChunkSizeChars, p.cfg.ChunkOverlapChars), nil
	case model.FileKindPDF:
		return parsePDF(raw)
	case model.FileKindCSV:
		return parseCSV(raw)
	case model.FileKindImage:
		return []part{parseImage(img)}, nil
	default:
		return nil, apperrors.BadRequest(fmt.Sprintf("unsupported file type %q", fileType), nil)
	}
}

// parseText produces a single part for short text, or paragraph-bounded
// parts of ~chunkSize chars with ~overlap chars of trailing context
// carried into the next part, for longer text.
func parseText(text string, chunkSize, overlap int) []part {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if len([]rune(text)) <= chunkSize {
		return []part{{chunkType: model.ChunkTypeText, text: text}}
	}

	paragraphs := strings.Split(text, "\n\n")
	var parts []part
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		parts = append(parts, part{chunkType: model.ChunkTypeText, text: strings.TrimSpace(current.String())})
	}

	for _, para := range paragraphs {
		if current.Len() > 0 && current.Len()+len(para) > chunkSize {
			flush()

			tail := lastNChars(current.String(), overlap)
			current.Reset()
			current.WriteString(tail)
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	if len(parts) == 0 {
		return []part{{chunkType: model.ChunkTypeText, text: text}}
	}
	return parts
}

func lastNChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// parsePDF extracts one part per page via github.com/ledongthuc/pdf.
func parsePDF(raw []byte) ([]part, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeParseFailed, "failed to open pdf", err)
	}

	numPages := reader.NumPage()
	parts := make([]part, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil && err != io.EOF {
			continue // a single unreadable page degrades, not fatal
		}
		pageNum := i
		parts = append(parts, part{chunkType: model.ChunkTypePage, pageNum: &pageNum, text: text})
	}

	if len(parts) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeParseFailed, "pdf carried no extractable pages", nil)
	}
	return parts, nil
}

// parseCSV produces one part per data row plus a trailing schema part
// giving the row and column counts and up to three sample values per
// column.
func parseCSV(raw []byte) ([]part, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, apperrors.New(apperrors.ErrCodeParseFailed, "csv carried no header row", nil)
		}
		return nil, apperrors.New(apperrors.ErrCodeParseFailed, "failed to read csv header", err)
	}

	colSamples := make([][]string, len(header))
	var parts []part
	rowIdx := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.New(apperrors.ErrCodeParseFailed, "failed to read csv row", err)
		}

		var b strings.Builder
		for i, val := range record {
			col := "?"
			if i < len(header) {
				col = header[i]
			}
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", col, val)
			if i < len(colSamples) && len(colSamples[i]) < 3 {
				colSamples[i] = append(colSamples[i], val)
			}
		}

		idx := rowIdx
		parts = append(parts, part{chunkType: model.ChunkTypeRow, rowIndex: &idx, text: b.String()})
		rowIdx++
	}

	parts = append(parts, part{chunkType: model.ChunkTypeSchema, text: buildSchemaSummary(header, colSamples, rowIdx)})
	return parts, nil
}

func buildSchemaSummary(header []string, samples [][]string, rowCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rows, %d columns\n", rowCount, len(header))
	for i, col := range header {
		var sample []string
		if i < len(samples) {
			sample = samples[i]
		}
		fmt.Fprintf(&b, "%s: e.g. %s\n", col, strings.Join(sample, ", "))
	}
	return b.String()
}

// parseImage carries C5's OCR+caption bundle into a single image part.
func parseImage(img imageproc.Result) part {
	return part{
		chunkType: model.ChunkTypeRegion,
		text:      img.OCRText,
		ocrText:   img.OCRText,
		caption:   img.Caption,
		labels:    img.ImageLabels,
	}
}
