// Package model defines the shared data types of the retrieval core:
// Resource, Chunk, and the supporting enums every other package builds on.
package model

import "time"

// FileKind is the tagged variant dispatched on during ingestion parsing.
// Adding a new ingestible format means adding a variant here plus a parser
// table entry in internal/ingest — never a new branch scattered elsewhere.
type FileKind string

const (
	FileKindPDF   FileKind = "pdf"
	FileKindCSV   FileKind = "csv"
	FileKindImage FileKind = "image"
	FileKindText  FileKind = "text"
	FileKindOther FileKind = "other"
)

// ChunkType identifies the structural position a Chunk occupies within its
// parent Resource.
type ChunkType string

const (
	ChunkTypeText   ChunkType = "text"
	ChunkTypePage   ChunkType = "page"
	ChunkTypeRow    ChunkType = "row"
	ChunkTypeCell   ChunkType = "cell"
	ChunkTypeRegion ChunkType = "region"
	// ChunkTypeSchema marks the single per-resource part holding column
	// statistics for a CSV resource, alongside its per-row parts.
	ChunkTypeSchema ChunkType = "schema"
)

// BBox is an image region: x, y, width, height.
type BBox struct {
	X, Y, W, H float64
}

// Structured is the denormalized metadata shape shared by Resource and
// Chunk (scoped to the whole resource or to a single chunk respectively).
type Structured struct {
	Vendor       string
	Currency     string // ISO-ish code, uppercase A-Z when present
	AmountsCents []int64
	Entities     []string
	Keywords     []string
	Dates        []time.Time
	InvoiceNo    string
}

// Resource is one uploaded artifact plus its aggregate, denormalized
// metadata. (tenant_id, uri) is unique; owner_id is immutable after
// creation.
type Resource struct {
	ResourceID string
	URI        string
	TenantID   string
	OwnerID    string

	Name        string
	Description string
	MimeType    string
	FileType    FileKind
	SizeBytes   int64

	Summary string
	Content string
	Tags    []string

	Structured

	FileID   string
	FilePath string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a single searchable subunit of a Resource.
type Chunk struct {
	ChunkID    string
	ResourceID string
	TenantID   string // denormalized copy of the parent's tenant_id

	ChunkType  ChunkType
	ChunkIndex int // monotonic within the resource

	PageNumber *int
	RowIndex   *int
	ColIndex   *int
	BBox       *BBox

	Text        string
	OCRText     string
	Caption     string
	ImageLabels []string

	TextNormalized    string
	OCRTextNormalized string
	SearchableText    string

	Structured
	FileType FileKind // copied from parent for index-side filtering

	TextEmbedding    []float32 // unit-norm, length D_t when present
	CaptionEmbedding []float32 // unit-norm, length D_c when present

	// EmbeddingMissing flags a chunk whose text_embedding could not be
	// computed at ingestion time (EmbeddingUnavailable); a background
	// reconciler may retry.
	EmbeddingMissing bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Preview returns a short, displayable excerpt of the chunk's primary text,
// used to populate chunk_text in search results.
func (c *Chunk) Preview(maxRunes int) string {
	text := c.Text
	if text == "" {
		text = c.OCRText
	}
	if text == "" {
		text = c.Caption
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}
