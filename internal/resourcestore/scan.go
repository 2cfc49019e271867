package resourcestore

import (
	"database/sql"
	"encoding/json"
	"time"

	apperrors "github.com/docsearch-core/docsearch/internal/errors"
	"github.com/docsearch-core/docsearch/internal/model"
)

const resourceColumns = `resource_id, tenant_id, owner_id, uri, name, description, mime_type,
	file_type, size_bytes, summary, content, tags_json, vendor, currency, amounts_json,
	entities_json, keywords_json, invoice_no, file_id, file_path, created_at, updated_at`

// row is the subset of *sql.Row / *sql.Rows that Scan needs, so
// scanResource works against either a single-row QueryRow or a
// multi-row Query iteration.
type row interface {
	Scan(dest ...interface{}) error
}

// scanResource materializes one resources-table row into a
// model.Resource. Returns (nil, nil) when the row doesn't exist.
func scanResource(r row) (*model.Resource, error) {
	var res model.Resource
	var fileType string
	var tagsJSON, amountsJSON, entitiesJSON, keywordsJSON string
	var createdAt, updatedAt string

	err := r.Scan(&res.ResourceID, &res.TenantID, &res.OwnerID, &res.URI, &res.Name, &res.Description,
		&res.MimeType, &fileType, &res.SizeBytes, &res.Summary, &res.Content, &tagsJSON, &res.Vendor,
		&res.Currency, &amountsJSON, &entitiesJSON, &keywordsJSON, &res.InvoiceNo, &res.FileID,
		&res.FilePath, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StoreError("scanning resource row", err)
	}

	res.FileType = model.FileKind(fileType)
	_ = json.Unmarshal([]byte(tagsJSON), &res.Tags)
	_ = json.Unmarshal([]byte(amountsJSON), &res.AmountsCents)
	_ = json.Unmarshal([]byte(entitiesJSON), &res.Entities)
	_ = json.Unmarshal([]byte(keywordsJSON), &res.Keywords)
	res.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	res.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &res, nil
}
