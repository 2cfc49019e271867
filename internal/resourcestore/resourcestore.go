// Package resourcestore implements the resource-store collaborator (C10):
// tenant-scoped, ownership-enforced CRUD over Resources and Chunks, plus
// the lexical fallback scan C8 uses when the compound index (C7) is
// unavailable. Grounded on internal/store/sqlite_bm25.go's modernc.org/
// sqlite wiring (pure-Go driver, WAL mode, single-writer connection pool)
// generalized from an FTS5 document table to the full resource/chunk
// schema this domain needs.
package resourcestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/docsearch-core/docsearch/internal/errors"
	"github.com/docsearch-core/docsearch/internal/model"
	"github.com/docsearch-core/docsearch/internal/search"
	"github.com/docsearch-core/docsearch/internal/textnorm"
)

// Store implements internal/ingest.ResourceStore and internal/search.FallbackStore
// over a single SQLite database file (or :memory: for tests).
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open creates or opens a resource store at path. path == "" opens an
// in-memory database, for tests and ephemeral runs.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("resourcestore: creating directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("resourcestore: opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("resourcestore: setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		resource_id   TEXT PRIMARY KEY,
		tenant_id     TEXT NOT NULL,
		owner_id      TEXT NOT NULL,
		uri           TEXT NOT NULL,
		name          TEXT,
		description   TEXT,
		mime_type     TEXT,
		file_type     TEXT,
		size_bytes    INTEGER,
		summary       TEXT,
		content       TEXT,
		tags_json     TEXT,
		vendor        TEXT,
		currency      TEXT,
		amounts_json  TEXT,
		entities_json TEXT,
		keywords_json TEXT,
		invoice_no    TEXT,
		file_id       TEXT,
		file_path     TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		UNIQUE(tenant_id, uri)
	);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id        TEXT PRIMARY KEY,
		resource_id     TEXT NOT NULL REFERENCES resources(resource_id) ON DELETE CASCADE,
		tenant_id       TEXT NOT NULL,
		chunk_type      TEXT,
		chunk_index     INTEGER,
		page_number     INTEGER,
		row_index       INTEGER,
		col_index       INTEGER,
		bbox_json       TEXT,
		text            TEXT,
		ocr_text        TEXT,
		caption         TEXT,
		searchable_text TEXT,
		vendor          TEXT,
		currency        TEXT,
		amounts_json    TEXT,
		entities_json   TEXT,
		keywords_json   TEXT,
		file_type       TEXT,
		embedding_missing INTEGER,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_resource ON chunks(resource_id);
	CREATE INDEX IF NOT EXISTS idx_resources_tenant ON resources(tenant_id);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("resourcestore: initializing schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertResource implements internal/ingest.ResourceStore: on reingestion
// of an existing (tenant_id, uri), old chunks are deleted, new chunks
// written, and the resource row replaced, all inside one transaction so
// the outcome is never a mix of old and new.
func (s *Store) UpsertResource(ctx context.Context, resource *model.Resource, chunks []*model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.StoreError("beginning upsert transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if resource.ResourceID == "" {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT resource_id FROM resources WHERE tenant_id = ? AND uri = ?`,
			resource.TenantID, resource.URI).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			resource.ResourceID = newID(resource.TenantID, resource.URI)
		case err != nil:
			return apperrors.StoreError("looking up existing resource", err)
		default:
			resource.ResourceID = existing
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE resource_id = ?`, resource.ResourceID); err != nil {
		return apperrors.StoreError("clearing previous chunks", err)
	}

	now := resource.UpdatedAt
	if now.IsZero() {
		now = resource.CreatedAt
	}
	tagsJSON, _ := json.Marshal(resource.Tags)
	amountsJSON, _ := json.Marshal(resource.AmountsCents)
	entitiesJSON, _ := json.Marshal(resource.Entities)
	keywordsJSON, _ := json.Marshal(resource.Keywords)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resources (resource_id, tenant_id, owner_id, uri, name, description, mime_type,
			file_type, size_bytes, summary, content, tags_json, vendor, currency, amounts_json,
			entities_json, keywords_json, invoice_no, file_id, file_path, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(resource_id) DO UPDATE SET
			name=excluded.name, description=excluded.description, mime_type=excluded.mime_type,
			file_type=excluded.file_type, size_bytes=excluded.size_bytes, summary=excluded.summary,
			content=excluded.content, tags_json=excluded.tags_json, vendor=excluded.vendor,
			currency=excluded.currency, amounts_json=excluded.amounts_json,
			entities_json=excluded.entities_json, keywords_json=excluded.keywords_json,
			invoice_no=excluded.invoice_no, file_id=excluded.file_id, file_path=excluded.file_path,
			updated_at=excluded.updated_at`,
		resource.ResourceID, resource.TenantID, resource.OwnerID, resource.URI, resource.Name,
		resource.Description, resource.MimeType, string(resource.FileType), resource.SizeBytes,
		resource.Summary, resource.Content, string(tagsJSON), resource.Vendor, resource.Currency,
		string(amountsJSON), string(entitiesJSON), string(keywordsJSON), resource.InvoiceNo,
		resource.FileID, resource.FilePath, timeOrNow(resource.CreatedAt).Format(time.RFC3339Nano),
		timeOrNow(now).Format(time.RFC3339Nano))
	if err != nil {
		return apperrors.StoreError("upserting resource row", err)
	}

	for _, c := range chunks {
		c.ResourceID = resource.ResourceID
		if err := insertChunk(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.StoreError("committing upsert transaction", err)
	}
	return nil
}

func insertChunk(ctx context.Context, tx *sql.Tx, c *model.Chunk) error {
	bboxJSON, _ := json.Marshal(c.BBox)
	amountsJSON, _ := json.Marshal(c.AmountsCents)
	entitiesJSON, _ := json.Marshal(c.Entities)
	keywordsJSON, _ := json.Marshal(c.Keywords)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO chunks (chunk_id, resource_id, tenant_id, chunk_type, chunk_index, page_number,
			row_index, col_index, bbox_json, text, ocr_text, caption, searchable_text, vendor,
			currency, amounts_json, entities_json, keywords_json, file_type, embedding_missing,
			created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ChunkID, c.ResourceID, c.TenantID, string(c.ChunkType), c.ChunkIndex,
		nullableInt(c.PageNumber), nullableInt(c.RowIndex), nullableInt(c.ColIndex), string(bboxJSON),
		c.Text, c.OCRText, c.Caption, c.SearchableText, c.Vendor, c.Currency, string(amountsJSON),
		string(entitiesJSON), string(keywordsJSON), string(c.FileType), boolToInt(c.EmbeddingMissing),
		timeOrNow(c.CreatedAt).Format(time.RFC3339Nano), timeOrNow(c.UpdatedAt).Format(time.RFC3339Nano))
	if err != nil {
		return apperrors.StoreError(fmt.Sprintf("inserting chunk %s", c.ChunkID), err)
	}
	return nil
}

// DeleteResource removes a resource and its chunks (cascade), enforcing
// tenant ownership: a resource owned by a different tenant is treated as
// not found rather than leaking its existence.
func (s *Store) DeleteResource(ctx context.Context, tenantID, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE resource_id = ? AND tenant_id = ?`, resourceID, tenantID)
	if err != nil {
		return apperrors.StoreError("deleting resource", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.New(apperrors.ErrCodeBadRequest, "resource not found for tenant", nil)
	}
	return nil
}

// GetByURI returns the resource at (tenantID, uri), or nil if absent.
func (s *Store) GetByURI(ctx context.Context, tenantID, uri string) (*model.Resource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE tenant_id = ? AND uri = ?`, tenantID, uri)
	return scanResource(row)
}

// GetByID returns the resource with the given ID, scoped to tenantID.
// Ambiguous ownership (a legacy row with no tenant_id) is treated as deny,
// per spec.md §4.10.
func (s *Store) GetByID(ctx context.Context, tenantID, resourceID string) (*model.Resource, error) {
	if tenantID == "" {
		return nil, apperrors.Forbidden("get_by_id requires a tenant_id", nil)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE tenant_id = ? AND resource_id = ?`, tenantID, resourceID)
	return scanResource(row)
}

// ChunkIDsByResource returns the IDs of every chunk currently persisted
// for (tenantID, resourceID), for consistency-checking against the
// lexical and vector indexes.
func (s *Store) ChunkIDsByResource(ctx context.Context, tenantID, resourceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE tenant_id = ? AND resource_id = ?`, tenantID, resourceID)
	if err != nil {
		return nil, apperrors.StoreError("listing chunk ids for resource", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.StoreError("scanning chunk id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LexicalFallbackSearch implements internal/search.FallbackStore: a
// substring scan over searchable_text ranked by match count, used only
// when the compound index (C7) is unavailable.
func (s *Store) LexicalFallbackSearch(ctx context.Context, tenantID, text string, limit int) ([]search.Result, error) {
	if tenantID == "" {
		return nil, apperrors.Forbidden("lexical fallback search requires a tenant_id", nil)
	}

	needle := textnorm.Normalize(text)
	tokens := textnorm.UniqueTokens(needle)
	if len(tokens) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, resource_id, searchable_text, page_number, row_index
		FROM chunks WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, apperrors.StoreError("scanning chunks for lexical fallback", err)
	}
	defer rows.Close()

	type scored struct {
		result search.Result
		matches int
	}
	best := make(map[string]scored)

	for rows.Next() {
		var chunkID, resourceID, searchableText string
		var pageNumber, rowIndex sql.NullInt64
		if err := rows.Scan(&chunkID, &resourceID, &searchableText, &pageNumber, &rowIndex); err != nil {
			return nil, apperrors.StoreError("reading lexical fallback row", err)
		}

		matches := 0
		for _, tok := range tokens {
			matches += strings.Count(searchableText, tok)
		}
		if matches == 0 {
			continue
		}

		r := search.Result{
			ResourceID: resourceID,
			ChunkID:    chunkID,
			Score:      float64(matches) / float64(len(tokens)),
			MatchType:  search.MatchHybrid,
		}
		if pageNumber.Valid && pageNumber.Int64 > 0 {
			p := int(pageNumber.Int64)
			r.PageNumber = &p
		}
		if rowIndex.Valid {
			ri := int(rowIndex.Int64)
			r.RowIndex = &ri
		}
		r.OpenURL = openURL(resourceID, r.PageNumber, r.RowIndex)

		if existing, ok := best[resourceID]; !ok || matches > existing.matches {
			best[resourceID] = scored{result: r, matches: matches}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreError("iterating lexical fallback rows", err)
	}

	out := make([]search.Result, 0, len(best))
	for _, sc := range best {
		out = append(out, sc.result)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func openURL(resourceID string, page, row *int) string {
	url := fmt.Sprintf("/resources/%s", resourceID)
	sep := "?"
	if page != nil {
		url += fmt.Sprintf("%spage=%d", sep, *page)
		sep = "&"
	}
	if row != nil {
		url += fmt.Sprintf("%srow=%d", sep, *row)
	}
	return url
}

func newID(tenantID, uri string) string {
	return tenantID + ":" + uri
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
