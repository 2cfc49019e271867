package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/docsearch-core/docsearch/internal/errors"
)

const (
	defaultHost    = "http://localhost:11434"
	defaultTimeout = 30 * time.Second
)

// OllamaConfig configures an Ollama-backed Embedder.
type OllamaConfig struct {
	Host                string
	TextModel           string
	CaptionModel        string // defaults to TextModel if empty
	DimText             int
	DimCaption          int
	Timeout             time.Duration
	MaxInputChars       int
	MaxRetries          int
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

// OllamaEmbedder calls Ollama's HTTP /api/embed endpoint. Retries and a
// circuit breaker guard against transient provider failures; once the
// breaker trips, calls fail fast with EmbeddingUnavailable instead of
// hanging the caller.
type OllamaEmbedder struct {
	client        *http.Client
	host          string
	textModel     string
	captionModel  string
	dimText       int
	dimCaption    int
	maxInputChars int
	retryCfg      apperrors.RetryConfig
	breaker       *apperrors.CircuitBreaker
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder constructs an Embedder backed by an Ollama server.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.CaptionModel == "" {
		cfg.CaptionModel = cfg.TextModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxInputChars <= 0 || cfg.MaxInputChars > 8000 {
		cfg.MaxInputChars = 8000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BreakerMaxFailures <= 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerResetTimeout <= 0 {
		cfg.BreakerResetTimeout = 30 * time.Second
	}

	return &OllamaEmbedder{
		client:        &http.Client{Timeout: cfg.Timeout},
		host:          cfg.Host,
		textModel:     cfg.TextModel,
		captionModel:  cfg.CaptionModel,
		dimText:       cfg.DimText,
		dimCaption:    cfg.DimCaption,
		maxInputChars: cfg.MaxInputChars,
		retryCfg: apperrors.RetryConfig{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		breaker: apperrors.NewCircuitBreaker("embedclient.ollama",
			apperrors.WithMaxFailures(cfg.BreakerMaxFailures),
			apperrors.WithResetTimeout(cfg.BreakerResetTimeout),
		),
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (e *OllamaEmbedder) embed(ctx context.Context, model, text string) (Vector, error) {
	text = truncateToChars(text, e.maxInputChars)

	vec, err := apperrors.CircuitExecuteWithResult(e.breaker,
		func() ([]float64, error) {
			return apperrors.RetryWithResult(ctx, e.retryCfg, func() ([]float64, error) {
				return e.doEmbed(ctx, model, text)
			})
		},
		func() ([]float64, error) {
			return nil, apperrors.ErrCircuitOpen
		},
	)
	if err != nil {
		return nil, apperrors.EmbeddingUnavailable(fmt.Sprintf("embedding provider unavailable for model %q", model), err)
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return normalizeVector(out), nil
}

func (e *OllamaEmbedder) doEmbed(ctx context.Context, model, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: model, Input: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed request failed: status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Embeddings) == 0 {
		return nil, fmt.Errorf("embed response carried no embeddings")
	}
	return parsed.Embeddings[0], nil
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	return e.embed(ctx, e.textModel, text)
}

// EmbedImageCaption implements Embedder.
func (e *OllamaEmbedder) EmbedImageCaption(ctx context.Context, text string) (Vector, error) {
	return e.embed(ctx, e.captionModel, text)
}

// TextDimensions implements Embedder.
func (e *OllamaEmbedder) TextDimensions() int { return e.dimText }

// CaptionDimensions implements Embedder.
func (e *OllamaEmbedder) CaptionDimensions() int { return e.dimCaption }

// Available pings Ollama's tag-listing endpoint.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Close releases the HTTP client's idle connections.
func (e *OllamaEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
