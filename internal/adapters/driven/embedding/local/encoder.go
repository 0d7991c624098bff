// Package local provides an embedding service adapter over a local
// sentence-encoder inference server.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driven"
)

// Ensure Encoder implements the interface.
var _ driven.EmbeddingService = (*Encoder)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "minilm"
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit bounds inference requests per second so batch
	// ingestion cannot saturate the encoder process.
	DefaultRateLimit = 16
)

// ModelInfo describes one sentence-encoder model the adapter can bind.
type ModelInfo struct {
	// Name is the model identifier the inference server expects.
	Name string

	// Dimensions is the fixed output vector length.
	Dimensions int
}

// Models maps short model names to their encoder bindings. The encoder
// mean-pools token embeddings server-side; the adapter L2-normalizes
// the result so stored and query vectors compare by dot product.
var Models = map[string]ModelInfo{
	"minilm": {Name: "all-minilm", Dimensions: 384},
	"mpnet":  {Name: "all-mpnet-base-v2", Dimensions: 768},
}

// Config holds configuration for the local encoder.
type Config struct {
	// BaseURL is the inference server base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the short model name (default: minilm).
	Model string

	// Timeout is the per-request timeout (default: 60s). The first
	// request may block on model load.
	Timeout time.Duration

	// RateLimit caps inference requests per second (default: 16).
	RateLimit float64
}

// Encoder generates embeddings via a local sentence-encoder server.
// It is safe for concurrent use; the limiter serializes excess
// pressure.
type Encoder struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	model     ModelInfo
	shortName string
}

// embedRequest is the inference API request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the inference API response format.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEncoder creates a local encoder binding for the configured model.
// Unknown short names fail immediately rather than at first embed.
func NewEncoder(cfg Config) (*Encoder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}

	model, ok := Models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("unknown embedding model %q", cfg.Model)
	}

	return &Encoder{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		baseURL:   cfg.BaseURL,
		model:     model,
		shortName: cfg.Model,
	}, nil
}

// Embed generates a unit-normalized vector embedding for the text.
func (e *Encoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	reqBody := embedRequest{
		Model:  e.model.Name,
		Prompt: text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/api/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("encoder error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("encoder error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(embedResp.Embedding) != e.model.Dimensions {
		return nil, fmt.Errorf("encoder returned %d dims, model %s expects %d",
			len(embedResp.Embedding), e.shortName, e.model.Dimensions)
	}

	return normalize(embedResp.Embedding), nil
}

// EmbedBatch generates embeddings for multiple texts.
// The server exposes no batch endpoint, so texts are embedded
// sequentially under the shared rate limiter.
func (e *Encoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (e *Encoder) Dimensions() int {
	return e.model.Dimensions
}

// ModelName returns the short name of the bound model.
func (e *Encoder) ModelName() string {
	return e.shortName
}

// Ping validates the server is reachable via its /api/tags endpoint,
// without running inference.
func (e *Encoder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("encoder: failed to create ping request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("encoder: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("encoder: status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("encoder: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (e *Encoder) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// normalize converts to float32 and L2-normalizes. Accumulation is in
// float64; a zero vector is returned unchanged.
func normalize(in []float64) []float32 {
	var mag float64
	for _, v := range in {
		mag += v * v
	}
	mag = math.Sqrt(mag)

	out := make([]float32, len(in))
	if mag == 0 {
		for i, v := range in {
			out[i] = float32(v)
		}
		return out
	}
	for i, v := range in {
		out[i] = float32(v / mag)
	}
	return out
}
