package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

const (
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"

	// maxErrorBody bounds how much of a failed response is read for its message
	maxErrorBody = 64 << 10
)

// nativeDimensions lists the output sizes of models that accept a
// smaller "dimensions" request. Unlisted models are assumed to produce
// whatever size is configured.
var nativeDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedding calls a POST /embeddings endpoint in the OpenAI format.
// Ollama and most local servers speak it too.
type OpenAIEmbedding struct {
	baseURL string
	apiKey  string
	model   string
	dims    int

	// sendDims asks the server for dims instead of the native size
	sendDims bool

	http *http.Client
}

// NewOpenAIEmbedding creates the client. dimensions <= 0 keeps the
// model's native size; unknown models default to 1536.
func NewOpenAIEmbedding(apiKey, model, baseURL string, dimensions int) (*OpenAIEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: embedding API key is required", domain.ErrInvalidInput)
	}
	e := &OpenAIEmbedding{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: time.Minute},
	}
	if e.model == "" {
		e.model = defaultOpenAIEmbeddingModel
	}
	if e.baseURL == "" {
		e.baseURL = defaultOpenAIBaseURL
	}

	native, listed := nativeDimensions[e.model]
	switch {
	case dimensions <= 0 && listed:
		e.dims = native
	case dimensions <= 0:
		e.dims = 1536
	case listed && dimensions != native:
		e.dims, e.sendDims = dimensions, true
	default:
		e.dims = dimensions
	}
	return e, nil
}

type embeddingsRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format"`
	Dimensions     int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embed returns one vector per text, in input order. The server may list
// results in any order; each carries its input index.
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := embeddingsRequest{Model: e.model, Input: texts, EncodingFormat: "float"}
	if e.sendDims {
		req.Dimensions = e.dims
	}

	var resp embeddingsResponse
	if err := e.post(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrServiceUnavailable, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("%w: no embedding returned for input %d of %d", domain.ErrServiceUnavailable, i, len(texts))
		}
	}
	return out, nil
}

func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedding) Dimensions() int { return e.dims }

func (e *OpenAIEmbedding) Model() string { return e.model }

// HealthCheck embeds a one-word probe
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "ping")
	return err
}

func (e *OpenAIEmbedding) Close() error {
	e.http.CloseIdleConnections()
	return nil
}

// post sends body as JSON and decodes a 200 reply into out. Transport
// failures, 429 and 5xx replies are ErrServiceUnavailable; any other
// non-200 reply is ErrInvalidInput.
func (e *OpenAIEmbedding) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %w", domain.ErrServiceUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := http.StatusText(resp.StatusCode)
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		category := domain.ErrInvalidInput
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			category = domain.ErrServiceUnavailable
		}
		return fmt.Errorf("%w: POST %s returned %d: %s", category, path, resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", domain.ErrServiceUnavailable, path, err)
	}
	return nil
}
