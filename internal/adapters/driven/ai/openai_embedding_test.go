package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

type embeddingReply struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// embeddingServer answers /embeddings with respond's status and JSON body
func embeddingServer(t *testing.T, respond func(req embeddingsRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, body := respond(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func data(replies ...embeddingReply) map[string]any {
	return map[string]any{"data": replies}
}

func TestNewOpenAIEmbedding(t *testing.T) {
	_, err := NewOpenAIEmbedding("", "text-embedding-3-small", "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	emb, err := NewOpenAIEmbedding("sk-test", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIEmbeddingModel, emb.Model())
	assert.Equal(t, defaultOpenAIBaseURL, emb.baseURL)
	assert.NoError(t, emb.Close())
}

func TestNewOpenAIEmbedding_Dimensions(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		configured int
		want       int
		sendDims   bool
	}{
		{"small native", "text-embedding-3-small", 0, 1536, false},
		{"large native", "text-embedding-3-large", 0, 3072, false},
		{"configured equals native", "text-embedding-3-large", 3072, 3072, false},
		{"shortened", "text-embedding-3-large", 256, 256, true},
		{"unlisted default", "local-minilm", 0, 1536, false},
		{"unlisted configured", "nomic-embed-text", 768, 768, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := NewOpenAIEmbedding("sk-test", tt.model, "", tt.configured)
			require.NoError(t, err)
			assert.Equal(t, tt.want, emb.Dimensions())
			assert.Equal(t, tt.sendDims, emb.sendDims)
		})
	}
}

func TestOpenAIEmbedding_EmbedEmpty(t *testing.T) {
	emb, err := NewOpenAIEmbedding("sk-test", "", "http://127.0.0.1:1", 0)
	require.NoError(t, err)

	out, err := emb.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, out, "no request is made")
}

func TestOpenAIEmbedding_EmbedOrdersByIndex(t *testing.T) {
	srv := embeddingServer(t, func(req embeddingsRequest) (int, any) {
		assert.Equal(t, []string{"hello", "world"}, req.Input)
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Zero(t, req.Dimensions, "native size sends no dimensions")
		return http.StatusOK, data(
			embeddingReply{Index: 1, Embedding: []float32{0.4, 0.5}},
			embeddingReply{Index: 0, Embedding: []float32{0.1, 0.2}},
		)
	})
	emb, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", srv.URL, 0)
	require.NoError(t, err)

	out, err := emb.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.4, 0.5}}, out)
}

func TestOpenAIEmbedding_SendsShortenedDimensions(t *testing.T) {
	srv := embeddingServer(t, func(req embeddingsRequest) (int, any) {
		assert.Equal(t, 8, req.Dimensions)
		return http.StatusOK, data(embeddingReply{Index: 0, Embedding: make([]float32, 8)})
	})
	emb, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-large", srv.URL, 8)
	require.NoError(t, err)

	vec, err := emb.EmbedQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestOpenAIEmbedding_IncompleteReply(t *testing.T) {
	tests := map[string]map[string]any{
		"missing vector": data(embeddingReply{Index: 0, Embedding: []float32{1}}),
		"index overflow": data(embeddingReply{Index: 0, Embedding: []float32{1}}, embeddingReply{Index: 5, Embedding: []float32{1}}),
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			srv := embeddingServer(t, func(embeddingsRequest) (int, any) { return http.StatusOK, reply })
			emb, err := NewOpenAIEmbedding("sk-test", "", srv.URL, 0)
			require.NoError(t, err)

			_, err = emb.Embed(context.Background(), []string{"a", "b"})
			assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
		})
	}
}

func TestOpenAIEmbedding_StatusCategories(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, domain.ErrInvalidInput},
		{http.StatusUnauthorized, domain.ErrInvalidInput},
		{http.StatusTooManyRequests, domain.ErrServiceUnavailable},
		{http.StatusInternalServerError, domain.ErrServiceUnavailable},
		{http.StatusBadGateway, domain.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := embeddingServer(t, func(embeddingsRequest) (int, any) {
				return tt.status, map[string]any{"error": map[string]string{"message": "quota exceeded", "type": "test"}}
			})
			emb, err := NewOpenAIEmbedding("sk-test", "", srv.URL, 0)
			require.NoError(t, err)

			_, err = emb.EmbedQuery(context.Background(), "q")
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "quota exceeded")
			assert.Equal(t, tt.want == domain.ErrServiceUnavailable, domain.IsRetryable(err))
		})
	}
}

func TestOpenAIEmbedding_HealthCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	emb, err := NewOpenAIEmbedding("sk-test", "", url, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, emb.HealthCheck(context.Background()), domain.ErrServiceUnavailable)
}
