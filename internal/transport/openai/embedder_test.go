package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.MustRegister()
	os.Exit(m.Run())
}

type embeddingsRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

type embeddingItem struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// embeddingsServer answers /embeddings with reply(req) and records the last request.
func embeddingsServer(t *testing.T, reply func(req embeddingsRequest) (int, any)) (*httptest.Server, *embeddingsRequest) {
	t.Helper()
	var last embeddingsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&last))

		status, body := reply(last)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func embeddingsBody(items []embeddingItem, tokens int) map[string]any {
	return map[string]any{
		"object": "list",
		"model":  "text-embedding-3-small",
		"data":   items,
		"usage":  map[string]int{"prompt_tokens": tokens, "total_tokens": tokens},
	}
}

func newTestEmbedder(url string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "sk-test",
		BaseURL:    url,
		Model:      "text-embedding-3-small",
		Dimensions: 3,
		Provider:   "openai",
	})
}

func TestEmbedder_Embed(t *testing.T) {
	srv, req := embeddingsServer(t, func(embeddingsRequest) (int, any) {
		return http.StatusOK, embeddingsBody([]embeddingItem{{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3}}}, 7)
	})

	res, err := newTestEmbedder(srv.URL).Embed(context.Background(), "Tom Hagen at the studio gate")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, res.Embedding)
	assert.Equal(t, 7, res.PromptTokens)
	assert.Equal(t, 7, res.TotalTokens)

	assert.Equal(t, []string{"Tom Hagen at the studio gate"}, req.Input)
	assert.Equal(t, "text-embedding-3-small", req.Model)
	assert.Equal(t, 3, req.Dimensions)
}

func TestEmbedder_BatchEmbed_RestoresInputOrder(t *testing.T) {
	srv, _ := embeddingsServer(t, func(req embeddingsRequest) (int, any) {
		items := make([]embeddingItem, len(req.Input))
		for i := range req.Input {
			// reply in reverse order
			j := len(req.Input) - 1 - i
			items[i] = embeddingItem{Object: "embedding", Index: j, Embedding: []float32{float32(j)}}
		}
		return http.StatusOK, embeddingsBody(items, 12)
	})

	res, err := newTestEmbedder(srv.URL).BatchEmbed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0}, {1}, {2}}, res.Embeddings)
	assert.Equal(t, 12, res.TotalTokens)
}

func TestEmbedder_BatchEmbed_EmptyInputSkipsProvider(t *testing.T) {
	emb := newTestEmbedder("http://127.0.0.1:1")
	res, err := emb.BatchEmbed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Embeddings)
}

func TestEmbedder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantMsg string
	}{
		{"rate limited", http.StatusTooManyRequests,
			map[string]any{"error": map[string]any{"message": "Rate limit reached", "type": "requests"}}, "429"},
		{"gateway detail", http.StatusBadRequest, map[string]any{"detail": "input too long"}, "input too long"},
		{"empty data", http.StatusOK, embeddingsBody(nil, 0), "empty embedding response"},
		{"count mismatch", http.StatusOK,
			embeddingsBody([]embeddingItem{{Object: "embedding", Embedding: []float32{1}}}, 1), "got 1 embeddings for 2 texts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := embeddingsServer(t, func(embeddingsRequest) (int, any) { return tt.status, tt.body })

			_, err := newTestEmbedder(srv.URL).BatchEmbed(context.Background(), []string{"one", "two"})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrEmbedding)
			assert.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestEmbedder_DeadlineStaysInChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestEmbedder(srv.URL).Embed(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestEmbedder_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer srv.Close()
	assert.NoError(t, newTestEmbedder(srv.URL).HealthCheck(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	assert.Error(t, newTestEmbedder(down.URL).HealthCheck(context.Background()))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "timeout"},
		{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, "rate_limit"},
		{&openai.RequestError{HTTPStatusCode: http.StatusBadRequest}, "invalid"},
		{&openai.APIError{HTTPStatusCode: http.StatusBadGateway}, "upstream"},
		{errEmptyResponse, "upstream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorKind(tt.err), "%v", tt.err)
	}
}
