package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/metrics"
)

// Config holds the provider settings shared by the embedder and the understander.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// Embedder calls POST /embeddings on an OpenAI-compatible endpoint.
// It implements domain.Vectorizer and domain.HealthChecker.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

var _ domain.Vectorizer = (*Embedder)(nil)

// NewEmbedder creates an embedder from cfg.
func NewEmbedder(cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:     newClient(cfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed vectorizes a single text.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	batch, err := e.call(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    batch.Embeddings[0],
		PromptTokens: batch.PromptTokens,
		TotalTokens:  batch.TotalTokens,
	}, nil
}

// BatchEmbed vectorizes texts in one request. Vectors come back in input
// order whatever order the provider used.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	return e.call(ctx, texts)
}

func (e *Embedder) call(ctx context.Context, input []string) (domain.BatchEmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          input,
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)

	if err == nil {
		err = checkCount(len(resp.Data), len(input))
	}
	if err != nil {
		err = providerError(err)
		e.record(elapsed, len(input), err)
		return domain.BatchEmbeddingResult{}, err
	}
	e.record(elapsed, len(input), nil)

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := domain.BatchEmbeddingResult{
		Embeddings:   make([][]float32, len(data)),
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	for i := range data {
		out.Embeddings[i] = data[i].Embedding
	}

	if out.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(out.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(out.TotalTokens))
	}
	e.logger.Debug("Embeddings created",
		zap.Int("inputs", len(input)),
		zap.Int("tokens", out.TotalTokens),
		zap.Duration("duration", elapsed),
	)
	return out, nil
}

var errEmptyResponse = errors.New("empty embedding response")

func checkCount(got, want int) error {
	switch {
	case got == 0:
		return errEmptyResponse
	case got != want:
		return fmt.Errorf("got %d embeddings for %d texts", got, want)
	}
	return nil
}

func (e *Embedder) record(elapsed time.Duration, inputs int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, errorKind(err)).Inc()
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, status).Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(elapsed.Seconds())
	metrics.EmbeddingBatchInputs.WithLabelValues(e.provider, e.model).Observe(float64(inputs))
}

// errorKind buckets a provider failure for the errors_total metric.
func errorKind(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	switch status := httpStatus(err); {
	case status == http.StatusTooManyRequests:
		return "rate_limit"
	case status >= 400 && status < 500:
		return "invalid"
	}
	return "upstream"
}

func httpStatus(err error) int {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// providerError tags err with domain.ErrEmbedding and domain.ErrEmbeddingProviderError
// and surfaces the provider's message. The cause stays in the chain.
func providerError(err error) error {
	msg := ""
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &reqErr):
		msg = errorDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		msg = fmt.Sprintf("status %d: %s", reqErr.HTTPStatusCode, msg)
	case errors.As(err, &apiErr):
		msg = fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	if msg == "" {
		return fmt.Errorf("%w: %w: %w", domain.ErrEmbedding, domain.ErrEmbeddingProviderError, err)
	}
	return fmt.Errorf("%w: %w: %s: %w", domain.ErrEmbedding, domain.ErrEmbeddingProviderError, msg, err)
}

// errorDetail reads the {"detail": "..."} body some gateways return instead of an OpenAI error object.
func errorDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	return parsed.Detail
}
