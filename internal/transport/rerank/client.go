// Package rerank is a client for Cohere-style /rerank endpoints
// (SiliconFlow, Jina, Cohere v1 and compatible gateways).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/usecase/search"
)

const maxErrorBody = 512

// Config holds the rerank endpoint settings.
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client calls a rerank API. It implements search.Reranker.
type Client struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
	logger *zap.Logger
}

var _ search.Reranker = (*Client)(nil)

// New creates a rerank client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rerank url is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("rerank model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

type request struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	ReturnDocuments bool     `json:"return_documents"`
	TopN            int      `json:"top_n,omitempty"`
}

type response struct {
	Results []struct {
		Index          int      `json:"index"`
		RelevanceScore *float64 `json:"relevance_score"`
		Score          *float64 `json:"score"`
	} `json:"results"`
}

// Rerank scores every document against query. Any failure wraps domain.ErrRerankDegraded.
// Results referencing an out-of-range index are dropped.
func (c *Client) Rerank(ctx context.Context, query string, documents []string) ([]search.RerankScore, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(request{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", domain.ErrRerankDegraded, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrRerankDegraded, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankDegraded, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRerankDegraded, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrRerankDegraded, err)
	}

	out := make([]search.RerankScore, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			continue
		}
		var score float64
		switch {
		case r.RelevanceScore != nil:
			score = *r.RelevanceScore
		case r.Score != nil:
			score = *r.Score
		}
		out = append(out, search.RerankScore{Index: r.Index, Score: score})
	}

	c.logger.Debug("Rerank completed",
		zap.Int("documents", len(documents)),
		zap.Int("scored", len(out)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// HealthCheck probes the endpoint with a one-document request.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.Rerank(ctx, "ping", []string{"ping"}); err != nil {
		return fmt.Errorf("rerank probe: %w", err)
	}
	return nil
}
