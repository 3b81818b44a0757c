package domain

import "errors"

// Pipeline error kinds. Adapters wrap one of these so callers can branch with errors.Is.
var (
	// ErrInvalidInput signals a request rejected before any external call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnderstanding signals malformed or unavailable query understanding output.
	ErrUnderstanding = errors.New("query understanding failed")
	// ErrEmbedding signals an embedding provider failure.
	ErrEmbedding = errors.New("embedding failed")
	// ErrRetrieval signals a vector store failure.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrRerankDegraded signals the reranker could not score; never fatal.
	ErrRerankDegraded = errors.New("rerank degraded")
	// ErrTimeout signals an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProviderError signals a provider-level API error (status, quota, transport).
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
