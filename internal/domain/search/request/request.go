package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/footage/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	// DefaultLimit applies when the caller omits a limit.
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 20

	// DefaultInitialK is the candidate pool floor for every retrieval pass.
	DefaultInitialK = 20
	// DefaultPoolMultiplier scales the limit into the candidate pool size.
	DefaultPoolMultiplier = 3
)

// Request is a validated search query.
type Request struct {
	query string
	limit int
}

// New validates the query and clamps limit to [MinLimit, MaxLimit].
// An out-of-range limit is never an error.
func New(query string, limit int) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidInput, MaxQueryLength)
	}
	return Request{query: query, limit: ClampLimit(limit)}, nil
}

// ClampLimit clamps limit to [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	return min(max(limit, MinLimit), MaxLimit)
}

// Query returns the trimmed query text.
func (r Request) Query() string { return r.query }

// Limit returns the clamped result limit, which is also the output cap.
func (r Request) Limit() int { return r.limit }

// InitialK returns the candidate pool size: max(limit*multiplier, floor).
func (r Request) InitialK(multiplier, floor int) int {
	if multiplier <= 0 {
		multiplier = DefaultPoolMultiplier
	}
	if floor <= 0 {
		floor = DefaultInitialK
	}
	return max(r.limit*multiplier, floor)
}
