package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
	"github.com/kailas-cloud/footage/internal/domain/search/source"
)

// DefaultFallbackMin is the filtered candidate count below which retrieval is widened.
const DefaultFallbackMin = 5

// RetrieveFunc runs an unfiltered retrieval.
type RetrieveFunc func(ctx context.Context) ([]result.Candidate, error)

// Fallback widens over-constrained filtered retrieval.
// Capacity is the pool size the widened list may fill up to; Threshold is the minimum.
type Fallback struct {
	Threshold int
	Capacity  int
}

// NeedsWidening reports whether a filtered retrieval must be widened.
func (f Fallback) NeedsWidening(filters filter.Set, filtered []result.Candidate) bool {
	return !filters.IsEmpty() && len(filtered) < f.threshold()
}

// Resolve returns filtered unchanged when it is large enough or no filter was applied.
// Otherwise it runs raw without filters and appends unseen hits in raw order after
// the filtered ones, until the list reaches max(Threshold, Capacity) or raw is exhausted.
// Filtered hits always outrank widened hits.
func (f Fallback) Resolve(
	ctx context.Context, filters filter.Set, filtered []result.Candidate, raw RetrieveFunc,
) ([]result.Candidate, error) {
	if !f.NeedsWidening(filters, filtered) {
		return filtered, nil
	}

	unfiltered, err := raw(ctx)
	if err != nil {
		return filtered, fmt.Errorf("unfiltered retrieval: %w", err)
	}

	target := max(f.threshold(), f.Capacity)
	out := make([]result.Candidate, 0, target)
	seen := make(map[string]struct{}, target)
	for _, c := range filtered {
		if _, dup := seen[c.ClipID()]; dup {
			continue
		}
		seen[c.ClipID()] = struct{}{}
		out = append(out, c)
	}
	for _, c := range unfiltered {
		if len(out) >= target {
			break
		}
		if _, dup := seen[c.ClipID()]; dup {
			continue
		}
		seen[c.ClipID()] = struct{}{}
		c.Source = source.Fallback
		out = append(out, c)
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (f Fallback) threshold() int {
	if f.Threshold <= 0 {
		return DefaultFallbackMin
	}
	return f.Threshold
}
