package search

import "github.com/kailas-cloud/footage/internal/domain/search/result"

// Default confidence thresholds on the raw rerank score.
const (
	DefaultHighThreshold = 0.5
	DefaultLowThreshold  = 0.35
)

// Scored is a candidate index with its raw and batch-normalized scores.
type Scored struct {
	Index      int
	Raw        float64
	Match      float64
	Confidence result.Confidence
	// Reranked is false for candidates the reranker returned no score for.
	Reranked bool
}

// Normalizer computes batch-relative match scores and absolute confidence bands.
type Normalizer struct {
	High float64
	Low  float64
}

// Normalize fills Match and Confidence in place and returns the slice.
// A single-item batch gets 1.0; a uniform multi-item batch gets 0.5.
func (n Normalizer) Normalize(batch []Scored) []Scored {
	if len(batch) == 0 {
		return batch
	}

	lo, hi := batch[0].Raw, batch[0].Raw
	for _, s := range batch[1:] {
		lo = min(lo, s.Raw)
		hi = max(hi, s.Raw)
	}

	for i := range batch {
		switch {
		case len(batch) == 1:
			batch[i].Match = 1.0
		case hi == lo:
			batch[i].Match = 0.5
		default:
			batch[i].Match = (batch[i].Raw - lo) / (hi - lo)
		}
		batch[i].Confidence = n.Classify(batch[i].Raw)
	}
	return batch
}

// Classify maps a raw score to a confidence band.
func (n Normalizer) Classify(raw float64) result.Confidence {
	switch {
	case raw >= n.High:
		return result.High
	case raw >= n.Low:
		return result.Medium
	default:
		return result.Low
	}
}
