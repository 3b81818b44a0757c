package search

import (
	"math"
	"testing"

	"github.com/kailas-cloud/footage/internal/domain/search/result"
)

func batch(raws ...float64) []Scored {
	out := make([]Scored, len(raws))
	for i, r := range raws {
		out[i] = Scored{Index: i, Raw: r}
	}
	return out
}

func TestNormalize_MinMax(t *testing.T) {
	n := Normalizer{High: 0.7, Low: 0.4}
	got := n.Normalize(batch(0.2, 0.5, 0.8))
	want := []float64{0.0, 0.5, 1.0}
	for i := range got {
		if math.Abs(got[i].Match-want[i]) > 1e-9 {
			t.Errorf("match[%d] = %v, want %v", i, got[i].Match, want[i])
		}
	}
}

func TestNormalize_SingleItem(t *testing.T) {
	for _, raw := range []float64{-3, 0, 0.42, 9} {
		got := Normalizer{}.Normalize(batch(raw))
		if got[0].Match != 1.0 {
			t.Errorf("raw %v: match = %v, want 1.0", raw, got[0].Match)
		}
	}
}

func TestNormalize_UniformBatch(t *testing.T) {
	got := Normalizer{High: 0.5, Low: 0.35}.Normalize(batch(0, 0, 0))
	for i, s := range got {
		if s.Match != 0.5 {
			t.Errorf("match[%d] = %v, want 0.5", i, s.Match)
		}
		if s.Confidence != result.Low {
			t.Errorf("confidence[%d] = %v, want Low", i, s.Confidence)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	if got := (Normalizer{}).Normalize(nil); len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestClassify(t *testing.T) {
	n := Normalizer{High: 0.7, Low: 0.4}
	tests := []struct {
		raw  float64
		want result.Confidence
	}{
		{0.75, result.High},
		{0.7, result.High},
		{0.5, result.Medium},
		{0.4, result.Medium},
		{0.1, result.Low},
	}
	for _, tt := range tests {
		if got := n.Classify(tt.raw); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormalize_ConfidenceUsesRawScore(t *testing.T) {
	// Both raw scores are low; the batch-relative top still gets match 1.0 but stays Low.
	got := Normalizer{High: 0.7, Low: 0.4}.Normalize(batch(0.05, 0.1))
	if got[1].Match != 1.0 || got[1].Confidence != result.Low {
		t.Errorf("top = %+v, want match 1.0 and Low", got[1])
	}
}
