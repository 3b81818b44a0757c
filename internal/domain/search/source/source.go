package source

// Source is the retrieval pass that produced a candidate.
type Source string

// Retrieval passes.
const (
	// Intent is the primary pass: rewritten intent text with filters applied.
	Intent Source = "intent"
	// Raw is the hybrid pass over the caller's original text.
	Raw Source = "raw"
	// Fallback is the widened pass with filters dropped.
	Fallback Source = "fallback"
	// Fused marks a candidate whose rank came from merging intent and raw passes.
	Fused Source = "fused"
)

// IsValid checks if the source is one of the known passes.
func (s Source) IsValid() bool {
	return s == Intent || s == Raw || s == Fallback || s == Fused
}
