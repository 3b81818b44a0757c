package result

import (
	"github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/source"
)

// SentinelScore is the neutral raw score given to every candidate when reranking is unavailable.
const SentinelScore = 0.0

// Candidate is a retrieval hit. Query-scoped, never persisted.
type Candidate struct {
	Clip       clip.Clip
	Rank       int // 1-based position in the pass that produced it
	Similarity float64
	Source     source.Source
}

// ClipID returns the referenced clip id.
func (c Candidate) ClipID() string { return c.Clip.ID }

// IDs returns candidate clip ids in order.
func IDs(cs []Candidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.Clip.ID
	}
	return ids
}

// Confidence is a coarse label derived from the absolute rerank score.
type Confidence string

// Confidence bands.
const (
	High   Confidence = "High"
	Medium Confidence = "Medium"
	Low    Confidence = "Low"
)

// Ranked is one entry of the final, ordered search output.
type Ranked struct {
	ClipID       string         `json:"clip_id"`
	SceneID      string         `json:"scene_id"`
	VideoID      string         `json:"video_id"`
	Start        float64        `json:"start"`
	End          float64        `json:"end"`
	StartDisplay string         `json:"start_display"`
	EndDisplay   string         `json:"end_display"`
	Snippet      string         `json:"snippet"`
	Text         string         `json:"text"`
	Score        float64        `json:"score"`
	MatchScore   float64        `json:"match_score"`
	Confidence   Confidence     `json:"confidence"`
	Metadata     map[string]any `json:"metadata"`
}

// NewRanked builds a result entry from a clip and its scores.
func NewRanked(c clip.Clip, score, matchScore float64, conf Confidence) Ranked {
	return Ranked{
		ClipID:       c.ID,
		SceneID:      c.SceneID,
		VideoID:      c.SceneID,
		Start:        c.Start,
		End:          c.End,
		StartDisplay: c.StartDisplay(),
		EndDisplay:   c.EndDisplay(),
		Snippet:      c.Snippet,
		Text:         c.DisplayText(),
		Score:        score,
		MatchScore:   matchScore,
		Confidence:   conf,
		Metadata:     c.Metadata(),
	}
}
