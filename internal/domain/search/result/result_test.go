package result

import (
	"testing"

	"github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/source"
)

func TestNewRanked(t *testing.T) {
	c := clip.Clip{
		ID:          "scene_1_clip_1",
		SceneID:     "1",
		Start:       62,
		End:         3661,
		Description: []string{"Guests dance."},
		Snippet:     "Hey, come on.",
	}

	r := NewRanked(c, 0.8, 1.0, High)

	if r.ClipID != "scene_1_clip_1" || r.SceneID != "1" || r.VideoID != "1" {
		t.Errorf("ids = %q/%q/%q", r.ClipID, r.SceneID, r.VideoID)
	}
	if r.StartDisplay != "1:02" || r.EndDisplay != "1:01:01" {
		t.Errorf("display = %q/%q", r.StartDisplay, r.EndDisplay)
	}
	if r.Text != "Guests dance." {
		t.Errorf("Text = %q", r.Text)
	}
	if r.Snippet == r.Text {
		t.Error("snippet must stay distinct from display text")
	}
	if r.Score != 0.8 || r.MatchScore != 1.0 || r.Confidence != High {
		t.Errorf("scores = %v/%v/%v", r.Score, r.MatchScore, r.Confidence)
	}
	if r.Metadata["clip_id"] != "scene_1_clip_1" {
		t.Errorf("Metadata = %v", r.Metadata)
	}
}

func TestIDs(t *testing.T) {
	cs := []Candidate{
		{Clip: clip.Clip{ID: "a"}, Rank: 1, Source: source.Intent},
		{Clip: clip.Clip{ID: "b"}, Rank: 2, Source: source.Fallback},
	}
	ids := IDs(cs)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs() = %v", ids)
	}
}
