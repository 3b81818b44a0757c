package clip

import (
	"strings"

	"github.com/kailas-cloud/footage/internal/domain/search/filter"
)

// SnippetMaxRunes caps the preview text shown on result cards.
const SnippetMaxRunes = 120

// Dialogue is a single spoken line inside a clip.
type Dialogue struct {
	Start         float64  `json:"timestamp_start_sec"`
	End           float64  `json:"timestamp_end_sec"`
	Actor         string   `json:"actor"`
	Text          string   `json:"text"`
	ActualDialogs []string `json:"actual_dialogs,omitempty"`
}

// Clip is an indexed footage segment. Immutable once indexed.
type Clip struct {
	ID          string     `json:"clip_id"`
	PointID     string     `json:"point_id"`
	SceneID     string     `json:"scene_id"`
	Start       float64    `json:"start"`
	End         float64    `json:"end"`
	Location    string     `json:"location"`
	TimeOfDay   string     `json:"time_of_day"`
	IntExt      string     `json:"int_ext"`
	Actors      []string   `json:"actors"`
	Description []string   `json:"clip_description"`
	Dialogue    []Dialogue `json:"dialogue"`
	Snippet     string     `json:"snippet"`
	// Transcript is the text embedded at index time and scored by the reranker.
	Transcript string `json:"text"`
}

// Attribute implements filter.Attributes.
func (c Clip) Attribute(f filter.Field) []string {
	switch f {
	case filter.FieldSceneID:
		return nonEmpty(c.SceneID)
	case filter.FieldLocation:
		return nonEmpty(c.Location)
	case filter.FieldTimeOfDay:
		return nonEmpty(c.TimeOfDay)
	case filter.FieldIntExt:
		return nonEmpty(c.IntExt)
	case filter.FieldActors:
		return c.Actors
	default:
		return nil
	}
}

func nonEmpty(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return []string{v}
}

// DisplayText is the matched passage shown to users: the visual description, else the snippet.
func (c Clip) DisplayText() string {
	if d := strings.TrimSpace(strings.Join(c.Description, " ")); d != "" {
		return d
	}
	return c.Snippet
}

// RerankDocument is the text the reranker scores.
func (c Clip) RerankDocument() string {
	switch {
	case c.Transcript != "":
		return c.Transcript
	case c.Snippet != "":
		return c.Snippet
	default:
		return "(no text)"
	}
}

// StartDisplay formats Start for display.
func (c Clip) StartDisplay() string { return FormatTimecode(c.Start) }

// EndDisplay formats End for display.
func (c Clip) EndDisplay() string { return FormatTimecode(c.End) }

// Metadata flattens the clip into the map returned with every result.
func (c Clip) Metadata() map[string]any {
	return map[string]any{
		"clip_id":          c.ID,
		"point_id":         c.PointID,
		"scene_id":         c.SceneID,
		"location":         c.Location,
		"time_of_day":      c.TimeOfDay,
		"int_ext":          c.IntExt,
		"actors":           c.Actors,
		"clip_description": c.Description,
		"dialogue":         c.Dialogue,
		"start":            c.Start,
		"end":              c.End,
		"start_display":    c.StartDisplay(),
		"end_display":      c.EndDisplay(),
		"snippet":          c.Snippet,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Embedded pairs a clip with the vector it is indexed under.
type Embedded struct {
	Clip   Clip
	Vector []float32
}
