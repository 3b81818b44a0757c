package clip

import (
	"strings"

	"github.com/google/uuid"
)

// Scene is one entry of the scenes JSON corpus.
type Scene struct {
	ID          string           `json:"scene_id"`
	Description SceneDescription `json:"scene_description"`
	Clips       []SceneClip      `json:"clips"`
}

// SceneDescription carries the slugline attributes shared by every clip in a scene.
type SceneDescription struct {
	IntExt    string   `json:"int_ext"`
	Location  string   `json:"location"`
	TimeOfDay string   `json:"time_of_day"`
	Actors    []string `json:"actors_involved"`
}

// SceneClip is a clip as written in the corpus file.
type SceneClip struct {
	ID             string          `json:"clip_id"`
	Description    []string        `json:"clip_description"`
	Actors         []string        `json:"actors_involved"`
	Dialogue       []SceneDialogue `json:"dialogue"`
	EstimatedStart Seconds         `json:"estimated_clip_start"`
	EstimatedEnd   Seconds         `json:"estimated_clip_end"`
}

// SceneDialogue is a dialogue line as written in the corpus file.
type SceneDialogue struct {
	Start         Seconds  `json:"timestamp_start_sec"`
	End           Seconds  `json:"timestamp_end_sec"`
	Actor         string   `json:"actor"`
	Text          string   `json:"text"`
	ActualDialogs []string `json:"actual_dialogs"`
}

// PointID derives the stable vector point id for a clip id.
func PointID(clipID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(clipID)).String()
}

// Derive returns the indexable clips of a scene. Clips without an id are skipped.
func (s Scene) Derive() []Clip {
	out := make([]Clip, 0, len(s.Clips))
	for _, sc := range s.Clips {
		if strings.TrimSpace(sc.ID) == "" {
			continue
		}
		out = append(out, s.derive(sc))
	}
	return out
}

func (s Scene) derive(sc SceneClip) Clip {
	dialogue := make([]Dialogue, len(sc.Dialogue))
	for i, d := range sc.Dialogue {
		dialogue[i] = Dialogue{
			Start:         float64(d.Start),
			End:           float64(d.End),
			Actor:         d.Actor,
			Text:          d.Text,
			ActualDialogs: d.ActualDialogs,
		}
	}

	start, end := float64(sc.EstimatedStart), float64(sc.EstimatedEnd)
	if len(dialogue) > 0 {
		start, end = dialogue[0].Start, dialogue[0].End
		for _, d := range dialogue[1:] {
			start = min(start, d.Start)
			end = max(end, d.End)
		}
	}
	end = max(end, start)

	return Clip{
		ID:          sc.ID,
		PointID:     PointID(sc.ID),
		SceneID:     s.ID,
		Start:       start,
		End:         end,
		Location:    s.Description.Location,
		TimeOfDay:   s.Description.TimeOfDay,
		IntExt:      s.Description.IntExt,
		Actors:      sc.Actors,
		Description: sc.Description,
		Dialogue:    dialogue,
		Snippet:     snippet(sc),
		Transcript:  s.transcript(sc),
	}
}

// transcript is location, time of day, scene cast, description, then "ACTOR: line" entries.
func (s Scene) transcript(sc SceneClip) string {
	parts := []string{
		s.Description.Location,
		s.Description.TimeOfDay,
		strings.Join(s.Description.Actors, " "),
		strings.Join(sc.Description, " "),
	}
	for _, d := range sc.Dialogue {
		line := d.Actor + ": " + d.Text
		if len(d.ActualDialogs) > 0 {
			line += " " + strings.ReplaceAll(strings.Join(d.ActualDialogs, " "), "\n", " ")
		}
		parts = append(parts, line)
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

func snippet(sc SceneClip) string {
	if len(sc.Dialogue) > 0 && sc.Dialogue[0].Text != "" {
		return truncateRunes(sc.Dialogue[0].Text, SnippetMaxRunes)
	}
	if len(sc.Description) > 0 {
		return truncateRunes(strings.Join(sc.Description, " "), SnippetMaxRunes)
	}
	return ""
}
