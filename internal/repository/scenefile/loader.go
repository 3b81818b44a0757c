// Package scenefile reads the footage corpus from JSON files on disk.
package scenefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kailas-cloud/footage/internal/domain/clip"
)

// DefaultLinesPerClip is the subtitle lines grouped into one transcript clip.
const DefaultLinesPerClip = 15

// TranscriptSceneID is the scene id given to subtitle-derived clips.
const TranscriptSceneID = "yify_full"

// Load reads a scenes JSON file: an array of scenes or a single scene object.
func Load(path string) ([]clip.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenes: %w", err)
	}
	defer f.Close()

	scenes, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenes, nil
}

// Decode parses scenes from r.
func Decode(r io.Reader) ([]clip.Scene, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scenes: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty scenes file")
	}

	if raw[0] == '{' {
		var one clip.Scene
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("decode scene: %w", err)
		}
		return []clip.Scene{one}, nil
	}

	var scenes []clip.Scene
	if err := json.Unmarshal(raw, &scenes); err != nil {
		return nil, fmt.Errorf("decode scenes: %w", err)
	}
	return scenes, nil
}

// subtitleLine is one entry of a flat subtitle dump: {line, start, end, text}.
type subtitleLine struct {
	Start clip.Seconds `json:"start"`
	End   clip.Seconds `json:"end"`
	Text  string       `json:"text"`
}

// LoadTranscript reads a subtitle JSON file and groups it into clips of linesPerClip lines.
func LoadTranscript(path string, linesPerClip int) ([]clip.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	scenes, err := DecodeTranscript(f, linesPerClip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenes, nil
}

// DecodeTranscript parses subtitle lines into a single transcript scene.
// A leading encoder credit line is dropped. No lines yields no scenes.
func DecodeTranscript(r io.Reader, linesPerClip int) ([]clip.Scene, error) {
	if linesPerClip <= 0 {
		linesPerClip = DefaultLinesPerClip
	}

	var lines []subtitleLine
	if err := json.NewDecoder(r).Decode(&lines); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if len(lines) > 0 {
		first := strings.ToLower(lines[0].Text)
		if strings.Contains(first, "created") && strings.Contains(first, "encoded") {
			lines = lines[1:]
		}
	}

	var clips []clip.SceneClip
	for i := 0; i < len(lines); i += linesPerClip {
		chunk := lines[i:min(i+linesPerClip, len(lines))]

		dialogue := make([]clip.SceneDialogue, 0, len(chunk))
		for _, l := range chunk {
			text := strings.TrimSpace(strings.ReplaceAll(l.Text, "\n", " "))
			end := l.End
			if end == 0 {
				end = l.Start
			}
			d := clip.SceneDialogue{Start: l.Start, End: end, Actor: "Speaker", Text: text}
			if text != "" {
				d.ActualDialogs = []string{text}
			}
			dialogue = append(dialogue, d)
		}

		n := len(clips) + 1
		start, end := float64(dialogue[0].Start), float64(dialogue[len(dialogue)-1].End)
		clips = append(clips, clip.SceneClip{
			ID:          fmt.Sprintf("yify_clip_%d", n),
			Description: []string{fmt.Sprintf("Subtitle segment %d (%.0fs-%.0fs).", n, start, end)},
			Dialogue:    dialogue,
		})
	}
	if len(clips) == 0 {
		return nil, nil
	}

	return []clip.Scene{{
		ID: TranscriptSceneID,
		Description: clip.SceneDescription{
			IntExt:   "MIXED",
			Location: "Full film transcript",
		},
		Clips: clips,
	}}, nil
}

// LoadAll reads the scenes file and, when transcriptPath is set, appends the transcript scene.
// A missing transcript file is not an error.
func LoadAll(scenesPath, transcriptPath string, linesPerClip int) ([]clip.Scene, error) {
	scenes, err := Load(scenesPath)
	if err != nil {
		return nil, err
	}
	if transcriptPath == "" {
		return scenes, nil
	}
	extra, err := LoadTranscript(transcriptPath, linesPerClip)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return scenes, nil
		}
		return nil, err
	}
	return append(scenes, extra...), nil
}
