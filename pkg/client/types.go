package client

// Confidence bands of a result.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// Result is one ranked clip.
type Result struct {
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
	Confidence   string         `json:"confidence"`
	Metadata     map[string]any `json:"metadata"`
}

// Dialogue is a spoken line of a clip.
type Dialogue struct {
	Start         float64  `json:"timestamp_start_sec"`
	End           float64  `json:"timestamp_end_sec"`
	Actor         string   `json:"actor"`
	Text          string   `json:"text"`
	ActualDialogs []string `json:"actual_dialogs,omitempty"`
}

// Clip is the full detail of an indexed clip.
type Clip struct {
	ID           string         `json:"clip_id"`
	PointID      string         `json:"point_id"`
	SceneID      string         `json:"scene_id"`
	Start        float64        `json:"start"`
	End          float64        `json:"end"`
	StartDisplay string         `json:"start_display"`
	EndDisplay   string         `json:"end_display"`
	Location     string         `json:"location"`
	TimeOfDay    string         `json:"time_of_day"`
	IntExt       string         `json:"int_ext"`
	Actors       []string       `json:"actors"`
	Description  []string       `json:"clip_description"`
	Dialogue     []Dialogue     `json:"dialogue"`
	Snippet      string         `json:"snippet"`
	Transcript   string         `json:"text"`
	Metadata     map[string]any `json:"metadata"`
}

// Filters are the structured constraints the server derived from a query.
type Filters struct {
	Must    map[string][]string `json:"must,omitempty"`
	Should  map[string][]string `json:"should,omitempty"`
	MustNot map[string][]string `json:"must_not,omitempty"`
}

// Status is the payload of a stage progress event.
type Status struct {
	// ID is the pipeline stage: parsing, embedding, vector_search, fallback, hybrid_merge, reranking.
	ID      string   `json:"id"`
	Status  string   `json:"status"` // loading or done
	Message string   `json:"message"`
	Intent  string   `json:"intent,omitempty"`
	Filters *Filters `json:"filters,omitempty"`
}

// Event types of a search stream.
const (
	EventStatus  = "data-status"
	EventResults = "results"
	EventError   = "error"
)

// Event is one frame of a search stream. Exactly one of Status, Results or ErrorText is set,
// according to Type.
type Event struct {
	Type      string
	Status    Status
	Results   []Result
	ErrorText string
}

// Health is the server health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
