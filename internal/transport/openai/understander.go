package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/query"
)

// Prompt caps keep the vocabulary section small.
const (
	vocabSceneIDs  = 25
	vocabLocations = 30
	vocabActors    = 40
)

// UnderstanderConfig configures the chat-completion query parser.
type UnderstanderConfig struct {
	Config
	// Title names the film in the system prompt; empty means "a film".
	Title       string
	Temperature float32
	MaxTokens   int
	// JSONMode requests response_format json_object. Some OpenRouter models reject it.
	JSONMode bool
}

// Understander turns a raw query into intent, keywords and filters via a chat model.
type Understander struct {
	client      *openai.Client
	model       string
	title       string
	temperature float32
	maxTokens   int
	jsonMode    bool
	logger      *zap.Logger

	mu     sync.RWMutex
	system string
}

// NewUnderstander creates a query understander primed with vocab.
func NewUnderstander(cfg *UnderstanderConfig, vocab clip.Vocabulary) *Understander {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	u := &Understander{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		title:       cfg.Title,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		jsonMode:    cfg.JSONMode,
		logger:      logger,
	}
	u.SetVocabulary(vocab)
	return u
}

// SetVocabulary swaps the canonical values offered to the model.
func (u *Understander) SetVocabulary(v clip.Vocabulary) {
	if v == nil {
		v = clip.DefaultVocabulary()
	}
	system := systemPrompt(u.title, v)
	u.mu.Lock()
	u.system = system
	u.mu.Unlock()
}

// Parse implements the search pipeline's Understander. Any failure wraps domain.ErrUnderstanding;
// the caller decides whether to fall back to the raw text.
func (u *Understander) Parse(ctx context.Context, raw string) (query.Parsed, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return query.Parsed{}, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	u.mu.RLock()
	system := u.system
	u.mu.RUnlock()

	req := openai.ChatCompletionRequest{
		Model: u.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: raw},
		},
		Temperature: u.temperature,
		MaxTokens:   u.maxTokens,
	}
	if u.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := u.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return query.Parsed{}, fmt.Errorf("%w: chat completion: %w", domain.ErrUnderstanding, err)
	}

	content := ""
	for _, ch := range resp.Choices {
		if c := strings.TrimSpace(ch.Message.Content); c != "" {
			content = c
			break
		}
	}
	if content == "" {
		return query.Parsed{}, fmt.Errorf("%w: empty completion", domain.ErrUnderstanding)
	}

	parsed, err := decodeParsed(content, raw)
	if err != nil {
		return query.Parsed{}, fmt.Errorf("%w: %w", domain.ErrUnderstanding, err)
	}

	u.logger.Debug("Query understood",
		zap.String("intent", parsed.Intent),
		zap.Strings("keywords", parsed.Keywords),
		zap.Stringer("filters", parsed.Filters),
	)
	return parsed, nil
}

type understandingJSON struct {
	Intent   string          `json:"intent"`
	Keywords []any           `json:"keywords"`
	Filters  json.RawMessage `json:"filters"`
}

// stringList accepts either a JSON string or an array of strings.
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = []string{one}
		return nil
	}
	var many []any
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.New("filter value must be a string or an array")
	}
	out := make([]string, 0, len(many))
	for _, v := range many {
		if v == nil {
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	*s = out
	return nil
}

// decodeParsed reads the model output. Markdown fences are tolerated; unknown filter
// fields are dropped; a blank intent falls back to raw.
func decodeParsed(content, raw string) (query.Parsed, error) {
	content = stripFences(content)

	var obj understandingJSON
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return query.Parsed{}, fmt.Errorf("decode understanding: %w", err)
	}

	intent := strings.TrimSpace(obj.Intent)
	if intent == "" {
		intent = raw
	}

	keywords := make([]string, 0, len(obj.Keywords))
	for _, k := range obj.Keywords {
		if k == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(k)); s != "" {
			keywords = append(keywords, s)
		}
	}

	set, err := decodeFilters(obj.Filters)
	if err != nil {
		return query.Parsed{}, err
	}

	return query.Parsed{Intent: intent, Keywords: keywords, Filters: set}, nil
}

func decodeFilters(raw json.RawMessage) (filter.Set, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return filter.Set{}, nil
	}
	var clauses map[string]map[string]stringList
	if err := json.Unmarshal(raw, &clauses); err != nil {
		return filter.Set{}, fmt.Errorf("decode filters: %w", err)
	}

	known := func(c map[string]stringList) map[string][]string {
		out := map[string][]string{}
		for name, values := range c {
			if _, err := filter.ParseField(name); err != nil {
				continue
			}
			out[name] = values
		}
		return out
	}

	set, err := filter.NewSet(known(clauses["must"]), known(clauses["should"]), known(clauses["must_not"]))
	if err != nil {
		return filter.Set{}, fmt.Errorf("filters: %w", err)
	}
	return set, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func quoteAll(values []string) string {
	q := make([]string, len(values))
	for i, v := range values {
		q[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(q, ", ")
}

func systemPrompt(title string, v clip.Vocabulary) string {
	film := "a film"
	if title != "" {
		film = title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a query understander for a footage search engine over %s. ", film)
	b.WriteString("Editors describe the shot they want in natural language.\n\n")
	b.WriteString("Output a single JSON object with exactly these keys:\n")
	b.WriteString(`- "intent": one concrete, search-friendly sentence describing the footage to find, using the user's words. No preamble.` + "\n")
	b.WriteString(`- "keywords": 0 to 5 important words or phrases from the query. May be [].` + "\n")
	b.WriteString(`- "filters": an object with optional keys "must" (all match), "should" (at least one matches) and "must_not" (none match). ` +
		`Each maps field names to an array of values. Omit anything the user did not ask for; use {} when there are no filters.` + "\n\n")
	b.WriteString("Use only these exact values:\n")
	fmt.Fprintf(&b, "  scene_id: %s\n", strings.Join(v.Values(filter.FieldSceneID, vocabSceneIDs), ", "))
	fmt.Fprintf(&b, "  location: %s\n", quoteAll(v.Values(filter.FieldLocation, vocabLocations)))
	fmt.Fprintf(&b, "  time_of_day: %s\n", strings.Join(v.Values(filter.FieldTimeOfDay, 0), ", "))
	fmt.Fprintf(&b, "  int_ext: %s\n", strings.Join(v.Values(filter.FieldIntExt, 0), ", "))
	fmt.Fprintf(&b, "  actors: %s\n\n", quoteAll(v.Values(filter.FieldActors, vocabActors)))
	b.WriteString(`Example: {"intent": "a tense conversation in an office at night", "keywords": ["office"], ` +
		`"filters": {"must": {"int_ext": ["INT"]}, "must_not": {"time_of_day": ["DAY"]}}}` + "\n")
	b.WriteString("Output only the JSON, no markdown or explanation.")
	return b.String()
}
