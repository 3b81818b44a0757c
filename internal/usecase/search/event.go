package search

import (
	"github.com/kailas-cloud/footage/internal/domain/search/query"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
)

// Stage is a pipeline step. Values double as stream event ids.
type Stage string

// Pipeline stages in execution order. Fallback and HybridMerge are optional.
const (
	StageParsing      Stage = "parsing"
	StageEmbedding    Stage = "embedding"
	StageVectorSearch Stage = "vector_search"
	StageFallback     Stage = "fallback"
	StageHybridMerge  Stage = "hybrid_merge"
	StageReranking    Stage = "reranking"
)

// Status is the progress state of a stage.
type Status string

// Stage statuses.
const (
	StatusLoading Status = "loading"
	StatusDone    Status = "done"
)

// EventKind distinguishes progress from terminal events.
type EventKind string

// Event kinds. Results and Error are terminal and mutually exclusive.
const (
	EventStatus  EventKind = "status"
	EventResults EventKind = "results"
	EventError   EventKind = "error"
)

// Event is one immutable entry of the search progress log.
type Event struct {
	Kind    EventKind
	Stage   Stage
	Status  Status
	Message string

	// Parsed is set on the parsing done event.
	Parsed *query.Parsed
	// Results is set on the results event.
	Results []result.Ranked
	// Err is set on the error event.
	Err error
}

// Terminal reports whether no event follows this one.
func (e Event) Terminal() bool {
	return e.Kind == EventResults || e.Kind == EventError
}

// sink receives events in order. It returns false once the consumer is gone.
type sink func(Event) bool

func discard(Event) bool { return true }

func loading(stage Stage, msg string) Event {
	return Event{Kind: EventStatus, Stage: stage, Status: StatusLoading, Message: msg}
}

func done(stage Stage, msg string) Event {
	return Event{Kind: EventStatus, Stage: stage, Status: StatusDone, Message: msg}
}
