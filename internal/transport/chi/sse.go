package chi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kailas-cloud/footage/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/footage/internal/usecase/search"
)

// Frame types of the UI message stream.
const (
	frameStatus  = "data-status"
	frameResults = "results"
	frameError   = "error"
	doneMarker   = "[DONE]"
)

// StatusData is the payload of a data-status frame.
type StatusData struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Intent  string      `json:"intent,omitempty"`
	Filters *FiltersDTO `json:"filters,omitempty"`
}

type statusFrame struct {
	Type string     `json:"type"`
	Data StatusData `json:"data"`
}

type resultsFrame struct {
	Type string          `json:"type"`
	Data []result.Ranked `json:"data"`
}

type errorFrame struct {
	Type      string `json:"type"`
	ErrorText string `json:"errorText"`
}

func setStreamHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
}

// eventWriter writes SSE data frames and flushes after each one.
type eventWriter struct {
	w     io.Writer
	flush func() error
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	rc := http.NewResponseController(w)
	return &eventWriter{w: w, flush: rc.Flush}
}

// frame converts a pipeline event into its wire frame.
func frame(ev searchuc.Event) any {
	switch ev.Kind {
	case searchuc.EventResults:
		data := ev.Results
		if data == nil {
			data = []result.Ranked{}
		}
		return resultsFrame{Type: frameResults, Data: data}
	case searchuc.EventError:
		text := ev.Message
		if ev.Err != nil {
			text = errorMessage(ev.Err)
		}
		return errorFrame{Type: frameError, ErrorText: text}
	default:
		data := StatusData{ID: string(ev.Stage), Status: string(ev.Status), Message: ev.Message}
		if ev.Parsed != nil {
			data.Intent = ev.Parsed.Intent
			f := filtersToDTO(ev.Parsed.Filters)
			data.Filters = &f
		}
		return statusFrame{Type: frameStatus, Data: data}
	}
}

func (e *eventWriter) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return e.raw(b)
}

func (e *eventWriter) done() error {
	return e.raw([]byte(doneMarker))
}

func (e *eventWriter) raw(payload []byte) error {
	if _, err := fmt.Fprintf(e.w, "data:%s\n\n", payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := e.flush(); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}
