package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxFrameSize bounds one SSE line; result frames carry full clip metadata.
const maxFrameSize = 4 << 20

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// ErrStreamTruncated is returned when a stream ends without a terminal frame.
var ErrStreamTruncated = errors.New("footage stream: ended before results")

// Stream runs a streaming search and calls fn for every frame in order.
// An error frame is delivered to fn and then returned as *StreamError.
// Returning an error from fn stops the stream and returns that error.
func (c *Client) Stream(ctx context.Context, query string, limit int, fn func(Event) error) (err error) {
	done := c.obs.start("stream")
	defer func() { done(err) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/search/stream", searchRequest{Query: query, Limit: limit})
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("footage client: stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	return readStream(resp.Body, func(ev Event) error {
		c.obs.frame(ev.Type)
		return fn(ev)
	})
}

type rawFrame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	ErrorText string          `json:"errorText"`
}

func readStream(r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxFrameSize)

	var terminal error = ErrStreamTruncated
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		payload, ok := bytes.CutPrefix(line, dataPrefix)
		if !ok {
			continue
		}
		payload = bytes.TrimSpace(payload)
		if bytes.Equal(payload, doneMarker) {
			return terminal
		}

		ev, err := decodeFrame(payload)
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
		switch ev.Type {
		case EventResults:
			terminal = nil
		case EventError:
			terminal = &StreamError{Text: ev.ErrorText}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("footage client: read stream: %w", err)
	}
	return terminal
}

func decodeFrame(payload []byte) (Event, error) {
	var raw rawFrame
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("footage client: decode frame: %w", err)
	}

	ev := Event{Type: raw.Type, ErrorText: raw.ErrorText}
	switch raw.Type {
	case EventStatus:
		if err := json.Unmarshal(raw.Data, &ev.Status); err != nil {
			return Event{}, fmt.Errorf("footage client: decode status: %w", err)
		}
	case EventResults:
		if err := json.Unmarshal(raw.Data, &ev.Results); err != nil {
			return Event{}, fmt.Errorf("footage client: decode results: %w", err)
		}
		if ev.Results == nil {
			ev.Results = []Result{}
		}
	}
	return ev, nil
}
