package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type StreamEventType int

const (
	// StreamDelta carries an incremental text fragment.
	StreamDelta StreamEventType = iota

	// StreamCompleted signals the run finished; the full reply was already
	// delivered through deltas.
	StreamCompleted

	// StreamFailed signals a terminal failure status from the remote.
	StreamFailed

	// StreamError signals a local or transport error.
	StreamError
)

// StreamEvent is one element of a streaming run.
type StreamEvent struct {
	Type   StreamEventType
	Text   string
	Status RunStatus
	Reason string
	Err    error
}

// StreamRun starts a run with "stream": true and translates the SSE event
// feed into StreamEvents. The channel closes after a terminal event.
func (c *HTTPClient) StreamRun(ctx context.Context, threadID string, cfg RunConfig) (<-chan StreamEvent, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/threads/"+threadID+"/runs", runBody(cfg, true))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}

	ch := make(chan StreamEvent, 16)
	go c.readStream(ctx, resp, ch)
	return ch, nil
}

// readStream parses the SSE body. The assistants feed interleaves
// "event: <name>" and "data: <json>" lines; a data payload of [DONE]
// closes the feed.
func (c *HTTPClient) readStream(ctx context.Context, resp *http.Response, ch chan<- StreamEvent) {
	defer close(ch)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var eventName string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			if done := dispatchStreamEvent(eventName, data, ch); done {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		// A canceled context surfaces as a body read error; report the
		// cancellation itself in that case.
		if ctx.Err() != nil {
			ch <- StreamEvent{Type: StreamError, Err: ctx.Err()}
			return
		}
		ch <- StreamEvent{Type: StreamError, Err: &RemoteError{Err: err}}
		return
	}

	// Feed ended without a terminal run event; treat as completed since
	// every delivered delta is already final content.
	ch <- StreamEvent{Type: StreamCompleted, Status: StatusCompleted}
}

// dispatchStreamEvent translates one SSE event into zero or more
// StreamEvents. Returns true when the event is terminal.
func dispatchStreamEvent(name, data string, ch chan<- StreamEvent) bool {
	switch name {
	case "thread.message.delta":
		var payload struct {
			Delta struct {
				Content []struct {
					Type string `json:"type"`
					Text struct {
						Value string `json:"value"`
					} `json:"text"`
				} `json:"content"`
			} `json:"delta"`
		}
		if json.Unmarshal([]byte(data), &payload) != nil {
			return false
		}
		for _, c := range payload.Delta.Content {
			if c.Type == "text" && c.Text.Value != "" {
				ch <- StreamEvent{Type: StreamDelta, Text: c.Text.Value}
			}
		}

	case "thread.run.completed":
		ch <- StreamEvent{Type: StreamCompleted, Status: StatusCompleted}
		return true

	case "thread.run.failed", "thread.run.expired", "thread.run.cancelled":
		var payload struct {
			Status    RunStatus `json:"status"`
			LastError *struct {
				Message string `json:"message"`
			} `json:"last_error"`
		}
		_ = json.Unmarshal([]byte(data), &payload)
		if payload.Status == "" {
			payload.Status = RunStatus(strings.TrimPrefix(name, "thread.run."))
		}
		reason := ""
		if payload.LastError != nil {
			reason = payload.LastError.Message
		}
		ch <- StreamEvent{Type: StreamFailed, Status: payload.Status, Reason: reason}
		return true
	}
	return false
}
