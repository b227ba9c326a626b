package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// sseHandler writes a fixed sequence of SSE events and closes the feed.
func sseHandler(events [][2]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprintf(w, "event: %s\n", ev[0])
			fmt.Fprintf(w, "data: %s\n\n", ev[1])
		}
		fmt.Fprint(w, "event: done\ndata: [DONE]\n\n")
	})
}

func deltaJSON(text string) string {
	return fmt.Sprintf(`{"delta":{"content":[{"type":"text","text":{"value":%q}}]}}`, text)
}

func TestStreamRunDeliversDeltas(t *testing.T) {
	c := newTestClient(t, sseHandler([][2]string{
		{"thread.run.created", `{"id":"run_1","status":"queued"}`},
		{"thread.message.delta", deltaJSON("Vib")},
		{"thread.message.delta", deltaJSON("rato is...")},
		{"thread.run.completed", `{"id":"run_1","status":"completed"}`},
	}))

	events, err := c.StreamRun(context.Background(), "thread_1", RunConfig{AssistantID: "asst_1"})
	if err != nil {
		t.Fatalf("StreamRun: %v", err)
	}

	var text strings.Builder
	var last StreamEvent
	for ev := range events {
		last = ev
		if ev.Type == StreamDelta {
			text.WriteString(ev.Text)
		}
	}

	if text.String() != "Vibrato is..." {
		t.Errorf("text = %q", text.String())
	}
	if last.Type != StreamCompleted {
		t.Errorf("last event = %+v, want StreamCompleted", last)
	}
}

func TestStreamRunFailure(t *testing.T) {
	c := newTestClient(t, sseHandler([][2]string{
		{"thread.message.delta", deltaJSON("partial ")},
		{"thread.run.failed", `{"status":"failed","last_error":{"message":"overloaded"}}`},
	}))

	events, err := c.StreamRun(context.Background(), "thread_1", RunConfig{AssistantID: "asst_1"})
	if err != nil {
		t.Fatalf("StreamRun: %v", err)
	}

	var last StreamEvent
	for ev := range events {
		last = ev
	}
	if last.Type != StreamFailed || last.Status != StatusFailed || last.Reason != "overloaded" {
		t.Errorf("last = %+v", last)
	}
}

func TestStreamRunRejectedUpFront(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"no such assistant"}}`))
	})
	c := newTestClient(t, h)

	_, err := c.StreamRun(context.Background(), "thread_1", RunConfig{AssistantID: "missing"})
	if err == nil {
		t.Fatal("expected error for rejected stream start")
	}
}

func TestStreamRunEOFWithoutTerminalEvent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: thread.message.delta\ndata: %s\n\n", deltaJSON("hello"))
		// connection drops here without thread.run.completed
	}))

	events, err := c.StreamRun(context.Background(), "thread_1", RunConfig{AssistantID: "asst_1"})
	if err != nil {
		t.Fatalf("StreamRun: %v", err)
	}

	var last StreamEvent
	for ev := range events {
		last = ev
	}
	if last.Type != StreamCompleted {
		t.Errorf("last = %+v, want StreamCompleted fallback on clean EOF", last)
	}
}
