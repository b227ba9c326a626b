package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arcoai/arcochat/internal/provider"
)

// scriptedClient implements Client without any network. Poll statuses are
// consumed in order; the last one repeats.
type scriptedClient struct {
	statuses   []RunStatus
	reply      string
	failReason string
	posted     []string
	polls      int

	streamEvents []StreamEvent
}

func (s *scriptedClient) CreateThread(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "thread_1", nil
}

func (s *scriptedClient) PostMessage(ctx context.Context, threadID, role, content string) error {
	s.posted = append(s.posted, role+": "+content)
	return ctx.Err()
}

func (s *scriptedClient) StartRun(ctx context.Context, threadID string, cfg RunConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "run_1", nil
}

func (s *scriptedClient) PollRunStatus(ctx context.Context, threadID, runID string) (RunStatus, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	i := s.polls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.polls++
	return s.statuses[i], s.failReason, nil
}

func (s *scriptedClient) FetchMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []ThreadMessage{
		{Role: "assistant", Text: s.reply},
		{Role: "user", Text: "question"},
	}, nil
}

func (s *scriptedClient) StreamRun(ctx context.Context, threadID string, cfg RunConfig) (<-chan StreamEvent, error) {
	ch := make(chan StreamEvent, len(s.streamEvents))
	for _, ev := range s.streamEvents {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func fastOptions() Options {
	return Options{
		AssistantID:     "asst_1",
		PollInterval:    time.Millisecond,
		PollMaxAttempts: 10,
	}
}

// collect drains the event channel into deltas and the terminal event.
func collect(t *testing.T, events <-chan provider.Event) (string, provider.Event) {
	t.Helper()
	var text strings.Builder
	var last provider.Event
	for ev := range events {
		last = ev
		if ev.Type == provider.EventTextDelta {
			text.WriteString(ev.TextDelta)
		}
	}
	return text.String(), last
}

func TestPollUntilCompleted(t *testing.T) {
	client := &scriptedClient{
		statuses: []RunStatus{StatusQueued, StatusInProgress, StatusCompleted},
		reply:    "Vibrato is an oscillation of pitch.",
	}
	p := New(client, fastOptions())

	events, err := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "what is vibrato?"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	text, last := collect(t, events)
	if text != client.reply {
		t.Errorf("text = %q, want %q", text, client.reply)
	}
	if last.Type != provider.EventDone {
		t.Errorf("terminal event = %v, want EventDone", last.Type)
	}
	if client.polls != 3 {
		t.Errorf("polls = %d, want 3", client.polls)
	}
}

func TestTranscriptReplaySkipsLocalMessages(t *testing.T) {
	client := &scriptedClient{statuses: []RunStatus{StatusCompleted}, reply: "ok"}
	p := New(client, fastOptions())

	events, err := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: "first"},
			{Role: provider.RoleAssistant, Content: "earlier answer"},
			{Role: provider.RoleSystem, Content: "an error happened"},
			{Role: provider.RoleUser, Content: "second"},
			{Role: provider.RoleAssistant, Content: ""}, // in-progress placeholder
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	collect(t, events)

	want := []string{"user: first", "assistant: earlier answer", "user: second"}
	if len(client.posted) != len(want) {
		t.Fatalf("posted %v, want %v", client.posted, want)
	}
	for i := range want {
		if client.posted[i] != want[i] {
			t.Errorf("posted[%d] = %q, want %q", i, client.posted[i], want[i])
		}
	}
}

func TestRunFailureSurfacesReason(t *testing.T) {
	client := &scriptedClient{
		statuses:   []RunStatus{StatusInProgress, StatusFailed},
		failReason: "model overloaded",
	}
	p := New(client, fastOptions())

	events, _ := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	_, last := collect(t, events)

	if last.Type != provider.EventError {
		t.Fatalf("terminal event = %v, want EventError", last.Type)
	}
	var runErr *RunFailedError
	if !errors.As(last.Err, &runErr) {
		t.Fatalf("err = %v, want *RunFailedError", last.Err)
	}
	if runErr.Status != StatusFailed || runErr.Reason != "model overloaded" {
		t.Errorf("runErr = %+v", runErr)
	}
}

func TestPollBudgetExhaustion(t *testing.T) {
	client := &scriptedClient{statuses: []RunStatus{StatusInProgress}}
	opts := fastOptions()
	opts.PollMaxAttempts = 3
	p := New(client, opts)

	events, _ := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	_, last := collect(t, events)

	if !errors.Is(last.Err, ErrRunTimeout) {
		t.Errorf("err = %v, want ErrRunTimeout", last.Err)
	}
	if client.polls != 3 {
		t.Errorf("polls = %d, want 3", client.polls)
	}
}

func TestRequiresActionKeepsPolling(t *testing.T) {
	client := &scriptedClient{
		statuses: []RunStatus{StatusRequiresAction, StatusRequiresAction, StatusCompleted},
		reply:    "done anyway",
	}
	p := New(client, fastOptions())

	events, _ := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	text, last := collect(t, events)

	if last.Type != provider.EventDone {
		t.Fatalf("terminal event = %v, want EventDone", last.Type)
	}
	if text != "done anyway" {
		t.Errorf("text = %q", text)
	}
}

func TestCancellationDuringPollSleep(t *testing.T) {
	client := &scriptedClient{statuses: []RunStatus{StatusInProgress}}
	opts := fastOptions()
	opts.PollInterval = time.Hour // the cancel must interrupt this sleep
	opts.PollMaxAttempts = 5
	p := New(client, opts)

	ctx, cancel := context.WithCancel(context.Background())
	events, _ := p.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})

	cancel()

	done := make(chan provider.Event, 1)
	go func() {
		_, last := collect(t, events)
		done <- last
	}()

	select {
	case last := <-done:
		if !errors.Is(last.Err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", last.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancellation did not interrupt the poll sleep")
	}
}

func TestStreamingPath(t *testing.T) {
	client := &scriptedClient{
		streamEvents: []StreamEvent{
			{Type: StreamDelta, Text: "Vib"},
			{Type: StreamDelta, Text: "rato"},
			{Type: StreamCompleted, Status: StatusCompleted},
		},
	}
	opts := fastOptions()
	opts.Streaming = true
	p := New(client, opts)

	events, _ := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	text, last := collect(t, events)

	if text != "Vibrato" {
		t.Errorf("text = %q, want Vibrato", text)
	}
	if last.Type != provider.EventDone {
		t.Errorf("terminal event = %v, want EventDone", last.Type)
	}
}

func TestStreamingFailure(t *testing.T) {
	client := &scriptedClient{
		streamEvents: []StreamEvent{
			{Type: StreamDelta, Text: "partial"},
			{Type: StreamFailed, Status: StatusExpired, Reason: "run expired"},
		},
	}
	opts := fastOptions()
	opts.Streaming = true
	p := New(client, opts)

	events, _ := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	text, last := collect(t, events)

	if text != "partial" {
		t.Errorf("text = %q, want the partial delta preserved", text)
	}
	var runErr *RunFailedError
	if !errors.As(last.Err, &runErr) || runErr.Status != StatusExpired {
		t.Errorf("err = %v, want RunFailedError{expired}", last.Err)
	}
}
