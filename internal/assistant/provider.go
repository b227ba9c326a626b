package assistant

import (
	"context"
	"time"

	"github.com/arcoai/arcochat/internal/provider"
)

const (
	defaultPollInterval    = time.Second
	defaultPollMaxAttempts = 120
)

// Options configures the assistants backend.
type Options struct {
	AssistantID string
	Model       string
	Temperature float64
	TopP        float64

	// VectorStoreID optionally overrides the assistant's file-search
	// corpus per run.
	VectorStoreID string

	// Streaming selects SSE delivery; false uses the poll-then-fetch path.
	Streaming bool

	// PollInterval is the delay between status checks (default 1s).
	PollInterval time.Duration

	// PollMaxAttempts bounds the poll loop (default 120); exhausting it
	// fails the turn with ErrRunTimeout.
	PollMaxAttempts int
}

// Provider drives the threads/runs protocol for one turn at a time:
//
//	Idle → ThreadCreated → MessageSubmitted → RunStarted →
//	  {Polling ⇄ Polling | Streaming} → {Completed | Failed | Canceled}
//
// It replays the full non-system transcript into a fresh thread each turn
// (the hosted assistant is stateless across our conversations) and emits
// the unified event sequence the session manager consumes.
type Provider struct {
	client Client
	opts   Options
}

var _ provider.Provider = (*Provider)(nil)

func New(client Client, opts Options) *Provider {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PollMaxAttempts <= 0 {
		opts.PollMaxAttempts = defaultPollMaxAttempts
	}
	return &Provider{client: client, opts: opts}
}

func (p *Provider) Name() string { return "assistant" }

func (p *Provider) DefaultModel() string {
	if p.opts.Model != "" {
		return p.opts.Model
	}
	return "gpt-4o-mini"
}

func (p *Provider) Chat(ctx context.Context, req *provider.ChatRequest) (<-chan provider.Event, error) {
	ch := make(chan provider.Event, 16)
	go p.runTurn(ctx, req, ch)
	return ch, nil
}

func (p *Provider) runTurn(ctx context.Context, req *provider.ChatRequest, ch chan<- provider.Event) {
	defer close(ch)

	threadID, err := p.client.CreateThread(ctx)
	if err != nil {
		fail(ctx, ch, err)
		return
	}

	for _, msg := range req.Messages {
		// System notices are local; empty assistant entries are the
		// in-progress placeholder.
		if msg.Role == provider.RoleSystem || msg.Content == "" {
			continue
		}
		if err := p.client.PostMessage(ctx, threadID, string(msg.Role), msg.Content); err != nil {
			fail(ctx, ch, err)
			return
		}
	}

	cfg := RunConfig{
		AssistantID:   p.opts.AssistantID,
		Model:         req.Model,
		Temperature:   p.opts.Temperature,
		TopP:          p.opts.TopP,
		VectorStoreID: p.opts.VectorStoreID,
	}
	if req.Temperature > 0 {
		cfg.Temperature = req.Temperature
	}
	if req.TopP > 0 {
		cfg.TopP = req.TopP
	}

	if p.opts.Streaming {
		p.streamTurn(ctx, threadID, cfg, ch)
		return
	}

	runID, err := p.client.StartRun(ctx, threadID, cfg)
	if err != nil {
		fail(ctx, ch, err)
		return
	}

	p.pollTurn(ctx, threadID, runID, ch)
}

// pollTurn checks run status once per interval until a terminal status,
// the attempt budget, or cancellation. The cancellation token is observed
// at every sleep boundary, not only at call entry.
func (p *Provider) pollTurn(ctx context.Context, threadID, runID string, ch chan<- provider.Event) {
	for attempt := 0; attempt < p.opts.PollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			fail(ctx, ch, ctx.Err())
			return
		case <-time.After(p.opts.PollInterval):
		}

		status, reason, err := p.client.PollRunStatus(ctx, threadID, runID)
		if err != nil {
			fail(ctx, ch, err)
			return
		}

		switch {
		case status == StatusCompleted:
			p.deliverFinal(ctx, threadID, ch)
			return
		case status.Terminal():
			ch <- provider.Event{Type: provider.EventError, Err: &RunFailedError{Status: status, Reason: reason}}
			return
		}
		// queued / in_progress / requires_action: keep polling.
	}

	ch <- provider.Event{Type: provider.EventError, Err: ErrRunTimeout}
}

// deliverFinal fetches the completed thread and emits the newest assistant
// message as a single fragment, mirroring the non-streaming retrieval path.
func (p *Provider) deliverFinal(ctx context.Context, threadID string, ch chan<- provider.Event) {
	msgs, err := p.client.FetchMessages(ctx, threadID)
	if err != nil {
		fail(ctx, ch, err)
		return
	}

	// Messages arrive most recent first.
	for _, m := range msgs {
		if m.Role == string(provider.RoleAssistant) {
			if m.Text != "" {
				ch <- provider.Event{Type: provider.EventTextDelta, TextDelta: m.Text}
			}
			break
		}
	}
	ch <- provider.Event{Type: provider.EventDone}
}

func (p *Provider) streamTurn(ctx context.Context, threadID string, cfg RunConfig, ch chan<- provider.Event) {
	events, err := p.client.StreamRun(ctx, threadID, cfg)
	if err != nil {
		fail(ctx, ch, err)
		return
	}

	for ev := range events {
		switch ev.Type {
		case StreamDelta:
			ch <- provider.Event{Type: provider.EventTextDelta, TextDelta: ev.Text}
		case StreamCompleted:
			ch <- provider.Event{Type: provider.EventDone}
			return
		case StreamFailed:
			ch <- provider.Event{Type: provider.EventError, Err: &RunFailedError{Status: ev.Status, Reason: ev.Reason}}
			return
		case StreamError:
			fail(ctx, ch, ev.Err)
			return
		}
	}
	ch <- provider.Event{Type: provider.EventDone}
}

// fail emits the terminal error, preferring the cancellation cause when
// the context fired so cancel always supersedes in-flight failures.
func fail(ctx context.Context, ch chan<- provider.Event, err error) {
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	ch <- provider.Event{Type: provider.EventError, Err: err}
}
