// Package provider defines the unified streaming interface between the
// conversation core and the remote AI backends. Each adapter (assistants
// threads/runs, OpenAI chat completions, Anthropic messages) normalizes its
// wire protocol into the same Event sequence.
package provider

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem marks local notices (errors, cancel notes). System messages
	// are never submitted to a remote backend.
	RoleSystem Role = "system"
)

// Message is one transcript entry as seen by a backend.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is the unified request for one assistant turn.
type ChatRequest struct {
	Model    string
	Messages []Message

	// Instructions is an optional system prompt for direct-chat backends.
	// The assistants backend ignores it (instructions live on the hosted
	// assistant).
	Instructions string

	// Sampling pass-through. Zero values mean "backend default".
	Temperature float64
	TopP        float64
	MaxTokens   int
}

type EventType int

const (
	// EventTextDelta carries an incremental fragment of assistant output.
	EventTextDelta EventType = iota

	// EventDone signals the turn reached a terminal success state.
	EventDone

	// EventError signals the turn failed; Err carries the cause.
	EventError
)

// Event is one element of a backend's streaming output.
type Event struct {
	Type      EventType
	TextDelta string
	Err       error
}

// Provider is the contract every backend implements.
type Provider interface {
	// Chat starts one assistant turn. The returned channel emits Events
	// until EventDone or EventError, then closes. The caller must drain
	// the channel. Cancellation is signaled through ctx; adapters check it
	// at every blocking checkpoint.
	Chat(ctx context.Context, req *ChatRequest) (<-chan Event, error)

	// Name returns the backend identifier, e.g. "assistant", "openai".
	Name() string

	// DefaultModel returns the model used when ChatRequest.Model is empty.
	DefaultModel() string
}
