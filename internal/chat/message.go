// Package chat is the conversation core: it owns the active transcript,
// drives one assistant turn at a time through a provider, assembles the
// streamed response, and persists finished conversations.
package chat

import (
	"errors"

	"github.com/arcoai/arcochat/internal/provider"
)

// Message is one transcript entry. Messages are immutable once a turn
// resolves; only the in-progress assistant message grows, and it is
// replaced wholesale on every update.
type Message struct {
	Role    provider.Role
	Content string

	// SampleQuestions decorates the welcome message with suggested
	// prompts. Display-only; never persisted or sent to a backend.
	SampleQuestions []string
}

// ErrConcurrentTurn reports a sendMessage (or conversation switch) while a
// turn is already in flight. One turn at a time is a hard precondition.
var ErrConcurrentTurn = errors.New("a turn is already in progress")

// ErrEmptyMessage reports a blank user message.
var ErrEmptyMessage = errors.New("message is empty")
