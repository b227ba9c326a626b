// Package tui defines the IO interface between the conversation loop and
// the user interface layer, plus PlainIO (terminal fallback) and TuiIO
// (bubbletea).
package tui

// IO is the contract between the conversation loop and the UI layer.
// Every method maps to a distinct visual event, so the loop never depends
// on any specific rendering implementation.
type IO interface {
	// ReadInput blocks until the user submits a line of input.
	// Returns ("", io.EOF) when the user quits.
	ReadInput() (string, error)

	// UserMessage displays the user's submitted message in the output area.
	UserMessage(text string)

	// ThinkingStart signals that a turn is in flight and no content has
	// arrived yet. Implementations should show a typing indicator.
	ThinkingStart()

	// TextDelta appends an incremental chunk of the assistant response.
	TextDelta(delta string)

	// TextDone signals that the assistant response is complete. fullText is
	// the finalized content; TUI implementations use it to trigger Markdown
	// rendering. Empty means the turn produced no assistant message.
	TextDone(fullText string)

	// SystemMessage displays a system-level notice (command feedback,
	// failure notices, cancel notes).
	SystemMessage(text string)

	// Error displays an error message with prominent styling.
	Error(msg string)

	// SetTurnCancel registers the cancel hook for the in-flight turn, so
	// the UI can abort it (Esc in the TUI). ClearTurnCancel removes it
	// when the turn resolves.
	SetTurnCancel(cancel func())
	ClearTurnCancel()
}
