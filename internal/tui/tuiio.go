package tui

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TuiIO implements the IO interface by sending messages to a bubbletea
// Program. All methods are safe to call from any goroutine.
type TuiIO struct {
	program *tea.Program
	inputCh chan inputResult

	mu         sync.Mutex
	cancelTurn func()
}

var _ IO = (*TuiIO)(nil)

func (t *TuiIO) ReadInput() (string, error) {
	// Tell the TUI to activate the text input
	t.program.Send(readInputMsg{})

	// Block until the user submits or the TUI exits
	res := <-t.inputCh
	if res.err != nil {
		return "", io.EOF
	}
	return res.text, nil
}

func (t *TuiIO) UserMessage(text string) {
	t.program.Send(userMsg{text: text})
}

func (t *TuiIO) ThinkingStart() {
	t.program.Send(thinkingStartMsg{})
}

func (t *TuiIO) TextDelta(delta string) {
	t.program.Send(textDeltaMsg{delta: delta})
}

func (t *TuiIO) TextDone(fullText string) {
	t.program.Send(textDoneMsg{fullText: fullText})
}

func (t *TuiIO) SystemMessage(text string) {
	t.program.Send(systemMsg{text: text})
}

func (t *TuiIO) Error(msg string) {
	t.program.Send(errorMsg{text: msg})
}

// SetTurnCancel registers the cancel hook for the in-flight turn.
func (t *TuiIO) SetTurnCancel(cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelTurn = cancel
}

// ClearTurnCancel clears the hook when the turn resolves.
func (t *TuiIO) ClearTurnCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelTurn = nil
}

// CancelTurn aborts the in-flight turn. Returns true if a turn was
// actually canceled. The model calls this on Esc.
func (t *TuiIO) CancelTurn() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelTurn != nil {
		t.cancelTurn()
		t.cancelTurn = nil
		return true
	}
	return false
}
