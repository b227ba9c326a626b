package tui

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// RunTUI starts the bubbletea program in alt-screen mode and runs chatFn
// concurrently. It blocks until either the chat loop finishes or the user
// quits.
func RunTUI(chatFn func(io IO) error) error {
	inputCh := make(chan inputResult, 1)
	model := NewModel(inputCh)

	// Create TuiIO early so the cancel hook can be wired before the model
	// is copied into the tea.Program.
	tuiIO := &TuiIO{
		inputCh: inputCh,
	}
	model.cancelTurnFn = tuiIO.CancelTurn

	p := tea.NewProgram(model, tea.WithAltScreen())
	tuiIO.program = p

	var (
		chatErr error
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		chatErr = chatFn(tuiIO)
		// Signal the TUI that the chat loop is done
		p.Send(chatDoneMsg{err: chatErr})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// The program is gone; unblock a ReadInput that is (or will be)
	// waiting so the chat goroutine can exit.
	select {
	case inputCh <- inputResult{err: io.EOF}:
	default:
	}

	// Wait for the chat goroutine to finish after TUI exits
	wg.Wait()

	return chatErr
}
