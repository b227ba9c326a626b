package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// PlainIO implements IO using plain terminal output (fmt.Print /
// bufio.Scanner). Used when TUI mode is disabled or the terminal does not
// support raw mode. Ctrl+C handling lives in the command layer, which uses
// the registered turn cancel hook.
type PlainIO struct {
	scanner *bufio.Scanner

	mu         sync.Mutex
	cancelTurn func()
}

var _ IO = (*PlainIO)(nil)

// NewPlainIO creates a PlainIO that reads from stdin.
func NewPlainIO() *PlainIO {
	s := bufio.NewScanner(os.Stdin)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &PlainIO{scanner: s}
}

func (p *PlainIO) ReadInput() (string, error) {
	fmt.Print("\n> ")
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *PlainIO) UserMessage(_ string) {
	// Plain terminal: the user already sees what they typed.
}

func (p *PlainIO) ThinkingStart() {
	fmt.Println() // blank line before assistant output begins
}

func (p *PlainIO) TextDelta(delta string) {
	fmt.Print(delta)
}

func (p *PlainIO) TextDone(_ string) {
	// Text is already rendered incrementally; just close the line.
	fmt.Println()
}

func (p *PlainIO) SystemMessage(text string) {
	fmt.Println(text)
}

func (p *PlainIO) Error(msg string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
}

func (p *PlainIO) SetTurnCancel(cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelTurn = cancel
}

func (p *PlainIO) ClearTurnCancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelTurn = nil
}

// CancelTurn invokes the registered turn cancel hook. Returns true if a
// turn was in flight. The command layer calls this on SIGINT.
func (p *PlainIO) CancelTurn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelTurn != nil {
		p.cancelTurn()
		return true
	}
	return false
}
