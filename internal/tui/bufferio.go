package tui

import (
	"io"
	"strings"
	"sync"
)

// BufferIO is a silent IO implementation that captures assistant output
// without rendering to any terminal. Used for one-shot mode and in tests.
type BufferIO struct {
	mu  sync.Mutex
	buf strings.Builder
}

var _ IO = (*BufferIO)(nil)

// NewBufferIO creates a new BufferIO.
func NewBufferIO() *BufferIO {
	return &BufferIO{}
}

// Output returns all captured assistant text.
func (b *BufferIO) Output() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *BufferIO) ReadInput() (string, error) { return "", io.EOF }
func (b *BufferIO) UserMessage(_ string)       {}
func (b *BufferIO) ThinkingStart()             {}

func (b *BufferIO) TextDelta(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(delta)
}

func (b *BufferIO) TextDone(_ string) {}

func (b *BufferIO) SystemMessage(_ string) {}
func (b *BufferIO) Error(_ string)         {}
func (b *BufferIO) SetTurnCancel(_ func()) {}
func (b *BufferIO) ClearTurnCancel()       {}
