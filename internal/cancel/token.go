// Package cancel provides one-shot cancellation tokens for in-flight
// assistant turns. A token wraps a context so it can be handed to every
// remote call of a turn; signaling it aborts the whole call chain at the
// next blocking checkpoint.
package cancel

import (
	"context"
	"sync"
)

// Token is a one-shot cancellation handle for a single turn.
// Signal may be called from any goroutine and is idempotent.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	signaled bool
}

// NewToken creates a fresh token derived from parent. Canceling the
// parent also aborts calls carrying the token's context, but only an
// explicit Signal marks the token as user-canceled.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Context returns the context to pass through remote calls.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Signal fires the token. Signaling an already-fired token is a no-op.
func (t *Token) Signal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.signaled {
		return
	}
	t.signaled = true
	t.cancel()
}

// Signaled reports whether Signal has been called.
func (t *Token) Signaled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.signaled
}

// Done returns a channel closed when the token fires or its parent is canceled.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Release frees the token's resources once the turn resolves. It does not
// count as a user cancellation.
func (t *Token) Release() {
	t.cancel()
}
