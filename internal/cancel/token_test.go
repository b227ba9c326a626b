package cancel

import (
	"context"
	"testing"
)

func TestSignalFiresDone(t *testing.T) {
	tok := NewToken(context.Background())
	if tok.Signaled() {
		t.Fatal("fresh token should not be signaled")
	}

	tok.Signal()

	if !tok.Signaled() {
		t.Error("Signaled() = false after Signal")
	}
	select {
	case <-tok.Done():
	default:
		t.Error("Done channel not closed after Signal")
	}
	if tok.Context().Err() == nil {
		t.Error("context should be canceled after Signal")
	}
}

func TestSignalIdempotent(t *testing.T) {
	tok := NewToken(context.Background())
	tok.Signal()
	tok.Signal() // must not panic or block
	if !tok.Signaled() {
		t.Error("token should stay signaled")
	}
}

func TestReleaseIsNotUserCancel(t *testing.T) {
	tok := NewToken(context.Background())
	tok.Release()

	if tok.Signaled() {
		t.Error("Release should not mark the token as user-canceled")
	}
	select {
	case <-tok.Done():
	default:
		t.Error("Release should still cancel the underlying context")
	}
}

func TestParentCancelPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tok := NewToken(ctx)
	cancel()

	select {
	case <-tok.Done():
	default:
		t.Error("parent cancel should close Done")
	}
	if tok.Signaled() {
		t.Error("parent cancel is not a user cancel")
	}
}
