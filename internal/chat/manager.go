package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/arcoai/arcochat/internal/assistant"
	"github.com/arcoai/arcochat/internal/cancel"
	"github.com/arcoai/arcochat/internal/history"
	"github.com/arcoai/arcochat/internal/provider"
)

// Options configures a Manager.
type Options struct {
	Model       string
	Temperature float64
	TopP        float64

	// PromptAugmentation is an optional template with a {message}
	// placeholder. It rewrites the submitted content of each user message;
	// the transcript always stores the user's original text.
	PromptAugmentation string

	// CancelNotice leaves a "Response canceled." system message when a turn
	// is canceled. The default removes the placeholder silently.
	CancelNotice bool

	// WelcomeQuestions is how many sample questions the welcome message
	// carries. 0 disables them.
	WelcomeQuestions int
}

// Manager owns the active message list and drives one assistant turn at a
// time: it appends the user message and an empty assistant placeholder,
// runs the provider, grows the placeholder from the accumulator after each
// fragment, and resolves the turn to completed, failed, or canceled.
// Terminal outcomes are written through to the history store.
//
// SendMessage blocks for the whole turn. CancelActiveTurn, Messages, and
// Awaiting are safe to call concurrently with it; everything else rejects
// with ErrConcurrentTurn while a turn is in flight.
type Manager struct {
	mu       sync.Mutex
	provider provider.Provider
	store    *history.Store
	opts     Options

	messages []Message
	activeID string
	awaiting bool
	token    *cancel.Token
}

// NewManager creates a Manager opened on a fresh welcome session. A nil
// store disables persistence.
func NewManager(p provider.Provider, store *history.Store, opts Options) *Manager {
	m := &Manager{provider: p, store: store, opts: opts}
	m.resetLocked()
	return m
}

// Messages returns a copy of the active transcript.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Awaiting reports whether a turn is in flight.
func (m *Manager) Awaiting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.awaiting
}

// ActiveID returns the persisted id of the active conversation, or "" for
// a fresh session that has not completed a turn yet.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// SendMessage runs one assistant turn end to end. onUpdate, when non-nil,
// receives the sanitized in-progress content after each fragment. Remote
// failures resolve into transcript system messages rather than errors; the
// returned error reports precondition violations (ErrConcurrentTurn,
// ErrEmptyMessage) or a persistence failure.
func (m *Manager) SendMessage(ctx context.Context, text string, onUpdate func(content string)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	m.mu.Lock()
	if m.awaiting {
		m.mu.Unlock()
		return ErrConcurrentTurn
	}
	m.messages = append(m.messages,
		Message{Role: provider.RoleUser, Content: text},
		Message{Role: provider.RoleAssistant})
	m.awaiting = true
	tok := cancel.NewToken(ctx)
	m.token = tok
	req := m.buildRequestLocked(text)
	m.mu.Unlock()

	acc := &Accumulator{}
	err := m.runTurn(tok.Context(), req, acc, onUpdate)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.awaiting = false
	m.token = nil
	tok.Release()

	switch {
	// Cancellation supersedes any other outcome, including a backend that
	// quietly closed its event stream on ctx.Done.
	case tok.Signaled() || errors.Is(err, context.Canceled):
		m.resolveCanceledLocked()
	case err == nil:
		m.setLastContentLocked(acc.Final())
	default:
		m.resolveFailedLocked(acc, err)
	}
	return m.persistLocked()
}

// CancelActiveTurn signals the in-flight turn's cancellation token. No-op
// when no turn is pending; idempotent.
func (m *Manager) CancelActiveTurn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != nil {
		m.token.Signal()
	}
}

// NewConversation resets the session to the welcome state.
func (m *Manager) NewConversation() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.awaiting {
		return ErrConcurrentTurn
	}
	m.resetLocked()
	return nil
}

// SelectConversation loads a stored conversation as the active session.
func (m *Manager) SelectConversation(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.awaiting {
		return ErrConcurrentTurn
	}
	if m.store == nil {
		return history.ErrNotFound
	}
	conv, err := m.store.Get(id)
	if err != nil {
		return err
	}
	msgs := make([]Message, len(conv.Messages))
	for i, rec := range conv.Messages {
		msgs[i] = Message{Role: provider.Role(rec.Role), Content: rec.Content}
	}
	m.activeID = conv.ID
	m.messages = msgs
	return nil
}

// RenameConversation retitles a conversation; an empty id means the active
// one.
func (m *Manager) RenameConversation(id, title string) error {
	m.mu.Lock()
	active := m.activeID
	m.mu.Unlock()

	if id == "" {
		id = active
	}
	if id == "" || m.store == nil {
		return history.ErrNotFound
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is empty")
	}
	return m.store.Rename(id, title)
}

// DeleteConversation removes a stored conversation. Deleting the active
// one resets the session to the welcome state.
func (m *Manager) DeleteConversation(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.awaiting {
		return ErrConcurrentTurn
	}
	if m.store == nil {
		return history.ErrNotFound
	}
	if err := m.store.Delete(id); err != nil {
		return err
	}
	if id == m.activeID {
		m.resetLocked()
	}
	return nil
}

// Conversations returns the stored index in display buckets.
func (m *Manager) Conversations() []history.DateGroup {
	if m.store == nil {
		return nil
	}
	return m.store.ListGrouped()
}

func (m *Manager) resetLocked() {
	m.activeID = ""
	m.messages = []Message{WelcomeMessage(m.opts.WelcomeQuestions)}
}

// buildRequestLocked converts the transcript (minus the trailing
// placeholder) into the wire request. Prompt augmentation rewrites only the
// content being submitted, never the stored transcript.
func (m *Manager) buildRequestLocked(text string) *provider.ChatRequest {
	msgs := make([]provider.Message, 0, len(m.messages)-1)
	for _, msg := range m.messages[:len(m.messages)-1] {
		msgs = append(msgs, provider.Message{Role: msg.Role, Content: msg.Content})
	}
	if m.opts.PromptAugmentation != "" {
		msgs[len(msgs)-1].Content = strings.ReplaceAll(m.opts.PromptAugmentation, "{message}", text)
	}
	return &provider.ChatRequest{
		Model:       m.opts.Model,
		Messages:    msgs,
		Temperature: m.opts.Temperature,
		TopP:        m.opts.TopP,
	}
}

func (m *Manager) runTurn(ctx context.Context, req *provider.ChatRequest, acc *Accumulator, onUpdate func(string)) error {
	events, err := m.provider.Chat(ctx, req)
	if err != nil {
		return err
	}
	for ev := range events {
		switch ev.Type {
		case provider.EventTextDelta:
			acc.Append(ev.TextDelta)
			current := acc.Current()
			m.setLastContent(current)
			if onUpdate != nil {
				onUpdate(current)
			}
		case provider.EventError:
			return ev.Err
		case provider.EventDone:
		}
	}
	return nil
}

func (m *Manager) setLastContent(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLastContentLocked(content)
}

// setLastContentLocked replaces the trailing placeholder with a fresh
// Message value so consumers that diff by reference see the change.
func (m *Manager) setLastContentLocked(content string) {
	last := len(m.messages) - 1
	m.messages[last] = Message{Role: provider.RoleAssistant, Content: content}
}

func (m *Manager) resolveCanceledLocked() {
	m.messages = m.messages[:len(m.messages)-1]
	if m.opts.CancelNotice {
		m.messages = append(m.messages, Message{Role: provider.RoleSystem, Content: "Response canceled."})
	}
}

// resolveFailedLocked keeps any partial content already received, drops an
// empty placeholder, and appends the failure notice. The user message is
// never removed.
func (m *Manager) resolveFailedLocked(acc *Accumulator, err error) {
	if partial := acc.Final(); partial != "" {
		m.setLastContentLocked(partial)
	} else {
		m.messages = m.messages[:len(m.messages)-1]
	}
	m.messages = append(m.messages, Message{Role: provider.RoleSystem, Content: failureMessage(err)})
}

func failureMessage(err error) string {
	var remote *assistant.RemoteError
	var failed *assistant.RunFailedError
	switch {
	case errors.Is(err, assistant.ErrRunTimeout):
		return "The assistant took too long to respond. Please try again."
	case errors.As(err, &remote) && remote.RateLimited():
		return "You're sending messages too quickly. Please wait a moment and try again."
	case errors.As(err, &remote):
		return "The assistant is unreachable right now. Please try again in a moment."
	case errors.As(err, &failed):
		if failed.Reason != "" {
			return "The assistant could not complete a response: " + failed.Reason
		}
		return "The assistant could not complete a response. Please try again."
	default:
		return "Something went wrong while getting a response. Please try again."
	}
}

// persistLocked writes the whole transcript through the store: the first
// completed turn creates the conversation (titled from the first user
// message), later turns replace its message list and bump recency.
func (m *Manager) persistLocked() error {
	if m.store == nil {
		return nil
	}
	records := make([]history.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		records = append(records, history.Message{Role: string(msg.Role), Content: msg.Content})
	}
	if m.activeID == "" {
		id, err := m.store.Create(records)
		if err != nil {
			return fmt.Errorf("persist conversation: %w", err)
		}
		m.activeID = id
		return nil
	}
	if err := m.store.AppendTurn(m.activeID, records); err != nil {
		return fmt.Errorf("persist conversation: %w", err)
	}
	return nil
}
