package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arcoai/arcochat/internal/history"
	"github.com/arcoai/arcochat/internal/provider"
	"github.com/arcoai/arcochat/internal/tui"
)

// REPL is the interactive loop between the user and the Manager.
type REPL struct {
	m  *Manager
	io tui.IO
}

// NewREPL creates a REPL over the given manager and IO.
func NewREPL(m *Manager, ui tui.IO) *REPL {
	return &REPL{m: m, io: ui}
}

// Run starts the interactive loop. It returns when the user quits or input
// reaches EOF.
func (r *REPL) Run(ctx context.Context) error {
	r.showWelcome()

	for {
		input, err := r.io.ReadInput()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if input == "" {
			continue
		}

		// Slash commands are intercepted before sending to the assistant.
		if strings.HasPrefix(input, "/") {
			handled, shouldQuit := r.handleSlashCommand(input)
			if shouldQuit {
				return nil
			}
			if handled {
				continue
			}
		}

		r.runTurn(ctx, input)
	}
}

// RunOnce executes a single message and exits (non-interactive mode).
func (r *REPL) RunOnce(ctx context.Context, text string) {
	r.runTurn(ctx, text)
}

func (r *REPL) runTurn(ctx context.Context, input string) {
	r.io.UserMessage(input)
	r.io.ThinkingStart()
	r.io.SetTurnCancel(r.m.CancelActiveTurn)
	defer r.io.ClearTurnCancel()

	before := len(r.m.Messages())

	// The manager reports sanitized cumulative content; emit only the
	// grown suffix so the UI sees plain deltas.
	var shown string
	err := r.m.SendMessage(ctx, input, func(content string) {
		if strings.HasPrefix(content, shown) {
			r.io.TextDelta(content[len(shown):])
		}
		shown = content
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentTurn) {
			r.io.Error("A response is already in progress.")
			return
		}
		r.io.Error(err.Error())
	}

	// Render the turn's outcome: the finalized assistant message (if any)
	// and any failure or cancel notice.
	msgs := r.m.Messages()
	if before > len(msgs) {
		before = 0
	}
	var final string
	var notices []string
	for _, msg := range msgs[before:] {
		switch msg.Role {
		case provider.RoleAssistant:
			final = msg.Content
		case provider.RoleSystem:
			notices = append(notices, msg.Content)
		}
	}
	r.io.TextDone(final)
	for _, notice := range notices {
		r.io.SystemMessage(notice)
	}
}

// showWelcome renders the current transcript's opening state.
func (r *REPL) showWelcome() {
	for _, msg := range r.m.Messages() {
		if msg.Role != provider.RoleAssistant {
			continue
		}
		r.io.SystemMessage(msg.Content)
		if len(msg.SampleQuestions) > 0 {
			var sb strings.Builder
			sb.WriteString("Try asking:")
			for _, q := range msg.SampleQuestions {
				sb.WriteString("\n  • " + q)
			}
			r.io.SystemMessage(sb.String())
		}
	}
}

// handleSlashCommand processes built-in commands.
// Returns (handled, shouldQuit).
func (r *REPL) handleSlashCommand(input string) (bool, bool) {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		r.io.SystemMessage("Bye.")
		return true, true
	case "/new":
		if err := r.m.NewConversation(); err != nil {
			r.io.Error(err.Error())
			return true, false
		}
		r.io.SystemMessage("Started a new conversation.")
		r.showWelcome()
		return true, false
	case "/conversations":
		return r.handleConversations(), false
	case "/select":
		return r.handleSelect(arg), false
	case "/rename":
		return r.handleRename(arg), false
	case "/delete":
		return r.handleDelete(arg), false
	case "/history":
		r.io.SystemMessage(formatTranscript(r.m.Messages()))
		return true, false
	case "/help":
		return r.handleHelp(), false
	default:
		return false, false
	}
}

func (r *REPL) handleHelp() bool {
	help := `Available commands:
  /help              Show this help message
  /new               Start a new conversation
  /conversations     List saved conversations
  /select <id>       Switch to a saved conversation (use short ID prefix)
  /rename <title>    Rename the active conversation
  /delete <id>       Delete a conversation (use short ID prefix)
  /history           Show the active transcript
  /quit              Exit`
	r.io.SystemMessage(help)
	return true
}

func (r *REPL) handleConversations() bool {
	groups := r.m.Conversations()
	if len(groups) == 0 {
		r.io.SystemMessage("No saved conversations.")
		return true
	}

	active := r.m.ActiveID()
	var sb strings.Builder
	for _, g := range groups {
		sb.WriteString(g.Label + "\n")
		for _, c := range g.Conversations {
			marker := " "
			if c.ID == active {
				marker = "*"
			}
			fmt.Fprintf(&sb, "  %s %s  %s\n", marker, shortID(c.ID, 8), c.Title)
		}
	}
	sb.WriteString("Use /select <id> to switch.")
	r.io.SystemMessage(sb.String())
	return true
}

func (r *REPL) handleSelect(idPrefix string) bool {
	if idPrefix == "" {
		r.io.SystemMessage("Usage: /select <conversation-id-prefix>")
		return true
	}
	conv, ok := r.resolveID(idPrefix)
	if !ok {
		return true
	}
	if err := r.m.SelectConversation(conv.ID); err != nil {
		r.io.Error(err.Error())
		return true
	}
	r.io.SystemMessage(fmt.Sprintf("Switched to %q.", conv.Title))
	r.io.SystemMessage(formatTranscript(r.m.Messages()))
	return true
}

func (r *REPL) handleRename(title string) bool {
	if title == "" {
		r.io.SystemMessage("Usage: /rename <new title>")
		return true
	}
	if err := r.m.RenameConversation("", title); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			r.io.SystemMessage("Nothing to rename yet — send a message first.")
			return true
		}
		r.io.Error(err.Error())
		return true
	}
	r.io.SystemMessage(fmt.Sprintf("Renamed to %q.", title))
	return true
}

func (r *REPL) handleDelete(idPrefix string) bool {
	if idPrefix == "" {
		r.io.SystemMessage("Usage: /delete <conversation-id-prefix>")
		return true
	}
	conv, ok := r.resolveID(idPrefix)
	if !ok {
		return true
	}
	wasActive := conv.ID == r.m.ActiveID()
	if err := r.m.DeleteConversation(conv.ID); err != nil {
		r.io.Error(err.Error())
		return true
	}
	r.io.SystemMessage(fmt.Sprintf("Deleted %q.", conv.Title))
	if wasActive {
		r.showWelcome()
	}
	return true
}

// resolveID matches an id prefix against the stored index. Ambiguous
// prefixes list the candidates instead of guessing.
func (r *REPL) resolveID(idPrefix string) (history.Conversation, bool) {
	var matches []history.Conversation
	for _, g := range r.m.Conversations() {
		for _, c := range g.Conversations {
			if strings.HasPrefix(c.ID, idPrefix) {
				matches = append(matches, c)
			}
		}
	}

	switch len(matches) {
	case 0:
		r.io.Error(fmt.Sprintf("No conversation found matching prefix %q", idPrefix))
		return history.Conversation{}, false
	case 1:
		return matches[0], true
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "Ambiguous prefix %q matches %d conversations:\n", idPrefix, len(matches))
		for _, m := range matches {
			fmt.Fprintf(&sb, "  %s  %s\n", shortID(m.ID, 12), m.Title)
		}
		sb.WriteString("Provide a longer prefix.")
		r.io.SystemMessage(sb.String())
		return history.Conversation{}, false
	}
}

func formatTranscript(messages []Message) string {
	if len(messages) == 0 {
		return "No history."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n=== Transcript (%d messages) ===\n", len(messages))
	for i, msg := range messages {
		fmt.Fprintf(&sb, "[%d] %s: %s\n", i, msg.Role, truncate(msg.Content, 100))
	}
	sb.WriteString("===")
	return sb.String()
}

// shortID abbreviates an id for display. Ids from the store are 32 hex
// chars, but a hand-edited index may hold shorter ones.
func shortID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
