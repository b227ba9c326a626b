// Package history persists named conversations across sessions. The store
// keeps a recency-ordered index of conversations in a durable key-value
// capability and projects it into date buckets for display.
package history

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Message is the persisted form of one transcript entry. Display-only
// fields (sample questions) are intentionally not persisted.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is one saved conversation record.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"` // last activity
	Messages []Message `json:"messages"`
}

const maxTitleRunes = 60

// newID returns a 16-byte random hex identifier.
func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

// deriveTitle picks the conversation title from the first user message,
// truncated on a rune boundary.
func deriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		title := strings.TrimSpace(m.Content)
		runes := []rune(title)
		if len(runes) > maxTitleRunes {
			title = string(runes[:maxTitleRunes]) + "…"
		}
		if title != "" {
			return title
		}
	}
	return "New conversation"
}
