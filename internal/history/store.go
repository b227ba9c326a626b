package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// indexKey is the single KV key holding the whole conversation index as a
// JSON array, sorted by date descending.
const indexKey = "conversations"

// ErrNotFound reports an unknown conversation id.
var ErrNotFound = errors.New("conversation not found")

// Store is the durable conversation index. Every mutating operation
// rewrites the index through the KV before returning.
type Store struct {
	mu    sync.Mutex
	kv    KV
	convs []Conversation // sorted by Date descending

	// now is replaceable for tests.
	now func() time.Time
}

// NewStore loads the persisted index from kv (missing key means an empty
// history).
func NewStore(kv KV) (*Store, error) {
	s := &Store{kv: kv, now: time.Now}

	data, ok, err := kv.Get(indexKey)
	if err != nil {
		return nil, fmt.Errorf("load conversation index: %w", err)
	}
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &s.convs); err != nil {
			return nil, fmt.Errorf("decode conversation index: %w", err)
		}
	}
	s.sortByDate()
	return s, nil
}

// Create saves a new conversation and returns its id. The title defaults
// to the first user message.
func (s *Store) Create(messages []Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := Conversation{
		ID:       newID(),
		Title:    deriveTitle(messages),
		Date:     s.now(),
		Messages: append([]Message(nil), messages...),
	}
	s.convs = append(s.convs, conv)
	if err := s.flushLocked(); err != nil {
		s.convs = s.convs[:len(s.convs)-1]
		return "", err
	}
	return conv.ID, nil
}

// AppendTurn replaces the conversation's message list with the finalized
// transcript and bumps its last activity.
func (s *Store) AppendTurn(id string, messages []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.convs[i].Messages = append([]Message(nil), messages...)
	s.convs[i].Date = s.now()
	return s.flushLocked()
}

// Rename sets the conversation's title. It does not bump last activity.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.convs[i].Title = title
	return s.flushLocked()
}

// Delete removes the conversation. Deleting an unknown id is an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.convs = append(s.convs[:i], s.convs[i+1:]...)
	return s.flushLocked()
}

// Get returns a copy of the conversation.
func (s *Store) Get(id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyConversation(s.convs[i]), nil
}

// List returns all conversations sorted by last activity, newest first.
func (s *Store) List() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = copyConversation(c)
	}
	return out
}

// ListGrouped returns the index partitioned into display buckets
// (Today, Yesterday, then older days descending).
func (s *Store) ListGrouped() []DateGroup {
	return GroupByDate(s.List(), s.now())
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.convs {
		if s.convs[i].ID == id {
			return i
		}
	}
	return -1
}

// flushLocked writes the whole index through the KV, newest first.
func (s *Store) flushLocked() error {
	s.sortByDate()
	data, err := json.Marshal(s.convs)
	if err != nil {
		return fmt.Errorf("encode conversation index: %w", err)
	}
	if err := s.kv.Set(indexKey, data); err != nil {
		return fmt.Errorf("persist conversation index: %w", err)
	}
	return nil
}

func (s *Store) sortByDate() {
	sort.SliceStable(s.convs, func(i, j int) bool {
		return s.convs[i].Date.After(s.convs[j].Date)
	})
}

func copyConversation(c Conversation) Conversation {
	c.Messages = append([]Message(nil), c.Messages...)
	return c
}
