package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// memKV is an in-memory KV for exercising the store without a backend.
type memKV struct {
	data map[string][]byte
	err  error // returned by Set when non-nil
	sets int
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key string, value []byte) error {
	if m.err != nil {
		return m.err
	}
	m.sets++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func newTestStore(t *testing.T, kv KV) *Store {
	t.Helper()
	s, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t, newMemKV())

	id, err := s.Create([]Message{
		{Role: "user", Content: "What is vibrato?"},
		{Role: "assistant", Content: "A periodic pitch oscillation."},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conv, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conv.Title != "What is vibrato?" {
		t.Errorf("title = %q, want %q", conv.Title, "What is vibrato?")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(conv.Messages))
	}
}

func TestTitleTruncation(t *testing.T) {
	s := newTestStore(t, newMemKV())

	long := ""
	for i := 0; i < 80; i++ {
		long += "a"
	}
	id, err := s.Create([]Message{{Role: "user", Content: long}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conv, _ := s.Get(id)
	want := long[:60] + "…"
	if conv.Title != want {
		t.Errorf("title = %q, want %q", conv.Title, want)
	}
}

func TestTitleFallback(t *testing.T) {
	s := newTestStore(t, newMemKV())

	id, err := s.Create([]Message{{Role: "assistant", Content: "Welcome."}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	conv, _ := s.Get(id)
	if conv.Title != "New conversation" {
		t.Errorf("title = %q, want fallback", conv.Title)
	}
}

func TestListOrdering(t *testing.T) {
	s := newTestStore(t, newMemKV())

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	first, _ := s.Create([]Message{{Role: "user", Content: "first"}})
	clock = clock.Add(time.Hour)
	second, _ := s.Create([]Message{{Role: "user", Content: "second"}})

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("got %d conversations, want 2", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("list order = [%s %s], want newest first", list[0].Title, list[1].Title)
	}

	// Appending to the older conversation moves it to the front.
	clock = clock.Add(time.Hour)
	if err := s.AppendTurn(first, []Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
	}); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	list = s.List()
	if list[0].ID != first {
		t.Errorf("after append, front = %s, want the appended conversation", list[0].Title)
	}
}

func TestAppendTurnReplacesTranscript(t *testing.T) {
	s := newTestStore(t, newMemKV())

	id, _ := s.Create([]Message{{Role: "user", Content: "hi"}})
	transcript := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "more"},
		{Role: "assistant", Content: "sure"},
	}
	if err := s.AppendTurn(id, transcript); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	conv, _ := s.Get(id)
	if len(conv.Messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(conv.Messages))
	}
	if conv.Messages[3].Content != "sure" {
		t.Errorf("last message = %q, want %q", conv.Messages[3].Content, "sure")
	}
}

func TestRenameDoesNotBumpDate(t *testing.T) {
	s := newTestStore(t, newMemKV())

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	id, _ := s.Create([]Message{{Role: "user", Content: "hi"}})
	created := clock
	clock = clock.Add(time.Hour)

	if err := s.Rename(id, "Bowing basics"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	conv, _ := s.Get(id)
	if conv.Title != "Bowing basics" {
		t.Errorf("title = %q, want %q", conv.Title, "Bowing basics")
	}
	if !conv.Date.Equal(created) {
		t.Errorf("date = %v, want unchanged %v", conv.Date, created)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, newMemKV())

	id, _ := s.Create([]Message{{Role: "user", Content: "hi"}})
	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("double Delete = %v, want ErrNotFound", err)
	}
}

func TestUnknownIDs(t *testing.T) {
	s := newTestStore(t, newMemKV())

	if err := s.AppendTurn("nope", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendTurn = %v, want ErrNotFound", err)
	}
	if err := s.Rename("nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Rename = %v, want ErrNotFound", err)
	}
}

func TestWriteThrough(t *testing.T) {
	kv := newMemKV()
	s := newTestStore(t, kv)

	id, _ := s.Create([]Message{{Role: "user", Content: "hi"}})
	if kv.sets != 1 {
		t.Fatalf("got %d writes after Create, want 1", kv.sets)
	}

	// A second store over the same KV sees the committed state.
	s2 := newTestStore(t, kv)
	if _, err := s2.Get(id); err != nil {
		t.Fatalf("reload Get: %v", err)
	}

	if err := s.AppendTurn(id, []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if kv.sets != 2 {
		t.Errorf("got %d writes after AppendTurn, want 2", kv.sets)
	}
}

func TestCreateRollsBackOnWriteFailure(t *testing.T) {
	kv := newMemKV()
	s := newTestStore(t, kv)

	kv.err = errors.New("disk full")
	if _, err := s.Create([]Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("Create succeeded despite write failure")
	}
	kv.err = nil
	if got := len(s.List()); got != 0 {
		t.Errorf("got %d conversations after failed Create, want 0", got)
	}
}

func TestSQLiteKVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	kv, err := NewSQLiteKV(path)
	if err != nil {
		t.Fatalf("NewSQLiteKV: %v", err)
	}
	defer kv.Close()

	if _, ok, err := kv.Get("conversations"); err != nil || ok {
		t.Fatalf("Get missing key = ok=%v err=%v, want absent", ok, err)
	}
	if err := kv.Set("conversations", []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set("conversations", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("overwrite Set: %v", err)
	}
	v, ok, err := kv.Get("conversations")
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v, want present", ok, err)
	}
	if string(v) != `[{"id":"a"}]` {
		t.Errorf("value = %s, want overwritten value", v)
	}
}

func TestFileKVRoundTrip(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}

	if _, ok, err := kv.Get("conversations"); err != nil || ok {
		t.Fatalf("Get missing key = ok=%v err=%v, want absent", ok, err)
	}
	if err := kv.Set("conversations", []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := kv.Get("conversations")
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v, want present", ok, err)
	}
	if string(v) != `[]` {
		t.Errorf("value = %s, want []", v)
	}
}
