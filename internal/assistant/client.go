// Package assistant talks to the hosted assistants API (OpenAI Assistants
// v2): thread creation, message submission, run execution, status polling,
// streaming, and final message retrieval. It also implements the unified
// provider interface on top of that protocol (see provider.go).
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	betaHeader     = "assistants=v2"
)

// RunStatus is the remote-reported state of a run.
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusExpired        RunStatus = "expired"
	StatusCancelled      RunStatus = "cancelled"
)

// Terminal reports whether the run will make no further progress.
// requires_action is non-terminal: without tool execution support the run
// either times out remotely (expired) or locally (poll budget).
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// RunConfig is the pass-through configuration for starting a run.
type RunConfig struct {
	AssistantID string
	Model       string
	Temperature float64
	TopP        float64

	// VectorStoreID overrides the assistant's file-search corpus for this
	// run. Empty keeps the assistant's own binding.
	VectorStoreID string
}

// ThreadMessage is one finalized message fetched from a thread.
type ThreadMessage struct {
	Role      string
	Text      string
	CreatedAt time.Time
}

// Client is the remote conversation contract the session layer drives.
// Every operation aborts promptly when ctx is canceled.
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	PostMessage(ctx context.Context, threadID, role, content string) error
	StartRun(ctx context.Context, threadID string, cfg RunConfig) (string, error)
	// PollRunStatus returns the run's current status plus the remote
	// failure reason, if any.
	PollRunStatus(ctx context.Context, threadID, runID string) (RunStatus, string, error)
	// FetchMessages returns the thread's messages, most recent first.
	FetchMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)
	// StreamRun starts a run with streaming enabled and emits incremental
	// events until the run reaches a terminal state.
	StreamRun(ctx context.Context, threadID string, cfg RunConfig) (<-chan StreamEvent, error)
}

// HTTPClient implements Client against the REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the given API key. baseURL overrides
// the production endpoint (used by tests and proxies); empty means default.
func NewHTTPClient(apiKey, baseURL string) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

func (c *HTTPClient) CreateThread(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &out); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return out.ID, nil
}

func (c *HTTPClient) PostMessage(ctx context.Context, threadID, role, content string) error {
	body := map[string]any{
		"role":    role,
		"content": content,
	}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", body, nil); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// runBody builds the run creation payload. Sampling fields are omitted
// when zero so the hosted assistant's own defaults apply.
func runBody(cfg RunConfig, stream bool) map[string]any {
	body := map[string]any{
		"assistant_id": cfg.AssistantID,
	}
	if cfg.Model != "" {
		body["model"] = cfg.Model
	}
	if cfg.Temperature > 0 {
		body["temperature"] = cfg.Temperature
	}
	if cfg.TopP > 0 {
		body["top_p"] = cfg.TopP
	}
	if cfg.VectorStoreID != "" {
		body["tool_resources"] = map[string]any{
			"file_search": map[string]any{
				"vector_store_ids": []string{cfg.VectorStoreID},
			},
		}
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (c *HTTPClient) StartRun(ctx context.Context, threadID string, cfg RunConfig) (string, error) {
	var out struct {
		ID     string    `json:"id"`
		Status RunStatus `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", runBody(cfg, false), &out); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return out.ID, nil
}

func (c *HTTPClient) PollRunStatus(ctx context.Context, threadID, runID string) (RunStatus, string, error) {
	var out struct {
		Status    RunStatus `json:"status"`
		LastError *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"last_error"`
	}
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &out); err != nil {
		return "", "", fmt.Errorf("poll run: %w", err)
	}
	reason := ""
	if out.LastError != nil {
		reason = out.LastError.Message
	}
	return out.Status, reason, nil
}

func (c *HTTPClient) FetchMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	var out struct {
		Data []struct {
			Role      string `json:"role"`
			CreatedAt int64  `json:"created_at"`
			Content   []struct {
				Type string `json:"type"`
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	msgs := make([]ThreadMessage, 0, len(out.Data))
	for _, m := range out.Data {
		var text string
		for _, c := range m.Content {
			if c.Type == "text" {
				text += c.Text.Value
			}
		}
		msgs = append(msgs, ThreadMessage{
			Role:      m.Role,
			Text:      text,
			CreatedAt: time.Unix(m.CreatedAt, 0),
		})
	}
	return msgs, nil
}

// do performs one JSON request. Transport failures and non-2xx responses
// both come back as *RemoteError.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", betaHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// readAPIError extracts the server-provided message from an error response.
func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := ""
	if json.Unmarshal(data, &parsed) == nil {
		msg = parsed.Error.Message
	}
	return &RemoteError{StatusCode: resp.StatusCode, Message: msg}
}
