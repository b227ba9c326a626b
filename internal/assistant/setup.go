package assistant

import (
	"context"
	"fmt"
	"net/http"
)

// AssistantConfig describes the hosted assistant created by `arcochat setup`.
type AssistantConfig struct {
	Name          string
	Model         string
	Instructions  string
	VectorStoreID string
}

func assistantBody(cfg AssistantConfig) map[string]any {
	body := map[string]any{
		"name":         cfg.Name,
		"model":        cfg.Model,
		"instructions": cfg.Instructions,
		"tools":        []map[string]any{{"type": "file_search"}},
	}
	if cfg.VectorStoreID != "" {
		body["tool_resources"] = map[string]any{
			"file_search": map[string]any{
				"vector_store_ids": []string{cfg.VectorStoreID},
			},
		}
	}
	return body
}

// CreateAssistant provisions a new hosted assistant with the file-search
// tool bound to the configured vector store. Returns the assistant ID.
func (c *HTTPClient) CreateAssistant(ctx context.Context, cfg AssistantConfig) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/assistants", assistantBody(cfg), &out); err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return out.ID, nil
}

// UpdateAssistant applies cfg to an existing assistant.
func (c *HTTPClient) UpdateAssistant(ctx context.Context, id string, cfg AssistantConfig) error {
	if err := c.do(ctx, http.MethodPost, "/assistants/"+id, assistantBody(cfg), nil); err != nil {
		return fmt.Errorf("update assistant: %w", err)
	}
	return nil
}
