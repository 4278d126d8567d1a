// Package claude implements the ModelClient interface against the Anthropic
// messages API.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ai-trader/internal/store"
	"ai-trader/internal/trace"
	"ai-trader/internal/types"
)

type Client struct {
	cfg      *store.Config
	model    string
	endpoint string
	http     *http.Client
}

// NewClient builds a client for one signature's base model. Proxy or
// gateway deployments can override the endpoint via CLAUDE_API_ENDPOINT.
func NewClient(cfg *store.Config, basemodel string) *Client {
	endpoint := "https://api.anthropic.com/v1/messages"
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	model := basemodel
	if model == "" {
		model = cfg.LLM.Model
	}
	return &Client{
		cfg:      cfg,
		model:    model,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

type wireBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

type wireResponse struct {
	Content []wireBlock `json:"content"`
}

func (c *Client) Complete(ctx context.Context, messages []types.Message, tools []types.ToolDescriptor) (*types.ModelResponse, error) {
	ctx, span := trace.StartSpan(ctx, "claude.Complete")
	defer span.End()

	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return nil, &types.CredentialError{Name: "CLAUDE_API_KEY"}
	}

	wireMsgs := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		// The messages API only accepts user/assistant turns; tool payloads
		// travel back as user content.
		if role != "assistant" {
			role = "user"
		}
		wireMsgs = append(wireMsgs, map[string]string{"role": role, "content": m.Content})
	}

	wireTools := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		wireTools = append(wireTools, wireTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	maxTokens := c.cfg.LLM.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	reqBody := map[string]any{
		"model":      c.model,
		"messages":   wireMsgs,
		"max_tokens": maxTokens,
	}
	if sys := c.cfg.LLM.System; sys != "" {
		reqBody["system"] = sys
	}
	if len(wireTools) > 0 {
		reqBody["tools"] = wireTools
	}
	if c.cfg.LLM.Temperature > 0 {
		reqBody["temperature"] = c.cfg.LLM.Temperature
	}

	bb, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bb))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.TransientError{Op: "claude request", Err: err}
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &types.CredentialError{Name: "CLAUDE_API_KEY"}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &types.TransientError{
			Op:  "claude request",
			Err: fmt.Errorf("http %d: %s", resp.StatusCode, string(respBytes)),
		}
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("claude http %d: %s", resp.StatusCode, string(respBytes))
	}

	var wire wireResponse
	if err := json.Unmarshal(respBytes, &wire); err != nil {
		return nil, fmt.Errorf("claude: decoding response: %w", err)
	}

	out := &types.ModelResponse{}
	var text strings.Builder
	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, types.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	out.Text = text.String()
	return out, nil
}
