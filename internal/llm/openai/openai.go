// Package openai implements the ModelClient interface against an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
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

// NewClient builds a client for one signature's base model. The endpoint can
// be redirected to a proxy via OPENAI_API_ENDPOINT.
func NewClient(cfg *store.Config, basemodel string) *Client {
	endpoint := "https://api.openai.com/v1/chat/completions"
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
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

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

type wireResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the full conversation plus tool descriptors and returns the
// model's turn. Missing credentials are fatal; transport and server-side
// failures are transient.
func (c *Client) Complete(ctx context.Context, messages []types.Message, tools []types.ToolDescriptor) (*types.ModelResponse, error) {
	ctx, span := trace.StartSpan(ctx, "openai.Complete")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, &types.CredentialError{Name: "OPENAI_API_KEY"}
	}

	wireMsgs := make([]wireMessage, 0, len(messages)+1)
	if sys := c.cfg.LLM.System; sys != "" {
		wireMsgs = append(wireMsgs, wireMessage{Role: "system", Content: sys})
	}
	for _, m := range messages {
		wireMsgs = append(wireMsgs, wireMessage{Role: m.Role, Content: m.Content})
	}

	wireTools := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		var wt wireTool
		wt.Type = "function"
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Parameters
		wireTools = append(wireTools, wt)
	}

	reqBody := map[string]any{
		"model":    c.model,
		"messages": wireMsgs,
	}
	if len(wireTools) > 0 {
		reqBody["tools"] = wireTools
	}
	if c.cfg.LLM.MaxTokens > 0 {
		reqBody["max_tokens"] = c.cfg.LLM.MaxTokens
	}
	if c.cfg.LLM.Temperature > 0 {
		reqBody["temperature"] = c.cfg.LLM.Temperature
	}

	bb, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bb))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.TransientError{Op: "openai request", Err: err}
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &types.CredentialError{Name: "OPENAI_API_KEY"}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &types.TransientError{
			Op:  "openai request",
			Err: fmt.Errorf("http %d: %s", resp.StatusCode, string(respBytes)),
		}
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("openai http %d: %s", resp.StatusCode, string(respBytes))
	}

	var wire wireResponse
	if err := json.Unmarshal(respBytes, &wire); err != nil {
		return nil, fmt.Errorf("openai: decoding response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}

	msg := wire.Choices[0].Message
	out := &types.ModelResponse{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			// Malformed arguments become an empty map; the tool endpoint
			// reports its own validation error.
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		out.ToolCalls = append(out.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}
