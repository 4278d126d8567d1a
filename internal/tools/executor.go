// Package tools executes structured tool calls against independently
// addressed HTTP endpoints. The orchestrator never interprets what a tool
// did financially; it only relays payloads and surfaces executed fills.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ai-trader/internal/trace"
	"ai-trader/internal/types"
)

// Tool binds one advertised descriptor to its endpoint.
type Tool struct {
	Descriptor types.ToolDescriptor
	URL        string
}

// HTTPExecutor is the ToolExecutor over plain HTTP round trips.
type HTTPExecutor struct {
	tools map[string]Tool
	http  *http.Client
}

func NewHTTPExecutor(timeout time.Duration, ts []Tool) *HTTPExecutor {
	m := make(map[string]Tool, len(ts))
	for _, t := range ts {
		m[t.Descriptor.Name] = t
	}
	return &HTTPExecutor{
		tools: m,
		http:  &http.Client{Timeout: timeout},
	}
}

// Descriptors lists every tool the model may request.
func (e *HTTPExecutor) Descriptors() []types.ToolDescriptor {
	out := make([]types.ToolDescriptor, 0, len(e.tools))
	for _, t := range e.tools {
		out = append(out, t.Descriptor)
	}
	return out
}

type invokeRequest struct {
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type invokeResponse struct {
	Trade *types.ExecutedTrade `json:"trade,omitempty"`
}

// Execute performs one call. Transport failures, timeouts and 5xx answers
// are transient; an unknown tool name is not, since retrying cannot fix it.
func (e *HTTPExecutor) Execute(ctx context.Context, call types.ToolCall) (types.ToolResult, error) {
	ctx, span := trace.StartSpan(ctx, "tools.Execute")
	defer span.End()

	tool, ok := e.tools[call.Name]
	if !ok {
		return types.ToolResult{}, fmt.Errorf("tools: unknown tool %q", call.Name)
	}
	if call.ID == "" {
		call.ID = uuid.NewString()
	}

	bb, err := json.Marshal(invokeRequest{CallID: call.ID, Name: call.Name, Arguments: call.Arguments})
	if err != nil {
		return types.ToolResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tool.URL, bytes.NewReader(bb))
	if err != nil {
		return types.ToolResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return types.ToolResult{}, &types.TransientError{Op: "tool " + call.Name, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return types.ToolResult{}, &types.TransientError{
			Op:  "tool " + call.Name,
			Err: fmt.Errorf("http %d: %s", resp.StatusCode, string(body)),
		}
	case resp.StatusCode >= 300:
		return types.ToolResult{}, fmt.Errorf("tool %s http %d: %s", call.Name, resp.StatusCode, string(body))
	}

	result := types.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: string(body),
	}
	// A trade endpoint reports fills under a well-known key; everything else
	// stays an opaque payload.
	var parsed invokeResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Trade != nil {
		result.Trade = parsed.Trade
	}
	return result, nil
}
