// Package llmobs wraps a ModelClient with logging and tracing middleware.
package llmobs

import (
	"context"
	"time"

	"ai-trader/internal/interfaces"
	"ai-trader/internal/logger"
	"ai-trader/internal/trace"
	"ai-trader/internal/types"
)

type observableClient struct {
	client interfaces.ModelClient
}

var _ interfaces.ModelClient = (*observableClient)(nil)

func Wrap(client interfaces.ModelClient) interfaces.ModelClient {
	return &observableClient{client: client}
}

func (oc *observableClient) Complete(ctx context.Context, messages []types.Message, tools []types.ToolDescriptor) (*types.ModelResponse, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Requesting model turn",
		"messages", len(messages),
		"tools", len(tools),
	)

	resp, err := oc.client.Complete(ctx, messages, tools)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Model turn failed", err,
			"messages", len(messages),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Model turn received",
		"tool_calls", len(resp.ToolCalls),
		"text_len", len(resp.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
