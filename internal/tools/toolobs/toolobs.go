// Package toolobs wraps a ToolExecutor with logging and tracing middleware.
package toolobs

import (
	"context"
	"time"

	"ai-trader/internal/interfaces"
	"ai-trader/internal/logger"
	"ai-trader/internal/trace"
	"ai-trader/internal/types"
)

type observableExecutor struct {
	exec interfaces.ToolExecutor
}

var _ interfaces.ToolExecutor = (*observableExecutor)(nil)

func Wrap(exec interfaces.ToolExecutor) interfaces.ToolExecutor {
	return &observableExecutor{exec: exec}
}

func (oe *observableExecutor) Descriptors() []types.ToolDescriptor {
	return oe.exec.Descriptors()
}

func (oe *observableExecutor) Execute(ctx context.Context, call types.ToolCall) (types.ToolResult, error) {
	ctx, span := trace.StartSpan(ctx, "tool."+call.Name)
	defer span.End()

	start := time.Now()
	result, err := oe.exec.Execute(ctx, call)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Tool call failed", err,
			"tool", call.Name,
			"call_id", call.ID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.ToolResult{}, err
	}

	logger.DebugSkip(ctx, 1, "Tool call completed",
		"tool", call.Name,
		"call_id", result.CallID,
		"traded", result.Trade != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
