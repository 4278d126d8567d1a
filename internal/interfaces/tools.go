package interfaces

import (
	"context"

	"ai-trader/internal/types"
)

// ToolExecutor runs one structured tool call against its endpoint. A call is
// a black-box synchronous round trip that may fail transiently.
type ToolExecutor interface {
	Execute(ctx context.Context, call types.ToolCall) (types.ToolResult, error)
	Descriptors() []types.ToolDescriptor
}
