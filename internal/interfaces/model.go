package interfaces

import (
	"context"

	"ai-trader/internal/types"
)

// ModelClient is the language-model collaborator. Each call is a pure
// request/response over the full conversation so far; the orchestrator keeps
// all state.
type ModelClient interface {
	Complete(ctx context.Context, messages []types.Message, tools []types.ToolDescriptor) (*types.ModelResponse, error)
}
