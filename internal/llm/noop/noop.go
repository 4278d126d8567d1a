// Package noop is a model stand-in for dry runs and tests: it always ends
// the session on the first turn without trading.
package noop

import (
	"context"

	"ai-trader/internal/types"
)

type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) Complete(ctx context.Context, messages []types.Message, tools []types.ToolDescriptor) (*types.ModelResponse, error) {
	return &types.ModelResponse{
		Text: "No action taken. " + types.StopSignal,
	}, nil
}
