// Package session drives one trading session's conversation with the model
// and tool layer to a terminal state, then commits the result to the ledger.
package session

import (
	"context"
	"fmt"
	"strings"

	"ai-trader/internal/interfaces"
	"ai-trader/internal/logger"
	"ai-trader/internal/runtimeenv"
	"ai-trader/internal/sessionlog"
	"ai-trader/internal/trace"
	"ai-trader/internal/types"
)

// State is one node of the trading loop state machine.
type State string

const (
	StateStart         State = "START"
	StateAwaitingModel State = "AWAITING_MODEL"
	StateToolRequested State = "TOOL_REQUESTED"
	StateFinished      State = "FINISHED"
	StateMaxSteps      State = "MAX_STEPS_EXCEEDED"
)

// OpeningBuilder constructs the session opening message: current position
// snapshot, latest prices and instructions for the date.
type OpeningBuilder func(date string, position types.Snapshot) (string, error)

// Loop runs one session for one signature. The step ceiling makes the loop
// finite regardless of what the model does; hitting it is a soft stop, not a
// failure, and whatever trades executed up to that point are still committed.
type Loop struct {
	Signature string
	Model     interfaces.ModelClient
	Tools     interfaces.ToolExecutor
	Ledger    interfaces.Ledger
	Env       interfaces.EnvStore
	Log       *sessionlog.Writer
	MaxSteps  int
	Opening   OpeningBuilder
}

// Run drives the machine from START to a terminal state for the given date
// and appends exactly one ledger snapshot afterwards. Model and tool errors
// abort the attempt and propagate to the retry driver unchanged.
func (l *Loop) Run(ctx context.Context, date string) (*types.SessionReport, error) {
	ctx, span := trace.StartSpan(ctx, "session.Run")
	defer span.End()

	opening, err := l.start(ctx, date)
	if err != nil {
		return nil, err
	}

	conversation := []types.Message{{Role: "user", Content: opening}}
	l.logEntry(ctx, date, "user", opening)

	var (
		state     = StateAwaitingModel
		steps     int
		trades    []types.ExecutedTrade
		finalText string
	)

	for state != StateFinished && state != StateMaxSteps {
		if steps >= l.MaxSteps {
			state = StateMaxSteps
			break
		}
		steps++
		logger.Debug(ctx, "Session step", "signature", l.Signature, "date", date, "step", steps, "max_steps", l.MaxSteps)

		resp, err := l.Model.Complete(ctx, conversation, l.Tools.Descriptors())
		if err != nil {
			return nil, err
		}

		if resp.Text != "" {
			conversation = append(conversation, types.Message{Role: "assistant", Content: resp.Text})
			l.logEntry(ctx, date, "assistant", resp.Text)
		}

		if strings.Contains(resp.Text, types.StopSignal) {
			state = StateFinished
			finalText = resp.Text
			break
		}

		if len(resp.ToolCalls) == 0 {
			// No marker and nothing to execute; give the model another turn.
			continue
		}

		state = StateToolRequested
		results, err := l.executeTools(ctx, date, resp.ToolCalls, &trades)
		if err != nil {
			return nil, err
		}
		folded := "Tool results:\n" + strings.Join(results, "\n")
		conversation = append(conversation, types.Message{Role: "user", Content: folded})
		l.logEntry(ctx, date, "user", folded)
		state = StateAwaitingModel
	}

	report := &types.SessionReport{
		Signature: l.Signature,
		Date:      date,
		Steps:     steps,
		Trades:    trades,
		FinalText: finalText,
	}
	if state == StateFinished {
		report.Outcome = types.OutcomeFinished
	} else {
		report.Outcome = types.OutcomeMaxSteps
		logger.Warn(ctx, "Session hit step ceiling", "signature", l.Signature, "date", date, "steps", steps)
	}

	if err := l.commit(ctx, date, trades); err != nil {
		return nil, err
	}
	return report, nil
}

// start records the session date in the runtime env, clears the trade flag
// and builds the opening message from the committed position.
func (l *Loop) start(ctx context.Context, date string) (string, error) {
	position, err := l.Ledger.Latest(l.Signature)
	if err != nil {
		return "", err
	}
	if err := l.Env.Set(l.Signature, runtimeenv.KeyTodayDate, date); err != nil {
		return "", err
	}
	if err := l.Env.Set(l.Signature, runtimeenv.KeyIfTrade, "false"); err != nil {
		return "", err
	}
	if err := l.Env.Set(l.Signature, runtimeenv.KeyLogFile, l.Log.Filepath(date)); err != nil {
		return "", err
	}
	return l.Opening(date, position)
}

// executeTools runs the requested calls in order and folds results into
// strings for the conversation. Fills are accumulated for the final commit.
func (l *Loop) executeTools(ctx context.Context, date string, calls []types.ToolCall, trades *[]types.ExecutedTrade) ([]string, error) {
	results := make([]string, 0, len(calls))
	for _, call := range calls {
		result, err := l.Tools.Execute(ctx, call)
		if err != nil {
			return nil, err
		}
		l.logEntry(ctx, date, "tool", result.Content)
		results = append(results, result.Content)
		if result.Trade != nil {
			*trades = append(*trades, *result.Trade)
			if err := l.Env.Set(l.Signature, runtimeenv.KeyIfTrade, "true"); err != nil {
				logger.Warn(ctx, "Failed to persist trade flag", "signature", l.Signature, "error", err)
			}
		}
	}
	return results, nil
}

// commit folds executed trades into a new snapshot and appends it. This is
// the only ledger write of the session, done once after the terminal state
// so partial-session artifacts never land.
func (l *Loop) commit(ctx context.Context, date string, trades []types.ExecutedTrade) error {
	latest, err := l.Ledger.Latest(l.Signature)
	if err != nil {
		return err
	}

	positions := make(map[string]float64, len(latest.Positions))
	for sym, qty := range latest.Positions {
		positions[sym] = qty
	}
	var action *types.Action
	for _, tr := range trades {
		cost := tr.FillPrice * tr.Amount
		if tr.Side == "buy" {
			positions[types.ReservedCash] -= cost
			positions[tr.Symbol] += tr.Amount
		} else {
			positions[tr.Symbol] -= tr.Amount
			positions[types.ReservedCash] += cost
		}
		action = &types.Action{Action: tr.Side, Symbol: tr.Symbol, Amount: tr.Amount}
	}

	snap := types.Snapshot{Date: date, Action: action, Positions: positions}
	if err := l.Ledger.Append(l.Signature, snap); err != nil {
		return fmt.Errorf("committing session %s: %w", date, err)
	}
	logger.Info(ctx, "Session committed", "signature", l.Signature, "date", date, "trades", len(trades))
	return nil
}

// logEntry appends to the session audit log. Best effort: a logging failure
// never aborts the session.
func (l *Loop) logEntry(ctx context.Context, date, role, content string) {
	if err := l.Log.Append(date, role, content); err != nil {
		logger.Warn(ctx, "Session log write failed", "signature", l.Signature, "date", date, "role", role, "error", err)
	}
}
