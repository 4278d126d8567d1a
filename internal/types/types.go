package types

// ReservedCash is the ledger key for uninvested funds. Every snapshot
// carries it, even when the value is zero.
const ReservedCash = "CASH"

// StopSignal is the marker token the model emits to end a session. The loop
// treats any response containing it as terminal.
const StopSignal = "<END_OF_SESSION>"

// Snapshot is one committed portfolio state for a signature. Records on the
// same date are ordered by ID; the latest snapshot is max(date, id).
type Snapshot struct {
	Date      string             `json:"date"`
	ID        int                `json:"id"`
	Action    *Action            `json:"this_action,omitempty"`
	Positions map[string]float64 `json:"positions"`
}

// Action describes the trade (or explicit no-trade) that produced a snapshot.
type Action struct {
	Action string  `json:"action"`
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
}

// Message is one unit of the session conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the round-trip response for one tool call.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	// Trade carries the executed trade when the call hit a trade endpoint
	// and the order filled. Nil otherwise.
	Trade *ExecutedTrade `json:"trade,omitempty"`
}

// ExecutedTrade is a fill reported by the trade tool. The session folds
// fills into the next ledger snapshot after the loop terminates.
type ExecutedTrade struct {
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"` // "buy" or "sell"
	Amount    float64 `json:"amount"`
	FillPrice float64 `json:"fill_price"`
}

// ToolDescriptor advertises one callable tool to the model.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ModelResponse is one turn from the model layer: free text (which may
// contain the finish marker) and/or tool-call requests.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Outcome is the terminal state of one trading session.
type Outcome string

const (
	OutcomeFinished Outcome = "FINISHED"
	OutcomeMaxSteps Outcome = "MAX_STEPS"
	OutcomeFailed   Outcome = "FAILED"
)

// SessionReport summarizes one terminated session. Ephemeral: only the log
// and the runtime-env flag outlive it.
type SessionReport struct {
	Signature string
	Date      string
	Outcome   Outcome
	Steps     int
	Retries   int
	Trades    []ExecutedTrade
	FinalText string
}
