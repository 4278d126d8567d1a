package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ai-trader/internal/interfaces"
	"ai-trader/internal/ledger"
	"ai-trader/internal/market"
	"ai-trader/internal/runtimeenv"
	"ai-trader/internal/store"
	"ai-trader/internal/types"
)

// dateAwareModel finishes every session immediately, except a configured
// stuck date where it never emits the finish marker.
type dateAwareModel struct {
	stuckDate string
	err       error
	calls     int
}

func (m *dateAwareModel) Complete(ctx context.Context, messages []types.Message, tools []types.ToolDescriptor) (*types.ModelResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	opening := messages[0].Content
	if m.stuckDate != "" && strings.Contains(opening, "Session date: "+m.stuckDate) {
		return &types.ModelResponse{Text: "still deliberating"}, nil
	}
	return &types.ModelResponse{Text: "Holding. " + types.StopSignal}, nil
}

type nopTools struct{}

func (nopTools) Descriptors() []types.ToolDescriptor { return nil }

func (nopTools) Execute(ctx context.Context, call types.ToolCall) (types.ToolResult, error) {
	return types.ToolResult{CallID: call.ID, Name: call.Name, Content: "{}"}, nil
}

func testConfig(dir string) *store.Config {
	cfg := &store.Config{
		AgentType:   "crypto",
		DataDir:     dir,
		Granularity: "day",
	}
	cfg.DateRange.InitDate = "2025-10-01"
	cfg.DateRange.EndDate = "2025-10-03"
	cfg.Agent.MaxSteps = 5
	cfg.Agent.MaxRetries = 1
	cfg.Agent.InitialCash = 10000
	cfg.Agent.DefaultSymbols = []string{"BTC"}
	cfg.Models = []store.ModelConfig{{Signature: "sig-a", Basemodel: "gpt-4o", Enabled: true}}
	return cfg
}

func newTestRunner(t *testing.T, dir string, model *dateAwareModel) (*Runner, interfaces.Ledger) {
	t.Helper()
	led := ledger.NewStore(dir)
	deps := Deps{
		Cfg:      testConfig(dir),
		Ledger:   led,
		Env:      runtimeenv.NewStore(dir),
		Recorder: market.NewTracker(dir),
		Tools:    nopTools{},
		History:  market.EmptyHistory("BTC"),
		NewModel: func(basemodel string) interfaces.ModelClient { return model },
	}
	return NewCryptoRunner(deps, deps.Cfg.Models[0]), led
}

func ledgerDates(t *testing.T, dir string) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "agent_data", "sig-a", "position", "position.jsonl"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var snap types.Snapshot
		if err := json.Unmarshal(sc.Bytes(), &snap); err != nil {
			t.Fatalf("corrupt snapshot: %v", err)
		}
		out = append(out, snap.Date)
	}
	return out
}

func noTradeCount(t *testing.T, dir string) int {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "activity", "no_trade.jsonl"))
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("open activity record: %v", err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) > 0 {
			n++
		}
	}
	return n
}

func TestRunnerDrivesFullWindow(t *testing.T) {
	dir := t.TempDir()
	runner, led := newTestRunner(t, dir, &dateAwareModel{})

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"2025-09-30", "2025-10-01", "2025-10-02", "2025-10-03"}
	got := ledgerDates(t, dir)
	if len(got) != len(want) {
		t.Fatalf("expected ledger dates %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ledger entry %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	snap, err := led.Latest("sig-a")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Positions["CASH"] != 10000 {
		t.Errorf("no trades ran, cash must be unchanged, got %v", snap.Positions)
	}

	// every session ended without a trade
	if n := noTradeCount(t, dir); n != 3 {
		t.Errorf("expected 3 no-trade records, got %d", n)
	}
}

func TestRunnerSoftStopStillCommits(t *testing.T) {
	dir := t.TempDir()
	model := &dateAwareModel{stuckDate: "2025-10-02"}
	runner, led := newTestRunner(t, dir, model)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := ledgerDates(t, dir)
	if len(got) != 4 || got[2] != "2025-10-02" {
		t.Fatalf("step-ceiling session must still commit its snapshot, got %v", got)
	}

	snap, _ := led.Latest("sig-a")
	if snap.Date != "2025-10-03" {
		t.Errorf("run must continue past the stuck date, latest is %s", snap.Date)
	}
}

func TestRunnerResumes(t *testing.T) {
	dir := t.TempDir()
	model := &dateAwareModel{}
	runner, _ := newTestRunner(t, dir, model)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	callsAfterFirst := model.calls
	linesAfterFirst := len(ledgerDates(t, dir))

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if model.calls != callsAfterFirst {
		t.Errorf("completed window must not re-run sessions, calls went %d -> %d", callsAfterFirst, model.calls)
	}
	if got := len(ledgerDates(t, dir)); got != linesAfterFirst {
		t.Errorf("second run must not append, lines went %d -> %d", linesAfterFirst, got)
	}
}

func TestRunnerAbortsOnCredentialFailure(t *testing.T) {
	dir := t.TempDir()
	model := &dateAwareModel{err: &types.CredentialError{Name: "OPENAI_API_KEY"}}
	runner, led := newTestRunner(t, dir, model)

	err := runner.Run(context.Background())
	if !types.IsCredential(err) {
		t.Fatalf("expected credential error to abort the run, got %v", err)
	}

	snap, lerr := led.Latest("sig-a")
	if lerr != nil {
		t.Fatalf("latest: %v", lerr)
	}
	if snap.Date != "2025-09-30" {
		t.Errorf("no session may commit after a credential failure, latest is %s", snap.Date)
	}
}

func TestRunnerHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	model := &dateAwareModel{}
	runner, _ := newTestRunner(t, dir, model)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runner.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if model.calls != 0 {
		t.Errorf("no session may start after cancellation, model saw %d calls", model.calls)
	}
}
