package market

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Tracker is the file-backed price/activity record. Sessions that terminate
// without an executed trade get one sentinel line here.
type Tracker struct {
	dataDir string
	mu      sync.Mutex
}

func NewTracker(dataDir string) *Tracker {
	return &Tracker{dataDir: dataDir}
}

type noTradeRecord struct {
	Date       string `json:"date"`
	Signature  string `json:"signature"`
	Action     string `json:"action"`
	RecordedAt string `json:"recorded_at"`
}

// RecordNoTrade appends the sentinel record for one session. Callers treat
// failures as non-fatal.
func (t *Tracker) RecordNoTrade(signature, date string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := filepath.Join(t.dataDir, "activity", "no_trade.jsonl")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	rec := noTradeRecord{
		Date:       date,
		Signature:  signature,
		Action:     "no_trade",
		RecordedAt: time.Now().UTC().Format("2006-01-02 15:04:05"),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}
