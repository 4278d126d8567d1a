// Package sessionlog writes the per-session conversation audit trail: one
// append-only JSONL file per signature per session date. Entries are never
// mutated and never drive control decisions.
package sessionlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var mu sync.Mutex

// Entry is one exchange unit: an outbound prompt or tool payload, or an
// inbound model/tool response.
type Entry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Writer appends entries for one signature. Each session date gets its own
// file, owned exclusively by that session's flow.
type Writer struct {
	dataDir   string
	signature string
}

func NewWriter(dataDir, signature string) *Writer {
	return &Writer{dataDir: dataDir, signature: signature}
}

// Filepath returns the log file for a session date. Hourly timestamps are
// flattened into a filesystem-safe name.
func (w *Writer) Filepath(date string) string {
	name := strings.NewReplacer(" ", "_", ":", "-").Replace(date) + ".jsonl"
	return filepath.Join(w.dataDir, "agent_data", w.signature, "log", name)
}

// Append writes one entry to the session-date log. The timestamp is stamped
// here in chronological append order.
func (w *Writer) Append(date, role, content string) error {
	mu.Lock()
	defer mu.Unlock()

	p := w.Filepath(date)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	e := Entry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC().Format("2006-01-02 15:04:05"),
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}
