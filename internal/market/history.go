// Package market reads the externally maintained price history and keeps
// the price/activity record the no-trade recorder appends to.
package market

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Bar is one OHLCV candle from the history file.
type Bar struct {
	Date      string  `json:"date"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// History is an in-memory view over one symbol's history JSONL file.
type History struct {
	Symbol string
	bars   []Bar
	byDate map[string]int // last bar index per date
}

// EmptyHistory is a history with no bars; prompts render prices as
// unavailable.
func EmptyHistory(symbol string) *History {
	return &History{Symbol: symbol, byDate: map[string]int{}}
}

// LoadHistory reads a history JSONL file (one bar per line, ascending).
func LoadHistory(path, symbol string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := &History{Symbol: symbol, byDate: map[string]int{}}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var b Bar
		if err := json.Unmarshal(line, &b); err != nil {
			return nil, fmt.Errorf("market: corrupt bar in %s: %w", path, err)
		}
		h.byDate[b.Date] = len(h.bars)
		h.bars = append(h.bars, b)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// Bar returns the bar for a date, if present.
func (h *History) Bar(date string) (Bar, bool) {
	i, ok := h.byDate[date]
	if !ok {
		return Bar{}, false
	}
	return h.bars[i], true
}

// Previous returns the bar immediately before the given date's bar.
func (h *History) Previous(date string) (Bar, bool) {
	i, ok := h.byDate[date]
	if !ok || i == 0 {
		return Bar{}, false
	}
	return h.bars[i-1], true
}

// OpenPrice returns the session's indicative buy price: the open of the
// date's bar.
func (h *History) OpenPrice(date string) (float64, bool) {
	b, ok := h.Bar(date)
	if !ok {
		return 0, false
	}
	return b.Open, true
}
