// Package ledger persists per-signature portfolio snapshots as an
// append-only JSONL file, one record per line. The current position is the
// snapshot with the latest date (ties broken by the per-date id counter).
package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"ai-trader/internal/types"
)

var (
	// ErrNotRegistered is returned when a signature has no ledger file or
	// the file holds no snapshots.
	ErrNotRegistered = errors.New("ledger: signature not registered")
	// ErrOutOfOrder is returned when an append would move the ledger
	// backwards in time.
	ErrOutOfOrder = errors.New("ledger: snapshot date earlier than latest")
)

// Store is a file-backed Ledger. Appends to the same signature are
// serialized; distinct signatures do not contend.
type Store struct {
	dataDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a ledger store rooted at dataDir. Files live at
// {dataDir}/agent_data/{signature}/position/position.jsonl.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir, locks: make(map[string]*sync.Mutex)}
}

func (s *Store) sigLock(signature string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[signature]
	if !ok {
		l = &sync.Mutex{}
		s.locks[signature] = l
	}
	return l
}

func (s *Store) path(signature string) string {
	return filepath.Join(s.dataDir, "agent_data", signature, "position", "position.jsonl")
}

// Register seeds the ledger with one snapshot holding every default symbol
// at zero and CASH at initialCash. Idempotent: a ledger that already holds a
// snapshot is left untouched, which makes re-runs safe.
func (s *Store) Register(signature string, defaultSymbols []string, initialCash float64, date string) error {
	lock := s.sigLock(signature)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.latestLocked(signature); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotRegistered) {
		return err
	}

	positions := make(map[string]float64, len(defaultSymbols)+1)
	for _, sym := range defaultSymbols {
		positions[sym] = 0
	}
	positions[types.ReservedCash] = initialCash

	seed := types.Snapshot{Date: date, ID: 0, Positions: positions}
	return s.appendLocked(signature, seed)
}

// Latest returns the most recent snapshot for the signature.
func (s *Store) Latest(signature string) (types.Snapshot, error) {
	lock := s.sigLock(signature)
	lock.Lock()
	defer lock.Unlock()
	return s.latestLocked(signature)
}

// Append commits a new snapshot. The per-date id counter is assigned here:
// zero for a fresh date, latest+1 when the date matches the current head.
func (s *Store) Append(signature string, snap types.Snapshot) error {
	lock := s.sigLock(signature)
	lock.Lock()
	defer lock.Unlock()

	if err := validate(snap); err != nil {
		return err
	}

	latest, err := s.latestLocked(signature)
	if err != nil {
		if errors.Is(err, ErrNotRegistered) {
			return ErrNotRegistered
		}
		return err
	}
	// Dates are fixed-width timestamps, so lexicographic order is
	// chronological order.
	if snap.Date < latest.Date {
		return fmt.Errorf("%w: %s < %s", ErrOutOfOrder, snap.Date, latest.Date)
	}
	if snap.Date == latest.Date {
		snap.ID = latest.ID + 1
	} else {
		snap.ID = 0
	}
	return s.appendLocked(signature, snap)
}

func validate(snap types.Snapshot) error {
	if snap.Date == "" {
		return errors.New("ledger: snapshot date cannot be empty")
	}
	if _, ok := snap.Positions[types.ReservedCash]; !ok {
		return fmt.Errorf("ledger: snapshot missing %s position", types.ReservedCash)
	}
	for sym, qty := range snap.Positions {
		if math.IsNaN(qty) || math.IsInf(qty, 0) {
			return fmt.Errorf("ledger: non-finite quantity for %s", sym)
		}
	}
	return nil
}

func (s *Store) appendLocked(signature string, snap types.Snapshot) error {
	p := s.path(signature)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func (s *Store) latestLocked(signature string) (types.Snapshot, error) {
	f, err := os.Open(s.path(signature))
	if err != nil {
		if os.IsNotExist(err) {
			return types.Snapshot{}, ErrNotRegistered
		}
		return types.Snapshot{}, err
	}
	defer f.Close()

	var (
		latest types.Snapshot
		found  bool
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var snap types.Snapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			return types.Snapshot{}, fmt.Errorf("ledger: corrupt record for %s: %w", signature, err)
		}
		if !found || snap.Date > latest.Date || (snap.Date == latest.Date && snap.ID > latest.ID) {
			latest = snap
			found = true
		}
	}
	if err := sc.Err(); err != nil {
		return types.Snapshot{}, err
	}
	if !found {
		return types.Snapshot{}, ErrNotRegistered
	}
	return latest, nil
}
