// Package runtimeenv persists a small per-signature key/value document used
// to carry session state (active date, trade-occurred flag, log path) across
// collaborators without passing it explicitly. Overwrite semantics: every
// Set rewrites the whole document, last write wins.
package runtimeenv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Well-known keys.
const (
	KeyTodayDate = "TODAY_DATE"
	KeyIfTrade   = "IF_TRADE"
	KeyLogFile   = "LOG_FILE"
)

type Store struct {
	dataDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

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
	return filepath.Join(s.dataDir, "agent_data", signature, "runtime_env.json")
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(signature, key string) (string, bool, error) {
	lock := s.sigLock(signature)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.readLocked(signature)
	if err != nil {
		return "", false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

// Set writes key=value, rewriting the document in place.
func (s *Store) Set(signature, key, value string) error {
	lock := s.sigLock(signature)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.readLocked(signature)
	if err != nil {
		return err
	}
	doc[key] = value
	return s.writeLocked(signature, doc)
}

// SetTradeOccurred flips the trade flag for the active session.
func (s *Store) SetTradeOccurred(signature string, occurred bool) error {
	v := "false"
	if occurred {
		v = "true"
	}
	return s.Set(signature, KeyIfTrade, v)
}

// TradeOccurred reports whether the active session executed a trade.
func (s *Store) TradeOccurred(signature string) (bool, error) {
	v, ok, err := s.Get(signature, KeyIfTrade)
	if err != nil {
		return false, err
	}
	return ok && v == "true", nil
}

func (s *Store) readLocked(signature string) (map[string]string, error) {
	b, err := os.ReadFile(s.path(signature))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	doc := map[string]string{}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) writeLocked(signature string, doc map[string]string) error {
	p := s.path(signature)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o644)
}
