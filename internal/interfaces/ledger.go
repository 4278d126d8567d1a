package interfaces

import "ai-trader/internal/types"

// Ledger is the append-only per-signature store of portfolio snapshots.
type Ledger interface {
	Register(signature string, defaultSymbols []string, initialCash float64, date string) error
	Latest(signature string) (types.Snapshot, error)
	Append(signature string, snap types.Snapshot) error
}
