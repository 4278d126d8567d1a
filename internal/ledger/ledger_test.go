package ledger

import (
	"bufio"
	"errors"
	"math"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-trader/internal/types"
)

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
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

func TestRegisterSeedsSnapshot(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Register("sig-a", []string{"A", "B"}, 10000, "2025-09-30"))

	snap, err := s.Latest("sig-a")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-30", snap.Date)
	assert.Equal(t, 0, snap.ID)
	assert.Equal(t, map[string]float64{"A": 0, "B": 0, "CASH": 10000}, snap.Positions)
}

func TestRegisterIsIdempotent(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Register("sig-a", []string{"A"}, 10000, "2025-09-30"))
	require.NoError(t, s.Register("sig-a", []string{"A"}, 99999, "2025-10-15"))

	snap, err := s.Latest("sig-a")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-30", snap.Date)
	assert.Equal(t, 10000.0, snap.Positions["CASH"])
	assert.Equal(t, 1, countLines(t, s.path("sig-a")), "second register must not add a record")
}

func TestLatestNotRegistered(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Latest("ghost")
	assert.True(t, errors.Is(err, ErrNotRegistered))
}

func TestAppendAdvancesDate(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Register("sig-a", []string{"BTC"}, 10000, "2025-09-30"))

	err := s.Append("sig-a", types.Snapshot{
		Date:      "2025-10-01",
		Action:    &types.Action{Action: "buy", Symbol: "BTC", Amount: 0.5},
		Positions: map[string]float64{"BTC": 0.5, "CASH": 5000},
	})
	require.NoError(t, err)

	snap, err := s.Latest("sig-a")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01", snap.Date)
	assert.Equal(t, 0, snap.ID)
	assert.Equal(t, 0.5, snap.Positions["BTC"])
}

func TestAppendSameDateIncrementsID(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Register("sig-a", []string{"BTC"}, 10000, "2025-10-01"))

	for i := 1; i <= 3; i++ {
		err := s.Append("sig-a", types.Snapshot{
			Date:      "2025-10-01",
			Positions: map[string]float64{"BTC": float64(i), "CASH": 0},
		})
		require.NoError(t, err)
	}

	snap, err := s.Latest("sig-a")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ID)
	assert.Equal(t, 3.0, snap.Positions["BTC"])
}

func TestAppendOutOfOrder(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Register("sig-a", []string{"BTC"}, 10000, "2025-09-30"))
	require.NoError(t, s.Append("sig-a", types.Snapshot{
		Date:      "2025-10-02",
		Positions: map[string]float64{"BTC": 1, "CASH": 0},
	}))

	err := s.Append("sig-a", types.Snapshot{
		Date:      "2025-10-01",
		Positions: map[string]float64{"BTC": 2, "CASH": 0},
	})
	assert.True(t, errors.Is(err, ErrOutOfOrder))

	// the rejected append must not have mutated the ledger
	snap, err := s.Latest("sig-a")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-02", snap.Date)
	assert.Equal(t, 1.0, snap.Positions["BTC"])
	assert.Equal(t, 2, countLines(t, s.path("sig-a")))
}

func TestAppendUnregistered(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.Append("ghost", types.Snapshot{
		Date:      "2025-10-01",
		Positions: map[string]float64{"CASH": 0},
	})
	assert.True(t, errors.Is(err, ErrNotRegistered))
}

func TestAppendRejectsMissingCash(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Register("sig-a", []string{"BTC"}, 10000, "2025-09-30"))

	err := s.Append("sig-a", types.Snapshot{
		Date:      "2025-10-01",
		Positions: map[string]float64{"BTC": 1},
	})
	assert.Error(t, err)
}

func TestAppendRejectsNonFinite(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Register("sig-a", []string{"BTC"}, 10000, "2025-09-30"))

	err := s.Append("sig-a", types.Snapshot{
		Date:      "2025-10-01",
		Positions: map[string]float64{"BTC": math.NaN(), "CASH": 0},
	})
	assert.Error(t, err)
}

func TestSignaturesAreIndependent(t *testing.T) {
	s := NewStore(t.TempDir())
	var wg sync.WaitGroup
	for _, sig := range []string{"sig-a", "sig-b", "sig-c"} {
		wg.Add(1)
		go func(sig string) {
			defer wg.Done()
			require.NoError(t, s.Register(sig, []string{"BTC"}, 1000, "2025-09-30"))
			for i := 0; i < 10; i++ {
				require.NoError(t, s.Append(sig, types.Snapshot{
					Date:      "2025-10-01",
					Positions: map[string]float64{"BTC": float64(i), "CASH": 0},
				}))
			}
		}(sig)
	}
	wg.Wait()

	for _, sig := range []string{"sig-a", "sig-b", "sig-c"} {
		snap, err := s.Latest(sig)
		require.NoError(t, err)
		assert.Equal(t, 9, snap.ID)
	}
}
