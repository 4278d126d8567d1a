package dates

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, it *Iterator) []string {
	t.Helper()
	var out []string
	for {
		ts, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, ts)
	}
}

func TestDayRange(t *testing.T) {
	it, err := New("2025-10-01", "2025-10-03", GranularityDay, nil)
	require.NoError(t, err)

	got := drain(t, it)
	assert.Equal(t, []string{"2025-10-01", "2025-10-02", "2025-10-03"}, got)

	// exhausted iterator stays exhausted
	_, ok := it.Next()
	assert.False(t, ok)
}

func TestDaySingleDay(t *testing.T) {
	it, err := New("2025-10-01", "2025-10-01", GranularityDay, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-01"}, drain(t, it))
}

func TestInvalidRange(t *testing.T) {
	_, err := New("2025-10-05", "2025-10-01", GranularityDay, nil)
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestDayOrderingProperties(t *testing.T) {
	it, err := New("2025-01-28", "2025-03-02", GranularityDay, nil)
	require.NoError(t, err)

	got := drain(t, it)
	require.NotEmpty(t, got)
	assert.GreaterOrEqual(t, got[0], "2025-01-28")
	assert.LessOrEqual(t, got[len(got)-1], "2025-03-02")
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "sequence must be strictly increasing")
	}
	// 4 days of January + 28 of February + 2 of March
	assert.Len(t, got, 34)
}

func TestHourIntersectsReference(t *testing.T) {
	ref := StaticTimeIndex{
		"2025-09-30 23:00:00",
		"2025-10-01 09:00:00",
		"2025-10-01 13:00:00",
		"2025-10-02 09:00:00",
		"2025-10-04 09:00:00",
	}
	it, err := New("2025-10-01", "2025-10-02", GranularityHour, ref)
	require.NoError(t, err)

	got := drain(t, it)
	assert.Equal(t, []string{
		"2025-10-01 09:00:00",
		"2025-10-01 13:00:00",
		"2025-10-02 09:00:00",
	}, got)
}

func TestHourUnsortedReferenceWithDuplicates(t *testing.T) {
	ref := StaticTimeIndex{
		"2025-10-01 13:00:00",
		"2025-10-01 09:00:00",
		"2025-10-01 09:00:00",
	}
	it, err := New("2025-10-01", "2025-10-01", GranularityHour, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-01 09:00:00", "2025-10-01 13:00:00"}, drain(t, it))
}

func TestHourEmptyIntersection(t *testing.T) {
	ref := StaticTimeIndex{"2025-01-01 09:00:00"}
	it, err := New("2025-10-01", "2025-10-02", GranularityHour, ref)
	require.NoError(t, err)
	assert.Empty(t, drain(t, it))
}

func TestHourRequiresIndex(t *testing.T) {
	_, err := New("2025-10-01", "2025-10-02", GranularityHour, nil)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	it, err := New("2025-10-01", "2025-10-02", GranularityDay, nil)
	require.NoError(t, err)

	first := drain(t, it)
	it.Reset()
	second := drain(t, it)
	assert.Equal(t, first, second)
}

func TestResumeAfterDay(t *testing.T) {
	it, err := New("2025-10-01", "2025-10-05", GranularityDay, nil)
	require.NoError(t, err)

	it.ResumeAfter("2025-10-03")
	assert.Equal(t, []string{"2025-10-04", "2025-10-05"}, drain(t, it))

	// resuming before the window is a no-op
	it.ResumeAfter("2025-09-30")
	assert.Equal(t, []string{"2025-10-01", "2025-10-02", "2025-10-03", "2025-10-04", "2025-10-05"}, drain(t, it))

	// resuming past the window empties it
	it.ResumeAfter("2025-10-05")
	assert.Empty(t, drain(t, it))
}

func TestResumeAfterHour(t *testing.T) {
	ref := StaticTimeIndex{
		"2025-10-01 09:00:00",
		"2025-10-01 13:00:00",
		"2025-10-02 09:00:00",
	}
	it, err := New("2025-10-01", "2025-10-02", GranularityHour, ref)
	require.NoError(t, err)

	it.ResumeAfter("2025-10-01 13:00:00")
	assert.Equal(t, []string{"2025-10-02 09:00:00"}, drain(t, it))
}

func TestFileTimeIndex(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/hours.txt"
	content := "# trading hours\n2025-10-01 09:00:00\n\n2025-10-01 10:00:00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := FileTimeIndex{Path: path}.Timestamps()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-01 09:00:00", "2025-10-01 10:00:00"}, got)
}
