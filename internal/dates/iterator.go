// Package dates produces the ordered sequence of session timestamps for a
// run. Day granularity generates calendar dates; hour granularity intersects
// the requested range with an external reference index of valid trading
// hours, since not every hour trades.
package dates

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	dayLayout  = "2006-01-02"
	hourLayout = "2006-01-02 15:04:05"
)

// ErrInvalidRange is returned when the start date is after the end date.
var ErrInvalidRange = errors.New("dates: init date after end date")

type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityHour Granularity = "hour"
)

// TimeIndex supplies the reference timestamps for hour granularity.
type TimeIndex interface {
	Timestamps() ([]string, error)
}

// Iterator yields session timestamps in strictly increasing order. It is
// finite and restartable; an exhausted iterator can be Reset and replayed.
type Iterator struct {
	granularity Granularity

	// day granularity: a lazy cursor over calendar days
	cur, end time.Time

	// hour granularity: the intersected reference slice
	hours []string

	pos int
}

// New builds an iterator over the inclusive [initDate, endDate] range. Both
// bounds are YYYY-MM-DD. A range with no members in the reference index is
// an empty sequence, not an error.
func New(initDate, endDate string, g Granularity, ref TimeIndex) (*Iterator, error) {
	start, err := time.Parse(dayLayout, initDate)
	if err != nil {
		return nil, fmt.Errorf("dates: invalid init date '%s': %w", initDate, err)
	}
	end, err := time.Parse(dayLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("dates: invalid end date '%s': %w", endDate, err)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, initDate, endDate)
	}

	it := &Iterator{granularity: g, cur: start, end: end}
	if g == GranularityHour {
		if ref == nil {
			return nil, errors.New("dates: hour granularity requires a time index")
		}
		all, err := ref.Timestamps()
		if err != nil {
			return nil, fmt.Errorf("dates: reading time index: %w", err)
		}
		lo := initDate + " 00:00:00"
		hi := endDate + " 23:59:59"
		hours := make([]string, 0, len(all))
		for _, ts := range all {
			if ts >= lo && ts <= hi {
				hours = append(hours, ts)
			}
		}
		sort.Strings(hours)
		it.hours = dedupe(hours)
	}
	return it, nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// Next yields the next timestamp, or ok=false when the sequence is done.
func (it *Iterator) Next() (string, bool) {
	if it.granularity == GranularityHour {
		if it.pos >= len(it.hours) {
			return "", false
		}
		ts := it.hours[it.pos]
		it.pos++
		return ts, true
	}

	d := it.cur.AddDate(0, 0, it.pos)
	if d.After(it.end) {
		return "", false
	}
	it.pos++
	return d.Format(dayLayout), true
}

// Reset rewinds the iterator to its first element.
func (it *Iterator) Reset() {
	it.pos = 0
}

// ResumeAfter skips every element less than or equal to ts. Used when a
// ledger already holds committed sessions and the run picks up after the
// last one.
func (it *Iterator) ResumeAfter(ts string) {
	it.Reset()
	if it.granularity == GranularityHour {
		it.pos = sort.SearchStrings(it.hours, ts)
		if it.pos < len(it.hours) && it.hours[it.pos] == ts {
			it.pos++
		}
		return
	}
	for {
		d := it.cur.AddDate(0, 0, it.pos)
		if d.After(it.end) || d.Format(dayLayout) > ts {
			return
		}
		it.pos++
	}
}
