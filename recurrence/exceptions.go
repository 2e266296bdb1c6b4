package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DaySet is a set of normalized days, keyed by the Unix seconds of the
// day's midnight in UTC.
type DaySet map[int64]struct{}

// NewDaySet normalizes each instant to its UTC date.
func NewDaySet(days ...time.Time) DaySet {
	set := make(DaySet, len(days))
	for _, d := range days {
		set.Add(d)
	}
	return set
}

// ParseDaySet parses a comma-separated list of millisecond instants, the
// form exception lists are stored in. Blank entries are ignored.
func ParseDaySet(csv string) (DaySet, error) {
	set := make(DaySet)
	for _, field := range strings.Split(csv, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		ms, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid exception instant %q: %w", field, err)
		}
		set.Add(time.UnixMilli(ms))
	}
	return set, nil
}

func (s DaySet) Add(t time.Time) {
	s[normalizeDay(t).Unix()] = struct{}{}
}

func (s DaySet) Contains(t time.Time) bool {
	_, ok := s[normalizeDay(t).Unix()]
	return ok
}

// Days returns the members as UTC midnights, in no particular order.
func (s DaySet) Days() []time.Time {
	days := make([]time.Time, 0, len(s))
	for sec := range s {
		days = append(days, time.Unix(sec, 0).UTC())
	}
	return days
}

func (s DaySet) clone() DaySet {
	c := make(DaySet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// normalizeDay truncates t to midnight UTC of its UTC date.
func normalizeDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExceptionFilter suppresses candidates that were changed or deleted.
type ExceptionFilter struct {
	change  DaySet
	deleted DaySet
}

func NewExceptionFilter(change, deleted DaySet) *ExceptionFilter {
	return &ExceptionFilter{change: change, deleted: deleted}
}

// IsSuppressed reports whether the normalized day is listed as a change or
// delete exception. Matching is exact on the day.
func (f *ExceptionFilter) IsSuppressed(day time.Time) bool {
	if f == nil {
		return false
	}
	return f.change.Contains(day) || f.deleted.Contains(day)
}
