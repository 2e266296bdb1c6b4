package recurrence

import (
	"time"

	"github.com/cyp0633/librecur/internal/calendar"
)

// DayResolver turns an ordinal and a day token into a concrete day of a
// month, e.g. "2nd Tuesday", "last weekday" or "3rd weekend day".
type DayResolver struct {
	ticker Ticker
}

// NewDayResolver creates a resolver whose scans are metered by ticker.
func NewDayResolver(ticker Ticker) *DayResolver {
	return &DayResolver{ticker: ticker}
}

// Resolve returns midnight, in loc, of the day selected by ordinal and
// token within month of year. Ordinal 1-4 counts forward from the first of
// the month; LastOrdinal counts backward from the end of the month. The
// boolean is false when the month has fewer qualifying days than asked for.
// An error is returned only when the scan is aborted by the ticker.
func (r *DayResolver) Resolve(ordinal int, token DayToken, year int, month time.Month, loc *time.Location) (time.Time, bool, error) {
	d, ok, err := r.resolve(ordinal, token, year, month)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc), true, nil
}

func (r *DayResolver) resolve(ordinal int, token DayToken, year int, month time.Month) (calendar.Date, bool, error) {
	if ordinal < 1 || ordinal > LastOrdinal || !token.valid() {
		return calendar.Date{}, false, nil
	}

	days := calendar.DaysIn(year, month)
	if ordinal == LastOrdinal {
		for day := days; day >= 1; day-- {
			if err := r.tick(); err != nil {
				return calendar.Date{}, false, err
			}
			d := calendar.Date{Year: year, Month: month, Day: day}
			if token.matches(d.Weekday()) {
				return d, true, nil
			}
		}
		return calendar.Date{}, false, nil
	}

	seen := 0
	for day := 1; day <= days; day++ {
		if err := r.tick(); err != nil {
			return calendar.Date{}, false, err
		}
		d := calendar.Date{Year: year, Month: month, Day: day}
		if !token.matches(d.Weekday()) {
			continue
		}
		seen++
		if seen == ordinal {
			return d, true, nil
		}
	}
	return calendar.Date{}, false, nil
}

func (r *DayResolver) tick() error {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.Tick()
}
