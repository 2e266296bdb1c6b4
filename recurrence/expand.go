package recurrence

import (
	"time"

	"github.com/cyp0633/librecur/internal/calendar"
)

// expansion is the mutable state of a single Compute call.
type expansion struct {
	id        string
	rule      *Rule
	governor  *Governor
	resolver  *DayResolver
	filter    *ExceptionFilter
	resultCap int

	firstDay      calendar.Date
	lastDay       calendar.Date // series end as seen with the start's UTC offset
	startOffset   int
	untilDateOnly bool

	cursor    calendar.Date
	ordinal   int
	accepted  []Occurrence
	truncated bool
}

func (x *expansion) initBounds() {
	r := x.rule
	x.firstDay = calendar.DateOf(r.start)
	_, x.startOffset = r.start.Zone()
	x.cursor = x.firstDay

	until, ok := r.until.Get()
	switch {
	case ok && isDateOnly(until):
		x.untilDateOnly = true
		x.lastDay = calendar.DateOf(until.UTC())
	case ok:
		x.lastDay = calendar.DateOf(until.In(time.FixedZone("", x.startOffset)))
	default:
		x.lastDay = calendar.DateOf(r.seriesEnd.In(r.loc))
	}
}

// isDateOnly reports whether t is a bare date stored as midnight UTC.
func isDateOnly(t time.Time) bool {
	_, offset := t.Zone()
	return offset == 0 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// endFor returns the last admissible day for a candidate starting at
// start. The series end was placed on a day using the UTC offset at the
// series start; when the candidate lives under another offset (a DST
// transition happened in between) the end day is recomputed with the
// candidate's offset, which moves it by at most one day.
func (x *expansion) endFor(start time.Time) calendar.Date {
	until, ok := x.rule.until.Get()
	if !ok || x.untilDateOnly {
		return x.lastDay
	}
	_, offset := start.Zone()
	if offset == x.startOffset {
		return x.lastDay
	}
	return calendar.DateOf(until.In(time.FixedZone("", offset)))
}

// pastHorizon reports whether no day on or after d can be in the series.
func (x *expansion) pastHorizon(d calendar.Date) bool {
	return d.After(x.lastDay.AddDays(1))
}

// consider evaluates the candidate day d and reports whether the expansion
// is complete.
func (x *expansion) consider(d calendar.Date) bool {
	x.cursor = d
	if d.Before(x.firstDay) {
		return false
	}

	start := d.At(x.rule.start, x.rule.loc)
	if d.After(x.endFor(start)) {
		return true
	}

	// The ordinal advances before exceptions are consulted: a suppressed
	// candidate still occupies its position in the series.
	x.ordinal++
	occ := Occurrence{
		Ordinal: x.ordinal,
		Start:   start,
		End:     start.Add(x.rule.duration),
	}
	if !x.filter.IsSuppressed(d.Midnight()) && x.accepts(occ) {
		// A full result stops only once another occurrence shows up, so a
		// series that ends exactly at the cap is not reported as truncated.
		if len(x.accepted) >= x.resultCap {
			x.truncated = true
			return true
		}
		x.accepted = append(x.accepted, occ)
	}
	return x.finished(occ)
}

func (x *expansion) accepts(o Occurrence) bool {
	r := x.rule
	if !r.HasBoundaries() {
		return true
	}
	if p, ok := r.position.Get(); ok && o.Ordinal == p {
		return true
	}
	w, ok := r.window.Get()
	if !ok {
		return false
	}
	if !r.greedy {
		return !o.Start.Before(w.Start) && o.Start.Before(w.End)
	}
	if !o.Start.Before(w.End) {
		return false
	}
	if o.End.Equal(o.Start) {
		return !o.Start.Before(w.Start)
	}
	return o.End.After(w.Start)
}

func (x *expansion) finished(last Occurrence) bool {
	r := x.rule
	if n, ok := r.count.Get(); ok && x.ordinal >= n {
		return true
	}
	if !r.HasBoundaries() {
		return false
	}
	if p, ok := r.position.Get(); ok && x.ordinal < p {
		return false
	}
	if w, ok := r.window.Get(); ok && last.Start.Before(w.End) {
		return false
	}
	return true
}

func (x *expansion) run() error {
	switch x.rule.typ {
	case TypeDaily:
		return x.daily()
	case TypeWeekly:
		return x.weekly()
	case TypeMonthly:
		y, m := x.firstDay.Year, x.firstDay.Month
		return x.periodic(func(i int) (int, time.Month) {
			return calendar.AddMonths(y, m, i*x.rule.interval)
		})
	case TypeYearly:
		y, m := x.firstDay.Year, x.rule.month
		return x.periodic(func(i int) (int, time.Month) {
			return y + i*x.rule.interval, m
		})
	}
	return nil
}

func (x *expansion) daily() error {
	for d := x.firstDay; ; d = d.AddDays(x.rule.interval) {
		if err := x.governor.Tick(); err != nil {
			return err
		}
		if x.consider(d) {
			return nil
		}
	}
}

// weekly walks the weeks of the series from the Monday of the start's
// week, visiting the selected weekdays of each week in order.
func (x *expansion) weekly() error {
	days := x.rule.weekdays.Days()
	offsets := make([]int, len(days))
	for i, d := range days {
		offsets[i] = calendar.WeekdayOffset(d)
	}

	for anchor := calendar.MondayOf(x.firstDay); ; anchor = anchor.AddDays(7 * x.rule.interval) {
		for _, off := range offsets {
			if err := x.governor.Tick(); err != nil {
				return err
			}
			if x.consider(anchor.AddDays(off)) {
				return nil
			}
		}
	}
}

// periodic drives monthly and yearly rules. period maps the i-th step to
// the month it covers.
func (x *expansion) periodic(period func(i int) (int, time.Month)) error {
	for i := 0; ; i++ {
		if err := x.governor.Tick(); err != nil {
			return err
		}
		year, month := period(i)
		if x.pastHorizon(calendar.Date{Year: year, Month: month, Day: 1}) {
			return nil
		}

		d, ok, err := x.dayIn(year, month)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if x.consider(d) {
			return nil
		}
	}
}

// dayIn picks the rule's day within month of year. Months lacking the day
// report false and are skipped without consuming an ordinal.
func (x *expansion) dayIn(year int, month time.Month) (calendar.Date, bool, error) {
	r := x.rule
	if r.token.IsZero() {
		if r.dayOfMonth > calendar.DaysIn(year, month) {
			return calendar.Date{}, false, nil
		}
		return calendar.Date{Year: year, Month: month, Day: r.dayOfMonth}, true, nil
	}
	return x.resolver.resolve(r.ordinal, r.token, year, month)
}

func (x *expansion) snapshot() Snapshot {
	return Snapshot{
		ComputationID: x.id,
		Type:          x.rule.typ,
		Interval:      x.rule.interval,
		Cursor:        x.cursor.Midnight(),
		Ordinal:       x.ordinal,
		Accepted:      len(x.accepted),
		SeriesStart:   x.rule.start,
		SeriesEnd:     x.rule.seriesEnd,
	}
}
