package recurrence

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/internal/calendar"
)

const (
	// DefaultResultCap is the maximum number of occurrences materialized
	// when neither the rule nor the engine sets one.
	DefaultResultCap = 999
	// DefaultOpBudget is the maximum number of expansion steps when neither
	// the rule nor the engine sets one.
	DefaultOpBudget = 99900

	fallbackYears        = 99
	maxYearlyOccurrences = 999
	maxDayOfMonth        = 31
)

// Rule is a validated, immutable recurrence rule. Build one with NewRule.
type Rule struct {
	typ        Type
	interval   int
	weekdays   Weekdays
	ordinal    int
	token      DayToken
	dayOfMonth int
	month      time.Month
	monthSet   bool

	start    time.Time
	duration time.Duration
	loc      *time.Location

	until mo.Option[time.Time]
	count mo.Option[int]

	changeExceptions DaySet
	deleteExceptions DaySet

	window   mo.Option[Window]
	position mo.Option[int]
	greedy   bool

	resultCap int
	opBudget  int

	seriesEnd time.Time
}

// RuleOption configures a rule under construction
type RuleOption func(*Rule) error

func WithInterval(n int) RuleOption {
	return func(r *Rule) error {
		r.interval = n
		return nil
	}
}

// WithWeekdays sets the days a weekly rule fires on.
func WithWeekdays(ws Weekdays) RuleOption {
	return func(r *Rule) error {
		r.weekdays = ws
		return nil
	}
}

// WithOrdinalDay selects the ordinal-th day matching token in each month
// (monthly and yearly rules). LastOrdinal selects the last matching day.
func WithOrdinalDay(ordinal int, token DayToken) RuleOption {
	return func(r *Rule) error {
		r.ordinal = ordinal
		r.token = token
		return nil
	}
}

// WithDayOfMonth selects a fixed day of the month (monthly and yearly
// rules). Months without that day produce no occurrence.
func WithDayOfMonth(day int) RuleOption {
	return func(r *Rule) error {
		r.dayOfMonth = day
		return nil
	}
}

// WithMonth sets the month a yearly rule fires in. Defaults to the month of
// the start.
func WithMonth(m time.Month) RuleOption {
	return func(r *Rule) error {
		r.month = m
		r.monthSet = true
		return nil
	}
}

// WithDuration sets the length of every occurrence.
func WithDuration(d time.Duration) RuleOption {
	return func(r *Rule) error {
		r.duration = d
		return nil
	}
}

// WithEnd sets the end of the first occurrence; all occurrences share its
// duration.
func WithEnd(end time.Time) RuleOption {
	return func(r *Rule) error {
		r.duration = end.Sub(r.start)
		return nil
	}
}

// WithUntil bounds the series at the day of until (inclusive). An until at
// midnight UTC is treated as a date.
func WithUntil(until time.Time) RuleOption {
	return func(r *Rule) error {
		r.until = mo.Some(until)
		return nil
	}
}

// WithCount stops the series after n positions.
func WithCount(n int) RuleOption {
	return func(r *Rule) error {
		r.count = mo.Some(n)
		return nil
	}
}

func WithChangeExceptions(days ...time.Time) RuleOption {
	return func(r *Rule) error {
		for _, d := range days {
			r.changeExceptions.Add(d)
		}
		return nil
	}
}

func WithDeleteExceptions(days ...time.Time) RuleOption {
	return func(r *Rule) error {
		for _, d := range days {
			r.deleteExceptions.Add(d)
		}
		return nil
	}
}

// WithRange restricts the result to occurrences overlapping [start, end).
func WithRange(start, end time.Time) RuleOption {
	return func(r *Rule) error {
		r.window = mo.Some(Window{Start: start, End: end})
		return nil
	}
}

// WithPosition requests the occurrence with the given 1-based ordinal.
func WithPosition(n int) RuleOption {
	return func(r *Rule) error {
		r.position = mo.Some(n)
		return nil
	}
}

// WithGreedy includes occurrences that only partially overlap the range.
func WithGreedy(greedy bool) RuleOption {
	return func(r *Rule) error {
		r.greedy = greedy
		return nil
	}
}

// WithLocation sets the zone whose wall clock the series follows. Defaults
// to the location of the start.
func WithLocation(loc *time.Location) RuleOption {
	return func(r *Rule) error {
		if loc == nil {
			return invalidRule("nil location")
		}
		r.loc = loc
		return nil
	}
}

// WithTimeZone is WithLocation by IANA zone name.
func WithTimeZone(id string) RuleOption {
	return func(r *Rule) error {
		loc, err := time.LoadLocation(id)
		if err != nil {
			return &Error{Type: ErrInvalidRule, Message: fmt.Sprintf("unknown time zone %q", id), Err: err}
		}
		r.loc = loc
		return nil
	}
}

func WithResultCap(n int) RuleOption {
	return func(r *Rule) error {
		r.resultCap = n
		return nil
	}
}

func WithOpBudget(n int) RuleOption {
	return func(r *Rule) error {
		r.opBudget = n
		return nil
	}
}

// NewRule validates the options and returns an immutable rule whose first
// occurrence starts at start.
func NewRule(typ Type, start time.Time, opts ...RuleOption) (*Rule, error) {
	r := &Rule{
		typ:              typ,
		interval:         1,
		start:            start,
		changeExceptions: make(DaySet),
		deleteExceptions: make(DaySet),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	r.seriesEnd = r.deriveSeriesEnd()
	return r, nil
}

func (r *Rule) validate() error {
	if r.typ < TypeNone || r.typ > TypeYearly {
		return &Error{Type: ErrUnknownType, Message: fmt.Sprintf("unsupported recurrence type %d", int(r.typ))}
	}
	if r.interval < 1 {
		return invalidRule("interval must be at least 1, got %d", r.interval)
	}
	if r.typ != TypeNone && r.start.IsZero() {
		return invalidRule("series start is required")
	}
	if r.loc == nil {
		r.loc = r.start.Location()
	}
	r.start = r.start.In(r.loc)
	if r.duration < 0 {
		return invalidRule("occurrence ends before it starts")
	}

	switch r.typ {
	case TypeWeekly:
		if r.weekdays&^AllDays != 0 {
			return invalidRule("invalid weekday mask %#x", uint8(r.weekdays))
		}
		if r.weekdays == 0 {
			r.weekdays = WeekdaysOf(r.start.Weekday())
		}
	case TypeMonthly, TypeYearly:
		if err := r.validateDaySelector(); err != nil {
			return err
		}
		if r.typ == TypeYearly {
			if !r.monthSet {
				r.month = r.start.Month()
			} else if r.month < time.January || r.month > time.December {
				return invalidRule("month must be January through December, got %d", int(r.month))
			}
		}
	}

	if n, ok := r.count.Get(); ok && n < 1 {
		return invalidRule("occurrence count must be at least 1, got %d", n)
	}
	if w, ok := r.window.Get(); ok && !w.End.After(w.Start) {
		return invalidRule("range end %s is not after range start %s", w.End, w.Start)
	}
	if p, ok := r.position.Get(); ok && p < 1 {
		return invalidRule("position must be at least 1, got %d", p)
	}
	if r.resultCap < 0 || r.opBudget < 0 {
		return invalidRule("result cap and operation budget must not be negative")
	}
	return nil
}

func (r *Rule) validateDaySelector() error {
	hasToken := !r.token.IsZero() || r.ordinal != 0
	hasDay := r.dayOfMonth != 0
	switch {
	case hasToken && hasDay:
		return invalidRule("%s rule has both a day token and a day of month", r.typ)
	case hasToken:
		if !r.token.valid() {
			return invalidRule("invalid weekday token %v", r.token)
		}
		if r.ordinal < 1 || r.ordinal > LastOrdinal {
			return invalidRule("day ordinal must be 1..%d, got %d", LastOrdinal, r.ordinal)
		}
	case hasDay:
		if r.dayOfMonth < 1 || r.dayOfMonth > maxDayOfMonth {
			return invalidRule("day of month must be 1..%d, got %d", maxDayOfMonth, r.dayOfMonth)
		}
	default:
		return invalidRule("%s rule needs a day token or a day of month", r.typ)
	}
	return nil
}

// deriveSeriesEnd returns the instant bounding the series when no until is
// given: a count-derived end for daily and weekly rules, otherwise a fixed
// horizon.
func (r *Rule) deriveSeriesEnd() time.Time {
	if until, ok := r.until.Get(); ok {
		return until
	}
	startDay := calendar.DateOf(r.start)
	if n, ok := r.count.Get(); ok {
		switch r.typ {
		case TypeDaily:
			return startDay.AddDays((n - 1) * r.interval).At(r.start, r.loc)
		case TypeWeekly:
			return weeklyCountEnd(startDay, r.weekdays, r.interval, n).At(r.start, r.loc)
		}
	}
	if r.typ == TypeYearly {
		return r.start.AddDate(maxYearlyOccurrences, 0, 0)
	}
	return r.start.AddDate(fallbackYears, 0, 0)
}

// weeklyCountEnd returns the last day of the week holding the n-th
// occurrence. Selected days earlier in the first week than the start are
// not part of the series, so the end moves forward to make room for them.
func weeklyCountEnd(startDay calendar.Date, ws Weekdays, interval, n int) calendar.Date {
	days := ws.Days()
	startOffset := calendar.WeekdayOffset(startDay.Weekday())
	skipped := 0
	for _, d := range days {
		if calendar.WeekdayOffset(d) < startOffset {
			skipped++
		}
	}
	weeks := (n + skipped + len(days) - 1) / len(days)
	return calendar.MondayOf(startDay).AddDays(7*interval*(weeks-1) + 6)
}

// ForRange returns a copy of the rule restricted to [start, end).
func (r *Rule) ForRange(start, end time.Time) (*Rule, error) {
	if !end.After(start) {
		return nil, invalidRule("range end %s is not after range start %s", end, start)
	}
	c := r.clone()
	c.window = mo.Some(Window{Start: start, End: end})
	return c, nil
}

// ForPosition returns a copy of the rule asking for the n-th occurrence.
func (r *Rule) ForPosition(n int) (*Rule, error) {
	if n < 1 {
		return nil, invalidRule("position must be at least 1, got %d", n)
	}
	c := r.clone()
	c.position = mo.Some(n)
	return c, nil
}

func (r *Rule) clone() *Rule {
	c := *r
	c.changeExceptions = r.changeExceptions.clone()
	c.deleteExceptions = r.deleteExceptions.clone()
	return &c
}

func (r *Rule) Type() Type { return r.typ }
func (r *Rule) Interval() int { return r.interval }
func (r *Rule) Weekdays() Weekdays { return r.weekdays }
func (r *Rule) Ordinal() int { return r.ordinal }
func (r *Rule) Token() DayToken { return r.token }
func (r *Rule) DayOfMonth() int { return r.dayOfMonth }
func (r *Rule) Month() time.Month { return r.month }
func (r *Rule) Start() time.Time { return r.start }
func (r *Rule) End() time.Time { return r.start.Add(r.duration) }
func (r *Rule) Duration() time.Duration { return r.duration }
func (r *Rule) Location() *time.Location { return r.loc }
func (r *Rule) Until() mo.Option[time.Time] { return r.until }
func (r *Rule) Count() mo.Option[int] { return r.count }
func (r *Rule) Range() mo.Option[Window] { return r.window }
func (r *Rule) Position() mo.Option[int] { return r.position }
func (r *Rule) Greedy() bool { return r.greedy }
func (r *Rule) ResultCap() int { return r.resultCap }
func (r *Rule) OpBudget() int { return r.opBudget }
func (r *Rule) SeriesEnd() time.Time { return r.seriesEnd }
func (r *Rule) ChangeExceptions() []time.Time { return sortedDays(r.changeExceptions) }
func (r *Rule) DeleteExceptions() []time.Time { return sortedDays(r.deleteExceptions) }

// HasBoundaries reports whether a range or a position narrows the result.
func (r *Rule) HasBoundaries() bool {
	return r.window.IsPresent() || r.position.IsPresent()
}

func sortedDays(s DaySet) []time.Time {
	days := s.Days()
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	return days
}

// Fingerprint returns a stable hash of everything that influences the
// expansion of the rule.
func (r *Rule) Fingerprint() string {
	hasher := sha256.New()

	fmt.Fprintf(hasher, "%d|%d|%d|%d|%d|%d|%d|%d|",
		r.typ, r.interval, r.weekdays, r.ordinal, r.token.Kind, r.token.Weekday, r.dayOfMonth, r.month)
	fmt.Fprintf(hasher, "%s|%s|%d|", r.start.Format(time.RFC3339Nano), r.loc.String(), r.duration)
	fmt.Fprintf(hasher, "%t:%s|%t:%d|%t:%d|%t|%d|%d|",
		r.until.IsPresent(), r.until.OrEmpty().Format(time.RFC3339Nano),
		r.count.IsPresent(), r.count.OrEmpty(),
		r.position.IsPresent(), r.position.OrEmpty(),
		r.greedy, r.resultCap, r.opBudget)

	w := r.window.OrEmpty()
	fmt.Fprintf(hasher, "%t:%s|%s|", r.window.IsPresent(),
		w.Start.Format(time.RFC3339Nano), w.End.Format(time.RFC3339Nano))

	for _, d := range r.ChangeExceptions() {
		fmt.Fprintf(hasher, "c%d|", d.Unix())
	}
	for _, d := range r.DeleteExceptions() {
		fmt.Fprintf(hasher, "d%d|", d.Unix())
	}

	return fmt.Sprintf("%x", hasher.Sum(nil))
}
