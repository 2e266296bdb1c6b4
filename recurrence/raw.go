package recurrence

import (
	"fmt"
	"time"
)

// Day mask sentinels used by RawRule.Days besides plain weekday bits.
const (
	MaskDay        = int(AllDays)     // any day
	MaskWeekday    = int(WorkDays)    // Monday through Friday
	MaskWeekendDay = int(WeekendDays) // Saturday and Sunday
)

// RawRule carries recurrence parameters in the shape they are stored by
// calendar backends: integer codes, a weekday bitmask, millisecond
// instants and comma-separated exception lists. Zero values mean "not set".
type RawRule struct {
	Type       int // 0 none, 1 daily, 2 weekly, 3 monthly, 4 yearly
	Interval   int
	Days       int // weekday bitmask (Sunday=1 ... Saturday=64) or a Mask* sentinel
	DayInMonth int // ordinal 1-5 when Days is set, day of month otherwise
	Month      int // 0-11, yearly rules only

	Start       int64 // first occurrence start, ms since epoch; required unless Type is 0
	End         int64 // first occurrence end, ms since epoch
	Until       int64
	Occurrences int

	ChangeExceptions string
	DeleteExceptions string

	RangeStart int64
	RangeEnd   int64
	Position   int
	Greedy     bool

	TimeZone string
	OpBudget int
}

// Rule validates the raw parameters and converts them to a Rule.
func (raw RawRule) Rule() (*Rule, error) {
	if raw.Type < int(TypeNone) || raw.Type > int(TypeYearly) {
		return nil, &Error{Type: ErrUnknownType, Message: fmt.Sprintf("unknown recurrence type code %d", raw.Type)}
	}
	typ := Type(raw.Type)
	if typ != TypeNone && raw.Start == 0 {
		return nil, invalidRule("series start is required")
	}

	start := time.UnixMilli(raw.Start)
	interval := raw.Interval
	if interval == 0 {
		interval = 1
	}
	opts := []RuleOption{WithInterval(interval)}
	if raw.TimeZone != "" {
		opts = append(opts, WithTimeZone(raw.TimeZone))
	} else {
		opts = append(opts, WithLocation(time.UTC))
	}
	if raw.End != 0 {
		opts = append(opts, WithDuration(time.Duration(raw.End-raw.Start)*time.Millisecond))
	}

	switch typ {
	case TypeWeekly:
		if raw.Days&^int(AllDays) != 0 {
			return nil, invalidRule("invalid weekday mask %d", raw.Days)
		}
		opts = append(opts, WithWeekdays(Weekdays(raw.Days)))
	case TypeMonthly, TypeYearly:
		sel, err := raw.daySelector()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sel)
		if typ == TypeYearly {
			if raw.Month < 0 || raw.Month > 11 {
				return nil, invalidRule("month must be 0..11, got %d", raw.Month)
			}
			opts = append(opts, WithMonth(time.Month(raw.Month+1)))
		}
	}

	if raw.Until != 0 {
		opts = append(opts, WithUntil(time.UnixMilli(raw.Until).UTC()))
	}
	if raw.Occurrences != 0 {
		opts = append(opts, WithCount(raw.Occurrences))
	}

	change, err := ParseDaySet(raw.ChangeExceptions)
	if err != nil {
		return nil, &Error{Type: ErrInvalidRule, Message: "invalid change exceptions", Err: err}
	}
	deleted, err := ParseDaySet(raw.DeleteExceptions)
	if err != nil {
		return nil, &Error{Type: ErrInvalidRule, Message: "invalid delete exceptions", Err: err}
	}
	opts = append(opts, WithChangeExceptions(change.Days()...), WithDeleteExceptions(deleted.Days()...))

	if raw.RangeStart != 0 || raw.RangeEnd != 0 {
		opts = append(opts, WithRange(time.UnixMilli(raw.RangeStart), time.UnixMilli(raw.RangeEnd)))
	}
	if raw.Position != 0 {
		opts = append(opts, WithPosition(raw.Position))
	}
	opts = append(opts, WithGreedy(raw.Greedy), WithOpBudget(raw.OpBudget))

	return NewRule(typ, start, opts...)
}

func (raw RawRule) daySelector() (RuleOption, error) {
	if raw.Days == 0 {
		if raw.DayInMonth == 0 {
			return nil, invalidRule("neither a weekday mask nor a day in month is set")
		}
		return WithDayOfMonth(raw.DayInMonth), nil
	}
	if raw.Days&^int(AllDays) != 0 {
		return nil, invalidRule("invalid weekday mask %d", raw.Days)
	}
	token, err := tokenFromWeekdays(Weekdays(raw.Days))
	if err != nil {
		return nil, err
	}
	return WithOrdinalDay(raw.DayInMonth, token), nil
}
