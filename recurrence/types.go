package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/librecur/internal/calendar"
)

// Type is the recurrence frequency of a rule
type Type int

const (
	TypeNone Type = iota
	TypeDaily
	TypeWeekly
	TypeMonthly
	TypeYearly
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeDaily:
		return "daily"
	case TypeWeekly:
		return "weekly"
	case TypeMonthly:
		return "monthly"
	case TypeYearly:
		return "yearly"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Weekdays is a set of days of the week. Bit i is time.Weekday(i), so
// Sunday=1, Monday=2 ... Saturday=64.
type Weekdays uint8

const (
	Sunday Weekdays = 1 << iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday

	AllDays     = Sunday | Monday | Tuesday | Wednesday | Thursday | Friday | Saturday
	WorkDays    = Monday | Tuesday | Wednesday | Thursday | Friday
	WeekendDays = Saturday | Sunday
)

// WeekdaysOf builds a set from time.Weekday values.
func WeekdaysOf(days ...time.Weekday) Weekdays {
	var ws Weekdays
	for _, d := range days {
		ws |= 1 << uint(d)
	}
	return ws
}

// Has reports whether w is in the set.
func (ws Weekdays) Has(w time.Weekday) bool {
	return ws&(1<<uint(w)) != 0
}

// Days lists the members ordered Monday first, Sunday last.
func (ws Weekdays) Days() []time.Weekday {
	var days []time.Weekday
	for i := 1; i <= 7; i++ {
		w := time.Weekday(i % 7)
		if ws.Has(w) {
			days = append(days, w)
		}
	}
	return days
}

func (ws Weekdays) String() string {
	days := ws.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ",")
}

// TokenKind tags the variant held by a DayToken.
type TokenKind int

const (
	TokenNone TokenKind = iota
	TokenWeekday
	TokenDay
	TokenWorkday
	TokenWeekendDay
)

// DayToken selects which kind of day an ordinal counts: a literal weekday
// ("2nd Tuesday"), any calendar day ("last day"), a workday or a weekend day.
type DayToken struct {
	Kind    TokenKind
	Weekday time.Weekday // only for TokenWeekday
}

func LiteralWeekday(w time.Weekday) DayToken { return DayToken{Kind: TokenWeekday, Weekday: w} }
func AnyDay() DayToken                       { return DayToken{Kind: TokenDay} }
func Workday() DayToken                      { return DayToken{Kind: TokenWorkday} }
func WeekendDay() DayToken                   { return DayToken{Kind: TokenWeekendDay} }

// IsZero reports whether no token is set.
func (t DayToken) IsZero() bool { return t.Kind == TokenNone }

// matches reports whether a day with weekday w qualifies for the token.
func (t DayToken) matches(w time.Weekday) bool {
	switch t.Kind {
	case TokenWeekday:
		return w == t.Weekday
	case TokenDay:
		return true
	case TokenWorkday:
		return calendar.IsWorkday(w)
	case TokenWeekendDay:
		return !calendar.IsWorkday(w)
	}
	return false
}

func (t DayToken) valid() bool {
	switch t.Kind {
	case TokenWeekday:
		return t.Weekday >= time.Sunday && t.Weekday <= time.Saturday
	case TokenDay, TokenWorkday, TokenWeekendDay:
		return true
	}
	return false
}

func (t DayToken) String() string {
	switch t.Kind {
	case TokenWeekday:
		return t.Weekday.String()
	case TokenDay:
		return "day"
	case TokenWorkday:
		return "weekday"
	case TokenWeekendDay:
		return "weekend day"
	}
	return "none"
}

// LastOrdinal is the ordinal meaning "the last one in the month".
const LastOrdinal = 5

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Occurrence is a single expanded instance of a recurring event
type Occurrence struct {
	Ordinal int       // 1-based position in the series, counting suppressed candidates
	Start   time.Time // Start time of this occurrence
	End     time.Time // End time of this occurrence
}

// Result holds the accepted occurrences of one computation
type Result struct {
	Occurrences []Occurrence
	Truncated   bool // more occurrences existed beyond the result cap
	Steps       int  // governor ticks consumed
}

// Len returns the number of occurrences.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Occurrences)
}

func (r *Result) clone() *Result {
	c := *r
	c.Occurrences = append([]Occurrence(nil), r.Occurrences...)
	return &c
}
