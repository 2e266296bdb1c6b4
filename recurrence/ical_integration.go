package recurrence

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/cyp0633/librecur/internal/calendar"
)

const propRecurrenceID = "RECURRENCE-ID"

// RuleFromICS decodes an iCalendar document holding one recurring event
// (plus optional overrides sharing its UID) and builds its rule.
func RuleFromICS(ics string, loc *time.Location, opts ...RuleOption) (*Rule, error) {
	cal, err := ical.NewDecoder(strings.NewReader(ics)).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}

	var master *ical.Component
	var overrides []*ical.Component
	for _, event := range cal.Events() {
		if event.Props.Get(propRecurrenceID) != nil {
			overrides = append(overrides, event.Component)
			continue
		}
		if master != nil {
			return nil, fmt.Errorf("multiple master events found in calendar")
		}
		master = event.Component
	}
	if master == nil {
		return nil, fmt.Errorf("no events found in calendar")
	}

	return RuleFromComponent(master, loc, overrides, opts...)
}

// RuleFromComponent builds a rule from a master VEVENT. EXDATE values become
// delete exceptions and the RECURRENCE-ID of each override becomes a change
// exception. A component without RRULE yields a TypeNone rule. Extra opts are
// applied after the ones derived from the component.
func RuleFromComponent(comp *ical.Component, loc *time.Location, overrides []*ical.Component, opts ...RuleOption) (*Rule, error) {
	if loc == nil {
		loc = time.UTC
	}

	start, end, ok := startAndEnd(comp, loc)
	if !ok {
		return nil, invalidRule("component has no usable DTSTART")
	}

	// Floating and UTC start times follow the caller's zone
	seriesLoc := start.Location()
	if seriesLoc == time.UTC {
		seriesLoc = loc
	}

	ruleOpts := []RuleOption{WithLocation(seriesLoc), WithDuration(end.Sub(start))}
	typ := TypeNone

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		ropt, err := rrule.StrToROption(prop.Value)
		if err != nil {
			return nil, &Error{Type: ErrInvalidRule, Message: fmt.Sprintf("failed to parse RRULE '%s'", prop.Value), Err: err}
		}
		typ, err = ruleType(ropt.Freq)
		if err != nil {
			return nil, err
		}
		selectors, err := selectorsFromROption(typ, ropt, start.In(seriesLoc))
		if err != nil {
			return nil, err
		}
		ruleOpts = append(ruleOpts, selectors...)
	}

	for _, prop := range comp.Props[ical.PropExceptionDates] {
		ruleOpts = append(ruleOpts, WithDeleteExceptions(parseDateList(prop.Value, prop.Params, seriesLoc)...))
	}
	for _, o := range overrides {
		if prop := o.Props.Get(propRecurrenceID); prop != nil && prop.Value != "" {
			if id, err := parseDateTime(prop.Value, prop.Params, seriesLoc); err == nil {
				ruleOpts = append(ruleOpts, WithChangeExceptions(id))
			}
		}
	}

	return NewRule(typ, start, append(ruleOpts, opts...)...)
}

// lastDayUntil turns an RRULE UNTIL instant into the last day whose
// occurrence, at the wall clock of start, begins at or before until. The
// day is returned as a bare date (midnight UTC).
func lastDayUntil(until, start time.Time) time.Time {
	last := calendar.DateOf(until.In(start.Location()))
	if last.At(start, start.Location()).After(until) {
		last = last.AddDays(-1)
	}
	return last.Midnight()
}

func ruleType(freq rrule.Frequency) (Type, error) {
	switch freq {
	case rrule.DAILY:
		return TypeDaily, nil
	case rrule.WEEKLY:
		return TypeWeekly, nil
	case rrule.MONTHLY:
		return TypeMonthly, nil
	case rrule.YEARLY:
		return TypeYearly, nil
	}
	return TypeNone, invalidRule("unsupported RRULE frequency %v", freq)
}

// selectorsFromROption maps the parts of a parsed RRULE onto rule options.
// Only shapes expressible as a single day selector are accepted. start is
// the series start on the series' wall clock.
func selectorsFromROption(typ Type, ropt *rrule.ROption, start time.Time) ([]RuleOption, error) {
	var opts []RuleOption
	if ropt.Interval > 0 {
		opts = append(opts, WithInterval(ropt.Interval))
	}
	if ropt.Count > 0 {
		opts = append(opts, WithCount(ropt.Count))
	}
	if !ropt.Until.IsZero() {
		opts = append(opts, WithUntil(lastDayUntil(ropt.Until, start)))
	}

	switch typ {
	case TypeWeekly:
		var ws Weekdays
		for _, wd := range ropt.Byweekday {
			ws |= WeekdaysOf(fromRRuleDay(wd))
		}
		opts = append(opts, WithWeekdays(ws))
	case TypeMonthly, TypeYearly:
		sel, err := daySelector(ropt, start)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sel)
		if typ == TypeYearly {
			switch len(ropt.Bymonth) {
			case 0:
			case 1:
				opts = append(opts, WithMonth(time.Month(ropt.Bymonth[0])))
			default:
				return nil, invalidRule("RRULE with several BYMONTH values is not supported")
			}
		}
	}
	return opts, nil
}

func daySelector(ropt *rrule.ROption, start time.Time) (RuleOption, error) {
	switch {
	case len(ropt.Bymonthday) > 0:
		if len(ropt.Bymonthday) > 1 || len(ropt.Byweekday) > 0 {
			return nil, invalidRule("RRULE combining several day selectors is not supported")
		}
		switch day := ropt.Bymonthday[0]; {
		case day == -1:
			return WithOrdinalDay(LastOrdinal, AnyDay()), nil
		case day > 0:
			return WithDayOfMonth(day), nil
		}
		return nil, invalidRule("unsupported BYMONTHDAY %d", ropt.Bymonthday[0])

	case len(ropt.Byweekday) == 1 && ropt.Byweekday[0].N() != 0:
		if len(ropt.Bysetpos) > 0 {
			return nil, invalidRule("RRULE combining BYSETPOS with an ordinal BYDAY is not supported")
		}
		wd := ropt.Byweekday[0]
		ordinal, err := ordinalFromRRule(wd.N())
		if err != nil {
			return nil, err
		}
		return WithOrdinalDay(ordinal, LiteralWeekday(fromRRuleDay(wd))), nil

	case len(ropt.Byweekday) > 0:
		if len(ropt.Bysetpos) != 1 {
			return nil, invalidRule("RRULE with a BYDAY set needs exactly one BYSETPOS")
		}
		ordinal, err := ordinalFromRRule(ropt.Bysetpos[0])
		if err != nil {
			return nil, err
		}
		var ws Weekdays
		for _, wd := range ropt.Byweekday {
			if wd.N() != 0 {
				return nil, invalidRule("RRULE mixing ordinal and plain BYDAY values is not supported")
			}
			ws |= WeekdaysOf(fromRRuleDay(wd))
		}
		token, err := tokenFromWeekdays(ws)
		if err != nil {
			return nil, err
		}
		return WithOrdinalDay(ordinal, token), nil
	}

	return WithDayOfMonth(start.Day()), nil
}

func ordinalFromRRule(n int) (int, error) {
	switch {
	case n == -1:
		return LastOrdinal, nil
	case n >= 1 && n < LastOrdinal:
		return n, nil
	}
	return 0, invalidRule("unsupported ordinal %d", n)
}

// fromRRuleDay converts rrule-go's Monday-based day index.
func fromRRuleDay(wd rrule.Weekday) time.Weekday {
	return time.Weekday((wd.Day() + 1) % 7)
}

// tokenFromWeekdays interprets a weekday set as a day token: one day is a
// literal weekday, and the full week, the workdays and the weekend are the
// pseudo-days.
func tokenFromWeekdays(ws Weekdays) (DayToken, error) {
	switch ws {
	case AllDays:
		return AnyDay(), nil
	case WorkDays:
		return Workday(), nil
	case WeekendDays:
		return WeekendDay(), nil
	}
	if days := ws.Days(); len(days) == 1 {
		return LiteralWeekday(days[0]), nil
	}
	return DayToken{}, invalidRule("invalid weekday token: %s", ws)
}

// startAndEnd extracts the first occurrence's start and end from an iCal
// component
func startAndEnd(comp *ical.Component, loc *time.Location) (start, end time.Time, ok bool) {
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil || start.IsZero() {
		return time.Time{}, time.Time{}, false
	}

	if dtend, err := comp.Props.DateTime(ical.PropDateTimeEnd, loc); err == nil && !dtend.IsZero() {
		end = dtend
		// All-day events whose end equals the start last one day
		if isAllDayValue(comp.Props.Get(ical.PropDateTimeStart)) && !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
		duration, err := durationProp.Duration()
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		end = start.Add(duration)
	} else if isAllDayValue(comp.Props.Get(ical.PropDateTimeStart)) {
		end = start.AddDate(0, 0, 1)
	} else {
		end = start
	}

	return start, end, true
}

func isAllDayValue(prop *ical.Prop) bool {
	return prop != nil && isDateParam(prop.Params)
}

func isDateParam(params ical.Params) bool {
	if params == nil {
		return false
	}
	value := params.Get(ical.ParamValue)
	return strings.EqualFold(value, "DATE")
}

// parseDateList parses a comma-separated EXDATE/RDATE value. Unparseable
// entries are skipped.
func parseDateList(value string, params ical.Params, loc *time.Location) []time.Time {
	var dates []time.Time
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if t, err := parseDateTime(field, params, loc); err == nil {
			dates = append(dates, t)
		}
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates
}

// parseDateTime parses an iCalendar DATE or DATE-TIME value into the
// wall-clock day it names, as midnight UTC.
func parseDateTime(value string, params ical.Params, loc *time.Location) (time.Time, error) {
	if isDateParam(params) || len(value) == len("20060102") {
		t, err := time.Parse("20060102", value)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}

	var t time.Time
	var err error
	if strings.HasSuffix(value, "Z") {
		t, err = time.Parse("20060102T150405Z", value)
		t = t.In(loc)
	} else {
		zone := loc
		if tzid := params.Get(ical.ParamTimezoneID); tzid != "" {
			if l, lerr := time.LoadLocation(tzid); lerr == nil {
				zone = l
			}
		}
		t, err = time.ParseInLocation("20060102T150405", value, zone)
	}
	if err != nil {
		return time.Time{}, err
	}

	// Exceptions name a wall-clock day of the series
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
