package recurrence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func calendarOf(lines ...string) string {
	body := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Caldora//Go Calendar//EN",
	}, lines...)
	return strings.Join(append(body, "END:VCALENDAR"), "\r\n") + "\r\n"
}

func event(lines ...string) []string {
	body := append([]string{
		"BEGIN:VEVENT",
		"DTSTAMP:20231201T000000Z",
	}, lines...)
	return append(body, "END:VEVENT")
}

func TestRuleFromICS(t *testing.T) {
	at := func(y int, m time.Month, d, h int) time.Time {
		return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		ics      string
		typ      Type
		expected []time.Time
		ordinals []int
	}{
		{
			name: "weekly with EXDATE",
			ics: calendarOf(event(
				"UID:weekly-1",
				"SUMMARY:Standup",
				"DTSTART:20240101T090000Z",
				"DTEND:20240101T093000Z",
				"RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=6",
				"EXDATE:20240103T090000Z",
			)...),
			typ:      TypeWeekly,
			expected: []time.Time{at(2024, 1, 1, 9), at(2024, 1, 5, 9), at(2024, 1, 8, 9), at(2024, 1, 10, 9), at(2024, 1, 12, 9)},
			ordinals: []int{1, 3, 4, 5, 6},
		},
		{
			name: "monthly 2nd Tuesday",
			ics: calendarOf(event(
				"UID:monthly-1",
				"DTSTART:20240101T100000Z",
				"DURATION:PT1H",
				"RRULE:FREQ=MONTHLY;BYDAY=2TU;COUNT=3",
			)...),
			typ:      TypeMonthly,
			expected: []time.Time{at(2024, 1, 9, 10), at(2024, 2, 13, 10), at(2024, 3, 12, 10)},
			ordinals: []int{1, 2, 3},
		},
		{
			name: "monthly last weekday via BYSETPOS",
			ics: calendarOf(event(
				"UID:monthly-2",
				"DTSTART:20240101T100000Z",
				"RRULE:FREQ=MONTHLY;BYDAY=MO,TU,WE,TH,FR;BYSETPOS=-1;COUNT=3",
			)...),
			typ:      TypeMonthly,
			expected: []time.Time{at(2024, 1, 31, 10), at(2024, 2, 29, 10), at(2024, 3, 29, 10)},
			ordinals: []int{1, 2, 3},
		},
		{
			name: "yearly by month day",
			ics: calendarOf(event(
				"UID:yearly-1",
				"DTSTART:20240315T080000Z",
				"RRULE:FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=15;COUNT=2",
			)...),
			typ:      TypeYearly,
			expected: []time.Time{at(2024, 3, 15, 8), at(2025, 3, 15, 8)},
			ordinals: []int{1, 2},
		},
		{
			name: "daily with override",
			ics: calendarOf(append(event(
				"UID:daily-1",
				"DTSTART:20240101T090000Z",
				"RRULE:FREQ=DAILY;COUNT=4",
			), event(
				"UID:daily-1",
				"RECURRENCE-ID:20240102T090000Z",
				"DTSTART:20240102T140000Z",
				"SUMMARY:Moved",
			)...)...),
			typ:      TypeDaily,
			expected: []time.Time{at(2024, 1, 1, 9), at(2024, 1, 3, 9), at(2024, 1, 4, 9)},
			ordinals: []int{1, 3, 4},
		},
		{
			name: "daily until",
			ics: calendarOf(event(
				"UID:daily-2",
				"DTSTART:20240101T090000Z",
				"RRULE:FREQ=DAILY;INTERVAL=2;UNTIL=20240107T090000Z",
			)...),
			typ:      TypeDaily,
			expected: []time.Time{at(2024, 1, 1, 9), at(2024, 1, 3, 9), at(2024, 1, 5, 9), at(2024, 1, 7, 9)},
			ordinals: []int{1, 2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := RuleFromICS(tt.ics, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, rule.Type())

			result := compute(t, rule)
			assert.Equal(t, tt.expected, starts(result))
			assert.Equal(t, tt.ordinals, ordinals(result))
		})
	}
}

func TestRuleFromICS_UTCExceptionsInSeriesZone(t *testing.T) {
	if _, err := time.LoadLocation("Asia/Tokyo"); err != nil {
		t.Skip("tzdata not available")
	}
	// 08:00 in Tokyo is 23:00 UTC on the previous day
	at := func(d int) time.Time { return time.Date(2024, 1, d-1, 23, 0, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		ics      string
		expected []time.Time
		ordinals []int
	}{
		{
			name: "EXDATE in UTC",
			ics: calendarOf(event(
				"UID:tokyo-1",
				"DTSTART;TZID=Asia/Tokyo:20240101T080000",
				"RRULE:FREQ=DAILY;COUNT=4",
				"EXDATE:20240102T230000Z",
			)...),
			expected: []time.Time{at(1), at(2), at(4)},
			ordinals: []int{1, 2, 4},
		},
		{
			name: "RECURRENCE-ID in UTC",
			ics: calendarOf(append(event(
				"UID:tokyo-2",
				"DTSTART;TZID=Asia/Tokyo:20240101T080000",
				"RRULE:FREQ=DAILY;COUNT=4",
			), event(
				"UID:tokyo-2",
				"RECURRENCE-ID:20240101T230000Z",
				"DTSTART;TZID=Asia/Tokyo:20240102T120000",
			)...)...),
			expected: []time.Time{at(1), at(3), at(4)},
			ordinals: []int{1, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := RuleFromICS(tt.ics, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, "Asia/Tokyo", rule.Location().String())

			result := compute(t, rule)
			got := make([]time.Time, 0, len(result.Occurrences))
			for _, o := range result.Occurrences {
				got = append(got, o.Start.UTC())
			}
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.ordinals, ordinals(result))
		})
	}
}

func TestRuleFromICS_UntilMatchesRRule(t *testing.T) {
	dtstart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		rrule string
	}{
		{"until before the clock", "FREQ=DAILY;UNTIL=20240105T000000Z"},
		{"until at the clock", "FREQ=DAILY;UNTIL=20240105T090000Z"},
		{"until one second early", "FREQ=DAILY;INTERVAL=2;UNTIL=20240109T085959Z"},
		{"weekly until early morning", "FREQ=WEEKLY;BYDAY=MO,TH;UNTIL=20240118T080000Z"},
		{"monthly until midnight", "FREQ=MONTHLY;BYDAY=2TU;UNTIL=20240312T000000Z"},
		{"until late evening", "FREQ=DAILY;UNTIL=20240104T235959Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ropt, err := rrule.StrToROption(tt.rrule)
			require.NoError(t, err)
			ropt.Dtstart = dtstart
			oracle, err := rrule.NewRRule(*ropt)
			require.NoError(t, err)

			rule, err := RuleFromICS(calendarOf(event(
				"UID:until-1",
				"DTSTART:20240101T090000Z",
				"RRULE:"+tt.rrule,
			)...), time.UTC)
			require.NoError(t, err)

			assert.Equal(t, oracle.All(), starts(compute(t, rule)))
		})
	}
}

func TestLastDayUntil(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, day(2024, 1, 4), lastDayUntil(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), start))
	assert.Equal(t, day(2024, 1, 5), lastDayUntil(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), start))
	assert.Equal(t, day(2024, 1, 5), lastDayUntil(time.Date(2024, 1, 5, 23, 0, 0, 0, time.UTC), start))

	// The until instant is read on the series' wall clock
	tokyo := time.FixedZone("JST", 9*3600)
	inTokyo := time.Date(2024, 1, 1, 8, 0, 0, 0, tokyo)
	assert.Equal(t, day(2024, 1, 3), lastDayUntil(time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC), inTokyo))
	assert.Equal(t, day(2024, 1, 2), lastDayUntil(time.Date(2024, 1, 2, 22, 59, 0, 0, time.UTC), inTokyo))
}

func TestRuleFromICS_Duration(t *testing.T) {
	rule, err := RuleFromICS(calendarOf(event(
		"UID:weekly-2",
		"DTSTART:20240101T090000Z",
		"DTEND:20240101T093000Z",
		"RRULE:FREQ=WEEKLY;COUNT=2",
	)...), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, rule.Duration())
	assert.Equal(t, Monday, rule.Weekdays())

	result := compute(t, rule)
	require.Len(t, result.Occurrences, 2)
	assert.Equal(t, time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC), result.Occurrences[1].End)
}

func TestRuleFromICS_NoRRule(t *testing.T) {
	rule, err := RuleFromICS(calendarOf(event(
		"UID:single-1",
		"DTSTART:20240101T090000Z",
	)...), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, TypeNone, rule.Type())

	result, err := NewEngine().Compute(context.Background(), rule)
	require.NoError(t, err)
	assert.Zero(t, result.Len())
}

func TestRuleFromICS_ExtraOptions(t *testing.T) {
	rule, err := RuleFromICS(calendarOf(event(
		"UID:daily-3",
		"DTSTART:20240101T090000Z",
		"RRULE:FREQ=DAILY",
	)...), time.UTC, WithPosition(10))
	require.NoError(t, err)

	result := compute(t, rule)
	require.Len(t, result.Occurrences, 1)
	assert.Equal(t, 10, result.Occurrences[0].Ordinal)
	assert.Equal(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), result.Occurrences[0].Start)
}

func TestRuleFromICS_Errors(t *testing.T) {
	tests := []struct {
		name   string
		ics    string
		config bool
	}{
		{
			name: "no events",
			ics:  calendarOf(),
		},
		{
			name: "two masters",
			ics: calendarOf(append(
				event("UID:a", "DTSTART:20240101T090000Z"),
				event("UID:b", "DTSTART:20240102T090000Z")...,
			)...),
		},
		{
			name:   "missing DTSTART",
			ics:    calendarOf(event("UID:c", "RRULE:FREQ=DAILY")...),
			config: true,
		},
		{
			name:   "hourly frequency",
			ics:    calendarOf(event("UID:d", "DTSTART:20240101T090000Z", "RRULE:FREQ=HOURLY")...),
			config: true,
		},
		{
			name:   "BYDAY set without BYSETPOS",
			ics:    calendarOf(event("UID:e", "DTSTART:20240101T090000Z", "RRULE:FREQ=MONTHLY;BYDAY=MO,TU")...),
			config: true,
		},
		{
			name:   "garbled RRULE",
			ics:    calendarOf(event("UID:f", "DTSTART:20240101T090000Z", "RRULE:FREQ=SOMETIMES")...),
			config: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := RuleFromICS(tt.ics, time.UTC)
			require.Error(t, err)
			assert.Nil(t, rule)
			assert.Equal(t, tt.config, IsConfigurationError(err))
		})
	}
}

func TestParseDateTime(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)

	got, err := parseDateTime("20240101", nil, tokyo)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), got)

	// 20:00 UTC is already the next day in Tokyo
	got, err = parseDateTime("20240101T200000Z", nil, tokyo)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 2), got)

	got, err = parseDateTime("20240101T200000", nil, tokyo)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), got)

	_, err = parseDateTime("not-a-date", nil, tokyo)
	assert.Error(t, err)
}
