package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}

	for _, tt := range tests {
		t.Run(time.Date(tt.year, tt.month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"), func(t *testing.T) {
			assert.Equal(t, tt.want, DaysIn(tt.year, tt.month))
		})
	}
}

func TestAddMonths(t *testing.T) {
	y, m := AddMonths(2024, time.November, 3)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.February, m)

	y, m = AddMonths(2024, time.January, 0)
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.January, m)

	y, m = AddMonths(2024, time.December, 24)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.December, m)
}

func TestMondayOf(t *testing.T) {
	// 2024-01-07 is a Sunday, its week starts on Monday 2024-01-01
	assert.Equal(t, Date{2024, time.January, 1}, MondayOf(Date{2024, time.January, 7}))
	assert.Equal(t, Date{2024, time.January, 1}, MondayOf(Date{2024, time.January, 1}))
	// crossing a year boundary
	assert.Equal(t, Date{2024, time.December, 30}, MondayOf(Date{2025, time.January, 2}))
}

func TestDateArithmetic(t *testing.T) {
	d := Date{2024, time.February, 28}

	assert.Equal(t, Date{2024, time.February, 29}, d.AddDays(1))
	assert.Equal(t, Date{2024, time.March, 1}, d.AddDays(2))
	assert.True(t, d.Before(Date{2024, time.March, 1}))
	assert.True(t, d.After(Date{2023, time.December, 31}))
	assert.Equal(t, 0, d.Compare(Date{2024, time.February, 28}))
	assert.Equal(t, time.Wednesday, d.Weekday())
	assert.Equal(t, "2024-02-28", d.String())
}

func TestDateAt(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}

	clock := time.Date(2024, 1, 1, 9, 30, 0, 0, berlin)
	// Wall clock survives the spring-forward transition on 2024-03-31.
	got := Date{2024, time.April, 1}.At(clock, berlin)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 30, got.Minute())
	_, offset := got.Zone()
	assert.Equal(t, 2*3600, offset)

	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), DateOf(got).Midnight())
}

func TestWeekdayHelpers(t *testing.T) {
	assert.Equal(t, 0, WeekdayOffset(time.Monday))
	assert.Equal(t, 6, WeekdayOffset(time.Sunday))
	assert.True(t, IsWorkday(time.Friday))
	assert.False(t, IsWorkday(time.Saturday))
	assert.False(t, IsWorkday(time.Sunday))
}
