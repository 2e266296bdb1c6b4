/*
Package recurrence expands recurring calendar events into concrete
occurrences.

# Basic Usage

Build a rule, then hand it to an engine:

	rule, err := recurrence.NewRule(recurrence.TypeWeekly,
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		recurrence.WithWeekdays(recurrence.Monday|recurrence.Wednesday|recurrence.Friday),
		recurrence.WithDuration(time.Hour),
		recurrence.WithCount(6),
	)
	if err != nil {
		log.Fatal(err)
	}
	result, err := recurrence.NewEngine().Compute(ctx, rule)

# Rules

A rule repeats daily, weekly, monthly or yearly every Interval periods.
Monthly and yearly rules pick their day either as a fixed day of the month
(WithDayOfMonth; months without that day are skipped) or as an ordinal day
(WithOrdinalDay) such as the 2nd Tuesday, the last weekday or the 3rd
weekend day.

The series ends at WithUntil (a date, inclusive), after WithCount positions,
or at a far horizon otherwise. Change and delete exceptions remove single
days from the series.

# Ordinals

Every candidate inside the series bounds takes the next ordinal, including
candidates removed by an exception. A rule with WithCount(5) and one
exception therefore yields four occurrences, and the occurrence after the
exception keeps the ordinal it would have had without it.

# Queries

WithRange limits the result to occurrences starting inside [start, end);
with WithGreedy(true) occurrences that merely overlap the range are kept
too. WithPosition asks for the occurrence with a given ordinal.

# Limits

Each Compute call meters its loops with a Governor. Once the operation
budget is spent the call fails with an *Error of type ErrBudgetExceeded
carrying a Snapshot of the expansion, and no partial result is returned.
The context passed to Compute cancels long expansions as well.
*/
package recurrence
