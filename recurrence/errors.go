package recurrence

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrorType represents the type of recurrence error
type ErrorType string

const (
	ErrInvalidRule    ErrorType = "invalid_rule"
	ErrUnknownType    ErrorType = "unknown_type"
	ErrBudgetExceeded ErrorType = "budget_exceeded"
)

// Error represents a recurrence-related error
type Error struct {
	Type     ErrorType
	Message  string
	Err      error
	Snapshot *Snapshot // set for ErrBudgetExceeded
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func invalidRule(format string, args ...any) error {
	return &Error{Type: ErrInvalidRule, Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err rejects the shape of a rule.
// Such errors are raised before any expansion happens.
func IsConfigurationError(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Type == ErrInvalidRule || e.Type == ErrUnknownType)
}

// IsBudgetExceeded reports whether err aborted an expansion that ran out of
// operations.
func IsBudgetExceeded(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrBudgetExceeded
}

// Snapshot is the state of an expansion at the moment it was aborted.
type Snapshot struct {
	ComputationID string
	Type          Type
	Interval      int
	Steps         int
	Budget        int
	Cursor        time.Time // normalized day under evaluation
	Ordinal       int
	Accepted      int
	SeriesStart   time.Time
	SeriesEnd     time.Time
}

// LogValue implements slog.LogValuer.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("computation_id", s.ComputationID),
		slog.String("type", s.Type.String()),
		slog.Int("interval", s.Interval),
		slog.Int("steps", s.Steps),
		slog.Int("budget", s.Budget),
		slog.Time("cursor", s.Cursor),
		slog.Int("ordinal", s.Ordinal),
		slog.Int("accepted", s.Accepted),
		slog.Time("series_start", s.SeriesStart),
		slog.Time("series_end", s.SeriesEnd),
	)
}
