package recurrence

import (
	"context"
	"fmt"
)

// Ticker is implemented by anything that meters loop iterations.
type Ticker interface {
	Tick() error
}

// contextCheckInterval is how many ticks pass between context checks.
const contextCheckInterval = 64

// Governor counts expansion steps and aborts once the budget is spent or
// the context is done. A Governor belongs to exactly one computation.
type Governor struct {
	ctx      context.Context
	budget   int
	steps    int
	snapshot func() Snapshot
}

// NewGovernor creates a governor allowing budget ticks. snapshot, if not
// nil, is called to describe the aborted computation.
func NewGovernor(ctx context.Context, budget int, snapshot func() Snapshot) *Governor {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Governor{ctx: ctx, budget: budget, snapshot: snapshot}
}

// Tick records one step.
func (g *Governor) Tick() error {
	g.steps++
	if g.steps > g.budget {
		var snap Snapshot
		if g.snapshot != nil {
			snap = g.snapshot()
		}
		snap.Steps = g.steps
		snap.Budget = g.budget
		return &Error{
			Type:     ErrBudgetExceeded,
			Message:  fmt.Sprintf("expansion exceeded %d operations", g.budget),
			Snapshot: &snap,
		}
	}
	if g.steps%contextCheckInterval == 0 {
		if err := g.ctx.Err(); err != nil {
			return fmt.Errorf("recurrence expansion aborted: %w", err)
		}
	}
	return nil
}

// Steps returns the number of ticks recorded so far.
func (g *Governor) Steps() int { return g.steps }
