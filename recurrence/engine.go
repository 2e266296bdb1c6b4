package recurrence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Engine expands recurrence rules into occurrences. An Engine holds only
// configuration; every call to Compute works on its own expansion state, so
// one Engine may serve concurrent callers.
type Engine struct {
	config    EngineConfig
	logger    *slog.Logger
	cache     *ResultCache
	ownsCache bool
}

// Option represents a configuration option for the Engine
type Option func(*Engine)

// WithConfig replaces the engine configuration
func WithConfig(config EngineConfig) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCache shares an existing result cache. The engine does not close it.
func WithCache(cache *ResultCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// NewEngine creates a new recurrence engine instance
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		config: DefaultEngineConfig,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.config = e.config.withDefaults()
	if e.cache == nil && e.config.CacheEnabled {
		e.cache = NewResultCache(e.config.CacheConfig)
		e.ownsCache = true
	}

	return e
}

// Close releases the cache created by the engine, if any.
func (e *Engine) Close() {
	if e.ownsCache {
		e.cache.Close()
	}
}

// CacheStats reports the state of the engine's cache. It is zero when
// caching is disabled.
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// Compute expands rule into its ordered occurrences. A rule of TypeNone
// yields an empty result. When the expansion runs out of operations a
// *Error of type ErrBudgetExceeded is returned and no partial result.
func (e *Engine) Compute(ctx context.Context, rule *Rule) (*Result, error) {
	if rule == nil {
		return nil, invalidRule("nil rule")
	}
	switch rule.typ {
	case TypeNone:
		return &Result{}, nil
	case TypeDaily, TypeWeekly, TypeMonthly, TypeYearly:
	default:
		return nil, &Error{Type: ErrUnknownType, Message: fmt.Sprintf("unsupported recurrence type %d", int(rule.typ))}
	}

	rule = e.withLimits(rule)

	if e.cache != nil {
		if cached, ok := e.cache.Get(rule); ok {
			return cached, nil
		}
	}

	x := e.newExpansion(ctx, rule)
	if err := x.run(); err != nil {
		var exceeded *Error
		if errors.As(err, &exceeded) && exceeded.Snapshot != nil {
			e.logger.Warn("recurrence expansion exceeded operation budget",
				"snapshot", *exceeded.Snapshot)
		} else {
			e.logger.Info("recurrence expansion aborted",
				"computation_id", x.id, "error", err)
		}
		return nil, err
	}

	result := &Result{
		Occurrences: x.accepted,
		Truncated:   x.truncated,
		Steps:       x.governor.Steps(),
	}

	e.logger.Debug("recurrence expanded",
		"computation_id", x.id,
		"type", rule.typ.String(),
		"occurrences", len(result.Occurrences),
		"truncated", result.Truncated,
		"steps", result.Steps)

	if e.cache != nil {
		e.cache.Set(rule, result)
	}
	return result, nil
}

// HasOccurrenceInRange reports whether any occurrence of rule overlaps
// [rangeStart, rangeEnd). Partial overlaps count.
func (e *Engine) HasOccurrenceInRange(ctx context.Context, rule *Rule, rangeStart, rangeEnd time.Time) (bool, error) {
	if rule == nil {
		return false, invalidRule("nil rule")
	}
	probe, err := rule.ForRange(rangeStart, rangeEnd)
	if err != nil {
		return false, err
	}
	probe.greedy = true
	probe.position = mo.None[int]()
	probe.resultCap = 1

	result, err := e.Compute(ctx, probe)
	if err != nil {
		return false, fmt.Errorf("failed to check occurrences in range: %w", err)
	}
	return result.Len() > 0, nil
}

// withLimits fills the limits the rule leaves to the engine, so that the
// rule's fingerprint covers the limits the expansion actually runs with.
func (e *Engine) withLimits(rule *Rule) *Rule {
	if rule.resultCap != 0 && rule.opBudget != 0 {
		return rule
	}
	c := rule.clone()
	if c.resultCap == 0 {
		c.resultCap = e.config.ResultCap
	}
	if c.opBudget == 0 {
		c.opBudget = e.config.OpBudget
	}
	return c
}

func (e *Engine) newExpansion(ctx context.Context, rule *Rule) *expansion {
	x := &expansion{
		id:        uuid.NewString(),
		rule:      rule,
		resultCap: rule.resultCap,
	}
	x.governor = NewGovernor(ctx, rule.opBudget, x.snapshot)
	x.resolver = NewDayResolver(x.governor)
	x.filter = NewExceptionFilter(rule.changeExceptions, rule.deleteExceptions)
	x.initBounds()
	return x
}
