package recurrence

import (
	"time"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// Limits applied when a rule does not set its own
	ResultCap int // Maximum occurrences materialized per computation
	OpBudget  int // Maximum expansion steps per computation
}

// DefaultEngineConfig computes every request from scratch with the standard
// limits
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: false,

	ResultCap: DefaultResultCap,
	OpBudget:  DefaultOpBudget,
}

// CachedEngineConfig memoizes results for callers that expand the same
// rules repeatedly, such as calendar views being re-rendered
var CachedEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	ResultCap: DefaultResultCap,
	OpBudget:  DefaultOpBudget,
}

// StrictEngineConfig bounds work tightly for untrusted rules
var StrictEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute, // Shorter cache TTL
		MaxEntries:      100,             // Fewer cache entries
		CleanupInterval: 2 * time.Minute, // More frequent cleanup
	},

	ResultCap: 250,
	OpBudget:  20000,
}

// withDefaults fills zero limits with the package defaults.
func (c EngineConfig) withDefaults() EngineConfig {
	if c.ResultCap <= 0 {
		c.ResultCap = DefaultResultCap
	}
	if c.OpBudget <= 0 {
		c.OpBudget = DefaultOpBudget
	}
	if c.CacheEnabled && c.CacheConfig == (CacheConfig{}) {
		c.CacheConfig = DefaultCacheConfig
	}
	return c
}
