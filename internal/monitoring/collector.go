// Package monitoring tracks provider lookup health and spend for the
// running process and raises webhook alerts when thresholds are breached.
package monitoring

import (
	"sync"
	"time"
)

// LookupOutcome classifies a single provider lookup for metrics.
type LookupOutcome string

const (
	OutcomeHit   LookupOutcome = "hit"
	OutcomeMiss  LookupOutcome = "miss"
	OutcomeError LookupOutcome = "error"
)

// ProviderStats holds counters for one email provider.
type ProviderStats struct {
	Lookups  int     `json:"lookups"`
	Hits     int     `json:"hits"`
	Misses   int     `json:"misses"`
	Errors   int     `json:"errors"`
	SpendUSD float64 `json:"spend_usd"`
}

// ErrorRate returns the fraction of lookups that errored.
func (s ProviderStats) ErrorRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Lookups)
}

// MetricsSnapshot holds a point-in-time view of enrichment health since
// process start.
type MetricsSnapshot struct {
	Providers         map[string]ProviderStats `json:"providers"`
	TotalLookups      int                      `json:"total_lookups"`
	TotalSpendUSD     float64                  `json:"total_spend_usd"`
	Discoveries       int                      `json:"discoveries"`
	DiscoveryFailures int                      `json:"discovery_failures"`
	StartedAt         time.Time                `json:"started_at"`
	CollectedAt       time.Time                `json:"collected_at"`
}

// Collector accumulates in-process enrichment metrics. All methods are
// safe for concurrent use; a nil Collector discards everything.
type Collector struct {
	mu        sync.Mutex
	providers map[string]*ProviderStats
	disc      int
	discFail  int
	started   time.Time
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		providers: make(map[string]*ProviderStats),
		started:   time.Now().UTC(),
	}
}

// RecordLookup records one provider lookup and its cost.
func (c *Collector) RecordLookup(provider string, outcome LookupOutcome, costUSD float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.providers[provider]
	if !ok {
		stats = &ProviderStats{}
		c.providers[provider] = stats
	}
	stats.Lookups++
	stats.SpendUSD += costUSD
	switch outcome {
	case OutcomeHit:
		stats.Hits++
	case OutcomeMiss:
		stats.Misses++
	case OutcomeError:
		stats.Errors++
	}
}

// RecordDiscovery records one decision-maker discovery run.
func (c *Collector) RecordDiscovery(failed bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disc++
	if failed {
		c.discFail++
	}
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() *MetricsSnapshot {
	snap := &MetricsSnapshot{
		Providers:   make(map[string]ProviderStats),
		CollectedAt: time.Now().UTC(),
	}
	if c == nil {
		return snap
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap.StartedAt = c.started
	snap.Discoveries = c.disc
	snap.DiscoveryFailures = c.discFail
	for name, stats := range c.providers {
		snap.Providers[name] = *stats
		snap.TotalLookups += stats.Lookups
		snap.TotalSpendUSD += stats.SpendUSD
	}
	return snap
}
