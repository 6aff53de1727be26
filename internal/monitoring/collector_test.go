package monitoring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordLookup(t *testing.T) {
	c := NewCollector()

	c.RecordLookup("hunter", OutcomeHit, 0.034)
	c.RecordLookup("hunter", OutcomeMiss, 0.034)
	c.RecordLookup("hunter", OutcomeError, 0)
	c.RecordLookup("apollo", OutcomeHit, 0.20)

	snap := c.Snapshot()
	require.Len(t, snap.Providers, 2)

	hunter := snap.Providers["hunter"]
	assert.Equal(t, 3, hunter.Lookups)
	assert.Equal(t, 1, hunter.Hits)
	assert.Equal(t, 1, hunter.Misses)
	assert.Equal(t, 1, hunter.Errors)
	assert.InDelta(t, 0.068, hunter.SpendUSD, 1e-9)

	assert.Equal(t, 4, snap.TotalLookups)
	assert.InDelta(t, 0.268, snap.TotalSpendUSD, 1e-9)
}

func TestCollector_RecordDiscovery(t *testing.T) {
	c := NewCollector()

	c.RecordDiscovery(false)
	c.RecordDiscovery(false)
	c.RecordDiscovery(true)

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.Discoveries)
	assert.Equal(t, 1, snap.DiscoveryFailures)
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector

	c.RecordLookup("hunter", OutcomeHit, 0.034)
	c.RecordDiscovery(true)

	snap := c.Snapshot()
	assert.Empty(t, snap.Providers)
	assert.Zero(t, snap.TotalLookups)
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordLookup("hunter", OutcomeHit, 0.01)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, 1000, snap.Providers["hunter"].Lookups)
	assert.InDelta(t, 10.0, snap.TotalSpendUSD, 1e-6)
}

func TestProviderStats_ErrorRate(t *testing.T) {
	assert.Zero(t, ProviderStats{}.ErrorRate())
	assert.InDelta(t, 0.25, ProviderStats{Lookups: 4, Errors: 1}.ErrorRate(), 1e-9)
}

func TestSnapshot_CopiesState(t *testing.T) {
	c := NewCollector()
	c.RecordLookup("hunter", OutcomeHit, 0.01)

	snap := c.Snapshot()
	c.RecordLookup("hunter", OutcomeHit, 0.01)

	assert.Equal(t, 1, snap.Providers["hunter"].Lookups)
	assert.Equal(t, 2, c.Snapshot().Providers["hunter"].Lookups)
}
