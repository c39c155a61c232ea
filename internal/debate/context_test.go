package debate

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedContextAgreedFactSet(t *testing.T) {
	c := NewSharedContext()

	assert.True(t, c.AddAgreedFact("Solar costs fell 80% in a decade"))
	assert.False(t, c.AddAgreedFact("Solar costs fell 80% in a decade"), "exact duplicate")
	assert.False(t, c.AddAgreedFact("  solar   costs fell 80% in a decade "), "case and whitespace variants count once")
	assert.False(t, c.AddAgreedFact("   "), "blank entries are dropped")

	snap := c.Snapshot()
	require.Len(t, snap.AgreedFacts, 1)
	assert.Equal(t, "Solar costs fell 80% in a decade", snap.AgreedFacts[0], "first spelling is preserved")
}

func TestSharedContextAgreementSupersedesDispute(t *testing.T) {
	c := NewSharedContext()

	require.True(t, c.AddDisputedPoint("storage is the bottleneck"))
	require.True(t, c.AddAgreedFact("Storage is the bottleneck"))

	snap := c.Snapshot()
	assert.Empty(t, snap.DisputedPoints, "promoted point leaves the disputed set")
	require.Len(t, snap.AgreedFacts, 1)

	// Once agreed, the point cannot be re-disputed.
	assert.False(t, c.AddDisputedPoint("storage is the bottleneck"))
	assert.Empty(t, c.Snapshot().DisputedPoints)
}

func TestSharedContextSnapshotIsolation(t *testing.T) {
	c := NewSharedContext()
	c.AppendResponses([]Response{{Agent: "a", Round: 1, Text: "first", Success: true}})
	c.AddAgreedFact("shared goal")
	c.SetFeedback("converge")

	snap := c.Snapshot()
	snap.History[0].Text = "tampered"
	snap.AgreedFacts[0] = "tampered"

	fresh := c.Snapshot()
	assert.Equal(t, "first", fresh.History[0].Text)
	assert.Equal(t, "shared goal", fresh.AgreedFacts[0])
	assert.Equal(t, "converge", fresh.LatestFeedback)
}

func TestSharedContextConcurrentReaders(t *testing.T) {
	c := NewSharedContext()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.AddAgreedFact(fmt.Sprintf("fact %d", i))
			c.AppendResponses([]Response{{Agent: "a", Round: i, Success: true}})
		}()
		go func() {
			defer wg.Done()
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Len(t, snap.AgreedFacts, 8)
	assert.Len(t, snap.History, 8)
}
