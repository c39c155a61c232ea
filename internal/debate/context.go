package debate

import (
	"strings"
	"sync"
)

// SharedContext accumulates cross-round memory: every historical response,
// the agreed facts, the disputed points, and the latest orchestrator
// feedback. Only the orchestrator mutates it, once per round; agents and the
// consensus engine read immutable snapshots.
//
// Agreed facts and disputed points have set semantics over normalized
// strings and stay disjoint: agreement supersedes dispute.
type SharedContext struct {
	mu             sync.RWMutex
	history        []Response
	agreedFacts    []string
	agreedSet      map[string]bool
	disputedPoints []string
	disputedSet    map[string]bool
	latestFeedback string
}

// ContextSnapshot is an immutable copy handed to agents.
type ContextSnapshot struct {
	History        []Response
	AgreedFacts    []string
	DisputedPoints []string
	LatestFeedback string
}

// NewSharedContext creates an empty shared context.
func NewSharedContext() *SharedContext {
	return &SharedContext{
		agreedSet:   make(map[string]bool),
		disputedSet: make(map[string]bool),
	}
}

// normalizeEntry collapses whitespace; the set key is additionally
// case-folded so "X is true" and "x is TRUE" count once.
func normalizeEntry(s string) (entry, key string) {
	entry = strings.Join(strings.Fields(s), " ")
	return entry, strings.ToLower(entry)
}

// AppendResponses records a completed round's responses in dispatch order.
func (c *SharedContext) AppendResponses(responses []Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, responses...)
}

// AddAgreedFact inserts a fact, idempotently. A fact previously recorded as
// disputed moves to the agreed set. Returns true if the set changed.
func (c *SharedContext) AddAgreedFact(fact string) bool {
	entry, key := normalizeEntry(fact)
	if entry == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.agreedSet[key] {
		return false
	}
	if c.disputedSet[key] {
		delete(c.disputedSet, key)
		for i, p := range c.disputedPoints {
			if strings.EqualFold(strings.Join(strings.Fields(p), " "), entry) {
				c.disputedPoints = append(c.disputedPoints[:i], c.disputedPoints[i+1:]...)
				break
			}
		}
	}
	c.agreedSet[key] = true
	c.agreedFacts = append(c.agreedFacts, entry)
	return true
}

// AddDisputedPoint inserts a disputed point, idempotently. Points already
// agreed are not re-disputed. Returns true if the set changed.
func (c *SharedContext) AddDisputedPoint(point string) bool {
	entry, key := normalizeEntry(point)
	if entry == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disputedSet[key] || c.agreedSet[key] {
		return false
	}
	c.disputedSet[key] = true
	c.disputedPoints = append(c.disputedPoints, entry)
	return true
}

// SetFeedback records the most recent orchestrator feedback.
func (c *SharedContext) SetFeedback(feedback string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latestFeedback = feedback
}

// Snapshot returns a deep copy of the current context state.
func (c *SharedContext) Snapshot() ContextSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ContextSnapshot{
		History:        append([]Response(nil), c.history...),
		AgreedFacts:    append([]string(nil), c.agreedFacts...),
		DisputedPoints: append([]string(nil), c.disputedPoints...),
		LatestFeedback: c.latestFeedback,
	}
}
