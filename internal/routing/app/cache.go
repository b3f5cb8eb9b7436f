package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/routing/domain"
)

// liveCacheTTL bounds how long a live decision may be served without
// recomputing, so window boundaries crossed between mutations are picked up
// promptly even without an explicit invalidation.
const liveCacheTTL = 5 * time.Second

// decisionCache memoizes live (wall-clock) decisions per thread. Every
// window or override mutation for a thread drops its entry; the next resolve
// recomputes from store state. Simulate and historical resolves never touch
// the cache.
type decisionCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]cachedDecision
}

type cachedDecision struct {
	decision domain.RoutingDecision
	storedAt time.Time
}

func newDecisionCache() *decisionCache {
	return &decisionCache{entries: make(map[uuid.UUID]cachedDecision)}
}

func (c *decisionCache) get(threadID uuid.UUID, now time.Time) (domain.RoutingDecision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[threadID]
	if !ok || now.Sub(entry.storedAt) > liveCacheTTL {
		return domain.RoutingDecision{}, false
	}
	return entry.decision, true
}

func (c *decisionCache) set(threadID uuid.UUID, d domain.RoutingDecision, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[threadID] = cachedDecision{decision: d, storedAt: now}
}

func (c *decisionCache) invalidate(threadID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, threadID)
}
