package coordinator

import (
	"sort"
	"time"
)

type cachedResult struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

func (e *cachedResult) fresh(now time.Time) bool {
	return !now.After(e.expiresAt)
}

// prune removes expired entries first; if the cache is still over capacity it
// evicts remaining entries oldest-created-first until at the limit.
// Caller must hold c.mu. Returns the number of evicted (non-expired) entries.
func (c *Coordinator) prune(now time.Time) int {
	for fp, entry := range c.cache {
		if !entry.fresh(now) {
			delete(c.cache, fp)
		}
	}

	over := len(c.cache) - c.maxEntries
	if over <= 0 {
		return 0
	}

	type aged struct {
		fp        string
		createdAt time.Time
	}
	entries := make([]aged, 0, len(c.cache))
	for fp, entry := range c.cache {
		entries = append(entries, aged{fp: fp, createdAt: entry.createdAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].createdAt.Before(entries[j].createdAt)
	})

	for _, entry := range entries[:over] {
		delete(c.cache, entry.fp)
	}
	return over
}
