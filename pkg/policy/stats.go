package policy

import (
	"sync"

	"github.com/quotecast/tether/pkg/domain"
)

// DomainStats aggregates offload outcomes for one logical domain. Counters
// are additive only and accumulate for the lifetime of the process.
type DomainStats struct {
	Total            uint64                   `json:"total"`
	FallbackUsed     uint64                   `json:"fallback_used"`
	FallbackFailures uint64                   `json:"fallback_failures"`
	Reasons          map[domain.Reason]uint64 `json:"reasons"`
}

// Registry holds per-domain stats. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	domains map[string]*DomainStats
}

// NewRegistry creates an empty stats registry.
func NewRegistry() *Registry {
	return &Registry{domains: make(map[string]*DomainStats)}
}

func (r *Registry) get(name string) *DomainStats {
	stats, ok := r.domains[name]
	if !ok {
		stats = &DomainStats{Reasons: make(map[domain.Reason]uint64)}
		r.domains[name] = stats
	}
	return stats
}

func (r *Registry) recordCall(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).Total++
}

func (r *Registry) recordFallback(name string, reason domain.Reason, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.get(name)
	stats.FallbackUsed++
	stats.Reasons[reason]++
	if failed {
		stats.FallbackFailures++
	}
}

// Snapshot returns a deep copy of the per-domain stats, suitable for export
// to a monitoring consumer.
func (r *Registry) Snapshot() map[string]DomainStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]DomainStats, len(r.domains))
	for name, stats := range r.domains {
		reasons := make(map[domain.Reason]uint64, len(stats.Reasons))
		for reason, n := range stats.Reasons {
			reasons[reason] = n
		}
		copied := *stats
		copied.Reasons = reasons
		out[name] = copied
	}
	return out
}
