package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quotecast/tether/pkg/coordinator"
	"github.com/quotecast/tether/pkg/domain"
	"github.com/quotecast/tether/pkg/offload"
	"github.com/quotecast/tether/pkg/policy"
)

var (
	descCalls = prometheus.NewDesc(
		"tether_calls_total",
		"Offload calls per logical domain.",
		[]string{"domain"}, nil)
	descFallbacks = prometheus.NewDesc(
		"tether_fallbacks_total",
		"Fallback executions per logical domain and degradation reason.",
		[]string{"domain", "reason"}, nil)
	descFallbackFailures = prometheus.NewDesc(
		"tether_fallback_failures_total",
		"Fallback executions that themselves failed, per logical domain.",
		[]string{"domain"}, nil)

	descTasksPending = prometheus.NewDesc(
		"tether_offload_tasks_pending",
		"Offload tasks currently awaiting a response.",
		nil, nil)
	descTasks = prometheus.NewDesc(
		"tether_offload_tasks_total",
		"Settled offload tasks by outcome.",
		[]string{"outcome"}, nil)

	descCacheEvents = prometheus.NewDesc(
		"tether_coordinator_events_total",
		"Coordinator cache and dedup events.",
		[]string{"event"}, nil)
	descCacheEntries = prometheus.NewDesc(
		"tether_coordinator_cache_entries",
		"Entries currently held in the result cache.",
		nil, nil)
	descInFlight = prometheus.NewDesc(
		"tether_coordinator_inflight_calls",
		"Coordinated calls currently executing.",
		nil, nil)
)

// Collector exposes policy, router, and coordinator counters as Prometheus
// metrics. Router and coordinator sources are optional.
type Collector struct {
	stats  *policy.Registry
	router *offload.Router
	coord  *coordinator.Coordinator
}

// CollectorOption configures the Collector.
type CollectorOption func(*Collector)

// WithRouter adds router task counters to the collector.
func WithRouter(r *offload.Router) CollectorOption {
	return func(c *Collector) {
		c.router = r
	}
}

// WithCoordinator adds coordinator cache counters to the collector.
func WithCoordinator(coord *coordinator.Coordinator) CollectorOption {
	return func(c *Collector) {
		c.coord = coord
	}
}

// NewCollector creates a Collector over the given stats registry.
func NewCollector(stats *policy.Registry, opts ...CollectorOption) *Collector {
	c := &Collector{stats: stats}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descCalls
	ch <- descFallbacks
	ch <- descFallbackFailures
	if c.router != nil {
		ch <- descTasksPending
		ch <- descTasks
	}
	if c.coord != nil {
		ch <- descCacheEvents
		ch <- descCacheEntries
		ch <- descInFlight
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, stats := range c.stats.Snapshot() {
		ch <- prometheus.MustNewConstMetric(descCalls, prometheus.CounterValue, float64(stats.Total), name)
		ch <- prometheus.MustNewConstMetric(descFallbackFailures, prometheus.CounterValue, float64(stats.FallbackFailures), name)
		for _, reason := range domain.Reasons() {
			ch <- prometheus.MustNewConstMetric(descFallbacks, prometheus.CounterValue, float64(stats.Reasons[reason]), name, string(reason))
		}
	}

	if c.router != nil {
		counters := c.router.Counters()
		ch <- prometheus.MustNewConstMetric(descTasksPending, prometheus.GaugeValue, float64(counters.Pending))
		ch <- prometheus.MustNewConstMetric(descTasks, prometheus.CounterValue, float64(counters.Completed), "completed")
		ch <- prometheus.MustNewConstMetric(descTasks, prometheus.CounterValue, float64(counters.TimedOut), "timed_out")
		ch <- prometheus.MustNewConstMetric(descTasks, prometheus.CounterValue, float64(counters.Failed), "failed")
	}

	if c.coord != nil {
		counters := c.coord.Counters()
		ch <- prometheus.MustNewConstMetric(descCacheEvents, prometheus.CounterValue, float64(counters.Hits), "hit")
		ch <- prometheus.MustNewConstMetric(descCacheEvents, prometheus.CounterValue, float64(counters.Misses), "miss")
		ch <- prometheus.MustNewConstMetric(descCacheEvents, prometheus.CounterValue, float64(counters.Deduped), "dedup")
		ch <- prometheus.MustNewConstMetric(descCacheEvents, prometheus.CounterValue, float64(counters.Evicted), "evict")
		ch <- prometheus.MustNewConstMetric(descCacheEntries, prometheus.GaugeValue, float64(counters.CacheSize))
		ch <- prometheus.MustNewConstMetric(descInFlight, prometheus.GaugeValue, float64(counters.InFlight))
	}
}
