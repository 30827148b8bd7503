/*
Package observability exports tether's aggregated counters to monitoring
consumers.

It provides a prometheus.Collector over the fallback policy's per-domain
stats plus the router and coordinator counters, and an HTTP handler serving a
JSON snapshot (/stats) alongside the Prometheus exposition format (/metrics).
*/
package observability
