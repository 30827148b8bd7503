package observability

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quotecast/tether/pkg/policy"
)

// NewHandler builds the monitoring HTTP surface: a JSON stats snapshot on
// /stats and the Prometheus exposition on /metrics.
func NewHandler(stats *policy.Registry, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats.Snapshot()); err != nil {
			slog.Error("failed to encode stats snapshot", "err", err)
		}
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
