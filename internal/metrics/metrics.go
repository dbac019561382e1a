// Package metrics exposes the meta service's Prometheus gauges:
// membership counts by status and catalog size. Modeled on the
// collector/gauge-vec pattern used for cluster metrics in the example
// pack, scaled down to this service's single-process, single-sweep
// model (there is no periodic collector goroutine here; gauges are set
// inline by the handler that already has a fresh membership snapshot).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// NodesByStatus tracks the configured storage node count per
	// liveness status (alive/suspected/dead).
	NodesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meta_storage_nodes",
			Help: "Configured storage nodes by membership status.",
		},
		[]string{"status"},
	)

	FilesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meta_files_total",
			Help: "Total number of committed files in the catalog.",
		},
	)

	ChunksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meta_chunks_total",
			Help: "Total number of distinct registered chunks in the catalog.",
		},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meta_requests_total",
			Help: "Catalog/heartbeat API requests by route and outcome.",
		},
		[]string{"route", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(NodesByStatus, FilesTotal, ChunksTotal, RequestsTotal)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetMembership updates the per-status node gauges from counted totals.
func SetMembership(alive, suspected, dead int) {
	NodesByStatus.WithLabelValues("alive").Set(float64(alive))
	NodesByStatus.WithLabelValues("suspected").Set(float64(suspected))
	NodesByStatus.WithLabelValues("dead").Set(float64(dead))
}

// SetCatalogSize updates the file/chunk count gauges.
func SetCatalogSize(files, chunks int) {
	FilesTotal.Set(float64(files))
	ChunksTotal.Set(float64(chunks))
}

// ObserveRequest increments the request counter for a route/outcome pair.
func ObserveRequest(route, outcome string) {
	RequestsTotal.WithLabelValues(route, outcome).Inc()
}
