package web

import (
	"listd/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	writes   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, st *store.Store) *metrics {
	f := promauto.With(reg)
	m := &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "listd_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "listd_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		writes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "listd_writes_total",
			Help: "save-state writes by kind and whether they changed the order",
		}, []string{"kind", "changed"}),
	}

	gauges := []struct {
		name, help string
		value      func(store.Stats) float64
	}{
		{"listd_global_order_length", "Entries in the global order overlay", func(s store.Stats) float64 { return float64(s.GlobalOrderLength) }},
		{"listd_scopes", "Search-scoped order overlays held", func(s store.Stats) float64 { return float64(s.Scopes) }},
		{"listd_move_log_records", "Live anchor move records", func(s store.Stats) float64 { return float64(s.MoveLogSize) }},
		{"listd_selected_items", "Items in the selection set", func(s store.Stats) float64 { return float64(s.Selected) }},
		{"listd_order_revision", "Order revision counter", func(s store.Stats) float64 { return float64(s.Revision) }},
	}
	for _, g := range gauges {
		value := g.value
		f.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, func() float64 {
			return value(st.Stats())
		})
	}
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "listd_resolver_cache_hits_total",
		Help: "Resolved order cache hits",
	}, func() float64 { return float64(st.Stats().ResolverHits) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "listd_resolver_cache_misses_total",
		Help: "Resolved order cache misses",
	}, func() float64 { return float64(st.Stats().ResolverMisses) })
	return m
}
