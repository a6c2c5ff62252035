package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snow_cannon_api"

// Metrics holds the Prometheus collectors for the REST API.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route

	// GeoJSON layer metrics.
	GeoJSONLoads      *prometheus.CounterVec // labels: outcome={success,error}
	GeoJSONFeatures   prometheus.Gauge
	UnmatchedFeatures prometheus.Counter

	CannonsReturned prometheus.Histogram

	// Gatherer serves /metrics.
	Gatherer prometheus.Gatherer
}

func newCollectors() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route template.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		GeoJSONLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geojson_loads_total",
			Help:      "Loads of the static cannon layer by outcome.",
		}, []string{"outcome"}),
		GeoJSONFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geojson_features",
			Help:      "Features in the cached cannon layer.",
		}),
		UnmatchedFeatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geojson_unmatched_features_total",
			Help:      "Layer features served without a matching cannon record.",
		}),
		CannonsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cannons_returned",
			Help:      "Number of cannons per list response.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequests,
		m.HTTPDuration,
		m.GeoJSONLoads,
		m.GeoJSONFeatures,
		m.UnmatchedFeatures,
		m.CannonsReturned,
	}
}

// NewMetrics creates and registers all API metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newCollectors()
	prometheus.MustRegister(m.collectors()...)
	m.Gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newCollectors()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	m.Gatherer = reg
	return m
}

// ObserveGeoJSONLoad records one attempt to load the static layer.
func (m *Metrics) ObserveGeoJSONLoad(features int, err error) {
	if err != nil {
		m.GeoJSONLoads.WithLabelValues("error").Inc()
		return
	}
	m.GeoJSONLoads.WithLabelValues("success").Inc()
	m.GeoJSONFeatures.Set(float64(features))
}
