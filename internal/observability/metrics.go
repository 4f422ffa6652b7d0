// Package observability holds the prometheus metrics of a fetch run.
// A run is a batch job: metrics are pushed to a Pushgateway when it ends.
package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Endpoints of the imagery service
const (
	EndpointCapabilities = "capabilities"
	EndpointTile         = "tile"
	EndpointQuicklook    = "quicklook"
)

// Metrics of a run. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheResults    *prometheus.CounterVec
	tiles           *prometheus.CounterVec
	features        prometheus.Counter
	quicklookErrors prometheus.Counter
}

// New creates the metrics in their own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gibs_requests_total",
			Help: "Total number of requests to the imagery service.",
		}, []string{"endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gibs_request_duration_seconds",
			Help:    "Duration of the requests to the imagery service in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"endpoint"}),
		cacheResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tile_cache_results_total",
			Help: "Tile cache lookups by outcome.",
		}, []string{"outcome"}),
		tiles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tiles_merged_total",
			Help: "Number of tiles merged, by layer.",
		}, []string{"layer"}),
		features: factory.NewCounter(prometheus.CounterOpts{
			Name: "features_total",
			Help: "Number of features produced.",
		}),
		quicklookErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "quicklook_errors_total",
			Help: "Number of quicklooks that could not be retrieved.",
		}),
	}
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records a request to endpoint. status is 0 if no response was received.
func (m *Metrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	st := "error"
	if status != 0 {
		st = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(endpoint, st).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) IncCacheHit() {
	if m != nil {
		m.cacheResults.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) IncCacheMiss() {
	if m != nil {
		m.cacheResults.WithLabelValues("miss").Inc()
	}
}

// AddTiles records n tiles merged for layer
func (m *Metrics) AddTiles(layer string, n int) {
	if m != nil {
		m.tiles.WithLabelValues(layer).Add(float64(n))
	}
}

func (m *Metrics) IncFeatures() {
	if m != nil {
		m.features.Inc()
	}
}

func (m *Metrics) IncQuicklookErrors() {
	if m != nil {
		m.quicklookErrors.Inc()
	}
}

// Push sends the metrics to the Pushgateway at url, grouped under job
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
