package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dashboard groups the application collectors. A nil *Dashboard is valid and
// records nothing.
type Dashboard struct {
	cacheResults      *prometheus.CounterVec
	cacheEntries      prometheus.Gauge
	decimationSeconds prometheus.Histogram
	sceneUpdates      prometheus.Counter
	clients           prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewDashboard(reg prometheus.Registerer) *Dashboard {
	f := promauto.With(reg)
	return &Dashboard{
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshdash_cache_results_total",
				Help: "Decimation cache lookups by outcome.",
			},
			[]string{"outcome"},
		),
		cacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "meshdash_cache_entries",
			Help: "Decimated meshes currently held by the cache.",
		}),
		decimationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "meshdash_decimation_duration_seconds",
			Help:    "Time spent decimating the base mesh.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		sceneUpdates: f.NewCounter(prometheus.CounterOpts{
			Name: "meshdash_scene_updates_total",
			Help: "Scene redraws pushed to clients.",
		}),
		clients: f.NewGauge(prometheus.GaugeOpts{
			Name: "meshdash_connected_clients",
			Help: "Browsers subscribed to the event stream.",
		}),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshdash_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meshdash_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (d *Dashboard) CacheHit() {
	if d == nil {
		return
	}
	d.cacheResults.WithLabelValues("hit").Inc()
}

func (d *Dashboard) CacheMiss() {
	if d == nil {
		return
	}
	d.cacheResults.WithLabelValues("miss").Inc()
}

func (d *Dashboard) SetCacheEntries(n int) {
	if d == nil {
		return
	}
	d.cacheEntries.Set(float64(n))
}

func (d *Dashboard) ObserveDecimation(elapsed time.Duration) {
	if d == nil {
		return
	}
	d.decimationSeconds.Observe(elapsed.Seconds())
}

func (d *Dashboard) SceneUpdated() {
	if d == nil {
		return
	}
	d.sceneUpdates.Inc()
}

func (d *Dashboard) ClientConnected() {
	if d == nil {
		return
	}
	d.clients.Inc()
}

func (d *Dashboard) ClientDisconnected() {
	if d == nil {
		return
	}
	d.clients.Dec()
}

func (d *Dashboard) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if d == nil {
		return
	}
	st := strconv.Itoa(status)
	d.httpRequests.WithLabelValues(method, route, st).Inc()
	d.httpDuration.WithLabelValues(method, route, st).Observe(elapsed.Seconds())
}
