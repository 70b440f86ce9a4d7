// Package metrics exposes Prometheus instruments for the load pipeline and
// the HTTP surface. A nil *Collector is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load results.
const (
	ResultLoaded      = "loaded"
	ResultPlaceholder = "placeholder"
	ResultError       = "error"
	ResultSuperseded  = "superseded"
)

// Collector holds every instrument.
type Collector struct {
	loadsTotal      *prometheus.CounterVec
	loadDuration    *prometheus.HistogramVec
	fallbacksTotal  *prometheus.CounterVec
	textureMatches  *prometheus.CounterVec
	texturesHeld    prometheus.Gauge
	archiveBytes    prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	eventSubscriber prometheus.Gauge
}

// NewCollector registers the instruments with reg under namespace.
// A nil reg leaves them unregistered, which tests use to avoid collisions.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	c := &Collector{}

	c.loadsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Total number of archive loads by result",
		},
		[]string{"result"},
	)

	c.loadDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Archive load duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"result"},
	)

	c.fallbacksTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of placeholder fallbacks by reason",
		},
		[]string{"reason"},
	)

	c.textureMatches = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "texture_matches_total",
			Help:      "Texture reference resolutions by matching tier",
		},
		[]string{"tier"},
	)

	c.texturesHeld = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "textures_held",
		Help:      "Decoded textures owned by the active session",
	})

	c.archiveBytes = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "archive_size_bytes",
		Help:      "Size of fetched archives in bytes",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})

	c.httpRequests = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.eventSubscriber = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_subscribers",
		Help:      "Open session event subscriptions",
	})

	return c
}

// RecordLoad counts one finished load.
func (c *Collector) RecordLoad(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.loadsTotal.WithLabelValues(result).Inc()
	c.loadDuration.WithLabelValues(result).Observe(d.Seconds())
}

// RecordFallback counts one placeholder fallback.
func (c *Collector) RecordFallback(reason string) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordTextureMatch counts one resolution attempt by tier name.
func (c *Collector) RecordTextureMatch(tier string) {
	if c == nil {
		return
	}
	c.textureMatches.WithLabelValues(tier).Inc()
}

// SetTexturesHeld reports the texture count of the active session.
func (c *Collector) SetTexturesHeld(n int) {
	if c == nil {
		return
	}
	c.texturesHeld.Set(float64(n))
}

// ObserveArchive records a fetched archive's size.
func (c *Collector) ObserveArchive(size int) {
	if c == nil {
		return
	}
	c.archiveBytes.Observe(float64(size))
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// SubscriberAdded and SubscriberRemoved track open event streams.
func (c *Collector) SubscriberAdded() {
	if c == nil {
		return
	}
	c.eventSubscriber.Inc()
}

func (c *Collector) SubscriberRemoved() {
	if c == nil {
		return
	}
	c.eventSubscriber.Dec()
}
