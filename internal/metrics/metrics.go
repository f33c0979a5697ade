// Package metrics exposes backup activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agrisale_backup"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Collector holds the backup metrics and the registry they are registered on.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	captures        *prometheus.CounterVec
	evictions       *prometheus.CounterVec
	restores        *prometheus.CounterVec
	captureDuration prometheus.Histogram

	mu       sync.RWMutex
	nextFire func() time.Time
}

// NewCollector registers the backup metrics on registry. A nil registry gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Backup captures by trigger and result.",
		}, []string{"trigger", "result"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Backups removed by the retention policy.",
		}, []string{"result"}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_total",
			Help:      "Backup restores by result.",
		}, []string{"result"}),
		captureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Duration of successful backup captures.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	nextFire := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "next_fire_timestamp_seconds",
		Help:      "Unix time of the next scheduled backup, 0 when stopped.",
	}, c.nextFireSeconds)

	registry.MustRegister(c.captures, c.evictions, c.restores, c.captureDuration, nextFire)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordCapture counts one capture attempt.
func (c *Collector) RecordCapture(trigger, result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.captures.WithLabelValues(trigger, result).Inc()
	if result == ResultSuccess {
		c.captureDuration.Observe(duration.Seconds())
	}
}

// RecordEvictions counts removed and failed evictions of one capture.
func (c *Collector) RecordEvictions(removed, failed int) {
	if c == nil {
		return
	}
	c.evictions.WithLabelValues(ResultSuccess).Add(float64(removed))
	c.evictions.WithLabelValues(ResultFailure).Add(float64(failed))
}

// RecordRestore counts one restore attempt.
func (c *Collector) RecordRestore(result string) {
	if c == nil {
		return
	}
	c.restores.WithLabelValues(result).Inc()
}

// TrackNextFire sets the source read when the next-fire gauge is scraped.
func (c *Collector) TrackNextFire(source func() time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextFire = source
}

func (c *Collector) nextFireSeconds() float64 {
	c.mu.RLock()
	source := c.nextFire
	c.mu.RUnlock()

	if source == nil {
		return 0
	}
	next := source()
	if next.IsZero() {
		return 0
	}
	return float64(next.UnixNano()) / float64(time.Second)
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
