// Package metrics publishes particle engine statistics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements the engine's Recorder. Label values are the fixed pool
// names, so cardinality stays bounded.
type Metrics struct {
	live      *prometheus.GaugeVec
	exhausted *prometheus.CounterVec
	spawned   prometheus.Counter
	update    prometheus.Histogram
}

// New registers the engine metrics on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		live: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "particles_live",
			Help: "Live objects per pool",
		}, []string{"pool"}),

		exhausted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "particles_pool_exhausted_total",
			Help: "Allocations refused because a pool was full",
		}, []string{"pool"}),

		spawned: f.NewCounter(prometheus.CounterOpts{
			Name: "particles_spawned_total",
			Help: "Particles spawned",
		}),

		update: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "particles_update_duration_seconds",
			Help:    "Time spent in one particle system update",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02},
		}),
	}
}

// SetLive records the live counts after a frame.
func (m *Metrics) SetLive(systems, ejectors, particles int) {
	m.live.WithLabelValues("systems").Set(float64(systems))
	m.live.WithLabelValues("ejectors").Set(float64(ejectors))
	m.live.WithLabelValues("particles").Set(float64(particles))
}

// PoolExhausted counts a refused allocation.
func (m *Metrics) PoolExhausted(pool string) {
	m.exhausted.WithLabelValues(pool).Inc()
}

// ParticleSpawned counts one spawn.
func (m *Metrics) ParticleSpawned() {
	m.spawned.Inc()
}

// ObserveUpdate records how long a frame update took.
func (m *Metrics) ObserveUpdate(d time.Duration) {
	m.update.Observe(d.Seconds())
}
