// Package metrics exposes timeline events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yapay-ai/token-timeline/pkg/timeline"
)

// Collector observes aggregator events and maintains Prometheus metrics.
// It implements timeline.Listener.
type Collector struct {
	PointsAdded      prometheus.Counter
	BufferOverflows  prometheus.Counter
	RetentionRemoved prometheus.Counter
	ConfigUpdates    prometheus.Counter
	BufferCapacity   prometheus.Gauge
	BufferSize       prometheus.Gauge
	TokensTotal      prometheus.Counter
	CostTotal        prometheus.Counter
}

// New creates a collector registered on the given registerer. Pass
// prometheus.DefaultRegisterer for the default registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		PointsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "points_added_total",
			Help:      "Total number of bucketed points added to the ring buffer",
		}),
		BufferOverflows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "buffer_overflows_total",
			Help:      "Total number of inserts that overwrote the oldest point",
		}),
		RetentionRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "retention_removed_total",
			Help:      "Total number of points evicted by the retention sweeper",
		}),
		ConfigUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "config_updates_total",
			Help:      "Total number of runtime configuration updates",
		}),
		BufferCapacity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timeline",
			Name:      "buffer_capacity",
			Help:      "Configured ring buffer capacity",
		}),
		BufferSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timeline",
			Name:      "buffer_size",
			Help:      "Number of live points in the ring buffer",
		}),
		TokensTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "tokens_total",
			Help:      "Total tokens aggregated into the timeline",
		}),
		CostTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timeline",
			Name:      "cost_usd_total",
			Help:      "Total cost in USD aggregated into the timeline",
		}),
	}
}

// Name implements timeline.Listener.
func (c *Collector) Name() string { return "prometheus" }

// HandleEvent implements timeline.Listener.
func (c *Collector) HandleEvent(event timeline.Event) {
	switch event.Type {
	case timeline.EventPointAdded:
		c.PointsAdded.Inc()
		c.BufferSize.Inc()
		if event.Point != nil {
			c.TokensTotal.Add(float64(event.Point.TotalTokens))
			c.CostTotal.Add(event.Point.CostUSD)
		}
	case timeline.EventBufferOverflow:
		c.BufferOverflows.Inc()
		c.BufferSize.Dec()
	case timeline.EventRetentionCleanup:
		c.RetentionRemoved.Add(float64(event.RemovedCount))
		c.BufferSize.Sub(float64(event.RemovedCount))
	case timeline.EventConfigUpdated:
		c.ConfigUpdates.Inc()
		c.BufferCapacity.Set(float64(event.NewCapacity))
	}
}
