package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/yapay-ai/token-timeline/internal/metrics"
	"github.com/yapay-ai/token-timeline/pkg/model"
	"github.com/yapay-ai/token-timeline/pkg/timeline"
)

func TestCollector_PointAdded(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())

	point := model.TimeBucketPoint{TotalTokens: 150, CostUSD: 0.05}
	c.HandleEvent(timeline.Event{Type: timeline.EventPointAdded, Point: &point})
	c.HandleEvent(timeline.Event{Type: timeline.EventPointAdded, Point: &point})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.PointsAdded))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.BufferSize))
	assert.Equal(t, 300.0, testutil.ToFloat64(c.TokensTotal))
	assert.InDelta(t, 0.10, testutil.ToFloat64(c.CostTotal), 1e-9)
}

func TestCollector_Overflow(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())

	c.HandleEvent(timeline.Event{Type: timeline.EventPointAdded})
	c.HandleEvent(timeline.Event{Type: timeline.EventBufferOverflow})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.BufferOverflows))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.BufferSize))
}

func TestCollector_RetentionCleanup(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())

	for i := 0; i < 5; i++ {
		c.HandleEvent(timeline.Event{Type: timeline.EventPointAdded})
	}
	c.HandleEvent(timeline.Event{Type: timeline.EventRetentionCleanup, RemovedCount: 3})

	assert.Equal(t, 3.0, testutil.ToFloat64(c.RetentionRemoved))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.BufferSize))
}

func TestCollector_ConfigUpdated(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())

	c.HandleEvent(timeline.Event{Type: timeline.EventConfigUpdated, OldCapacity: 100, NewCapacity: 200})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ConfigUpdates))
	assert.Equal(t, 200.0, testutil.ToFloat64(c.BufferCapacity))
}

func TestCollector_Name(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())
	assert.Equal(t, "prometheus", c.Name())
}
