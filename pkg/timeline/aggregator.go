// Package timeline implements the bounded in-memory timeline of bucketed
// usage metrics: a fixed-capacity ring buffer, the aggregator that folds
// raw usage records into it, derived analytics, retention sweeping and
// series export.
package timeline

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/yapay-ai/token-timeline/pkg/model"
	"github.com/yapay-ai/token-timeline/pkg/providers"
)

// Aggregator folds batches of usage records into time buckets and owns the
// ring buffer that stores them. All buffer access is serialized behind the
// aggregator's lock; buffer operations mutate shared cursor state and are
// not individually atomic.
type Aggregator struct {
	mu        sync.Mutex
	cfg       Config
	buffer    *RingBuffer
	registry  *providers.Registry
	listeners []Listener
	logger    *slog.Logger

	now func() time.Time
}

// NewAggregator creates an aggregator with its own ring buffer. The
// registry supplies provider display names and may be nil.
func NewAggregator(cfg Config, registry *providers.Registry, logger *slog.Logger) *Aggregator {
	cfg = cfg.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		cfg:      cfg,
		buffer:   NewRingBuffer(cfg.BufferCapacity),
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe registers a listener for buffer and config events. Dispatch is
// synchronous; listeners must not call back into the aggregator.
func (a *Aggregator) Subscribe(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

func (a *Aggregator) publish(event Event) {
	for _, l := range a.listeners {
		l.HandleEvent(event)
	}
}

// Process folds a batch of usage records into bucketed points and inserts
// them. Records are grouped by bucket start
// (floor(timestamp/resolution)*resolution); groups are inserted in
// ascending bucket order so buffer timestamps stay non-decreasing. An
// empty batch is a no-op.
func (a *Aggregator) Process(records []model.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cfg.Enabled {
		return nil
	}

	resolution := a.cfg.BucketResolution.Milliseconds()
	groups := make(map[int64][]model.UsageRecord)
	for _, r := range records {
		start := r.Timestamp.UnixMilli() / resolution * resolution
		groups[start] = append(groups[start], r)
	}
	if len(groups) == 0 {
		return fmt.Errorf("process %d records: %w", len(records), ErrMalformedBatch)
	}

	starts := make([]int64, 0, len(groups))
	for start := range groups {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	for _, start := range starts {
		group := groups[start]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		point := a.buildPoint(time.UnixMilli(start).UTC(), group)
		overwritten := a.buffer.Add(point)

		now := a.now()
		added := newEvent(EventPointAdded, now)
		cp := point.Clone()
		added.Point = &cp
		a.publish(added)

		if overwritten {
			a.publish(newEvent(EventBufferOverflow, now))
			a.logger.Debug("buffer overflow", "capacity", a.buffer.Capacity())
		}
	}

	a.logger.Debug("records processed", "records", len(records), "buckets", len(starts))
	return nil
}

// buildPoint folds one sorted bucket group into a point. Costs accumulate
// unrounded and are rounded once at the end.
func (a *Aggregator) buildPoint(bucketStart time.Time, records []model.UsageRecord) model.TimeBucketPoint {
	point := model.TimeBucketPoint{
		Timestamp:         bucketStart,
		ModelBreakdown:    make(map[string]model.ModelStat),
		ProviderBreakdown: make(map[string]model.ProviderStat),
	}

	for i := range records {
		r := &records[i]
		total := r.TotalTokens()

		point.InputTokens += r.InputTokens
		point.OutputTokens += r.OutputTokens
		point.CacheCreationTokens += r.CacheCreationTokens
		point.CacheReadTokens += r.CacheReadTokens
		point.TotalTokens += total
		point.CostUSD += r.CostUSD
		point.EntryCount++

		point.ModelBreakdown[r.Model] = mergeModelStat(point.ModelBreakdown[r.Model], model.ModelStat{
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			TotalTokens:  total,
			CostUSD:      r.CostUSD,
			Count:        1,
		})
		point.ProviderBreakdown[r.Provider] = mergeProviderStat(point.ProviderBreakdown[r.Provider], model.ProviderStat{
			DisplayName:         a.displayName(r.Provider),
			InputTokens:         r.InputTokens,
			OutputTokens:        r.OutputTokens,
			CacheCreationTokens: r.CacheCreationTokens,
			CacheReadTokens:     r.CacheReadTokens,
			TotalTokens:         total,
			CostUSD:             r.CostUSD,
			Count:               1,
		})
	}

	last := records[len(records)-1].Timestamp
	point.Duration = last.Sub(bucketStart) + a.cfg.BucketPadding
	roundPointCosts(&point)
	return point
}

func (a *Aggregator) displayName(id string) string {
	if a.registry != nil {
		return a.registry.DisplayName(id)
	}
	return providers.FallbackDisplayName(id)
}

// Series returns the windowed series downsampled to at most maxPoints.
// A non-positive maxPoints applies the configured default cap; a
// non-positive window spans the whole buffer.
func (a *Aggregator) Series(window time.Duration, maxPoints int) []model.TimeBucketPoint {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cfg.Enabled {
		return nil
	}
	if maxPoints <= 0 {
		maxPoints = a.cfg.MaxDownsamplePoints
	}
	start, end := a.windowBounds(window)
	return a.buffer.Downsampled(start, end, maxPoints)
}

// AggregatedSeries reduces each series point to per-provider slices for
// rendering. ColorKey is the stable provider identifier; assigning actual
// colors is the consumer's concern.
func (a *Aggregator) AggregatedSeries(window time.Duration, maxPoints int) []model.AggregatedPoint {
	points := a.Series(window, maxPoints)
	if len(points) == 0 {
		return nil
	}

	out := make([]model.AggregatedPoint, 0, len(points))
	for i := range points {
		ap := model.AggregatedPoint{
			Timestamp: points[i].Timestamp,
			Providers: make(map[string]model.ProviderSlice, len(points[i].ProviderBreakdown)),
		}
		for id, stat := range points[i].ProviderBreakdown {
			ap.Providers[id] = model.ProviderSlice{
				Tokens:   stat.TotalTokens,
				CostUSD:  stat.CostUSD,
				ColorKey: id,
			}
		}
		out = append(out, ap)
	}
	return out
}

// Analytics computes derived statistics over the windowed series.
func (a *Aggregator) Analytics(window time.Duration) model.TimelineAnalytics {
	a.mu.Lock()
	defer a.mu.Unlock()

	var points []model.TimeBucketPoint
	if a.cfg.Enabled {
		start, end := a.windowBounds(window)
		points = a.buffer.Windowed(start, end)
	}
	return Analyze(points, AnalyticsOptions{
		PredictionEnabled:   a.cfg.PredictionEnabled,
		MaxDownsamplePoints: a.cfg.MaxDownsamplePoints,
	})
}

// Filtered returns the windowed series restricted by the filter. All
// criteria are AND-combined.
func (a *Aggregator) Filtered(window time.Duration, filter model.SeriesFilter) []model.TimeBucketPoint {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cfg.Enabled {
		return nil
	}
	start, end := a.windowBounds(window)
	points := a.buffer.Windowed(start, end)

	out := points[:0]
	for i := range points {
		if filter.Matches(&points[i]) {
			out = append(out, points[i])
		}
	}
	return out
}

// Recent returns up to n points, newest first.
func (a *Aggregator) Recent(n int) []model.TimeBucketPoint {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cfg.Enabled {
		return nil
	}
	return a.buffer.Recent(n)
}

// Export renders the windowed series in the given format. The resolution
// parameter caps the number of exported points (0 uses the configured
// default).
func (a *Aggregator) Export(format ExportFormat, window time.Duration, includeBreakdown bool, resolution int) ([]byte, error) {
	points := a.Series(window, resolution)
	return Export(format, points, includeBreakdown, a.now())
}

// Cleanup evicts points older than the retention horizon. Invoked by the
// sweeper on its interval; safe to call directly.
func (a *Aggregator) Cleanup() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	removed := a.buffer.Cleanup(now, a.cfg.MaxRetention)
	if removed > 0 {
		event := newEvent(EventRetentionCleanup, now)
		event.RemovedCount = removed
		a.publish(event)
		a.logger.Info("retention sweep", "removed", removed, "max_age", a.cfg.MaxRetention)
	}
	return removed
}

// UpdateConfig merges a partial update into the current configuration. A
// capacity change resizes the buffer immediately; a resolution change
// affects only future Process calls. Listeners (including the sweeper)
// observe the change through a config-updated event.
func (a *Aggregator) UpdateConfig(update ConfigUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	old := a.cfg
	cfg := update.apply(old).normalize()

	if cfg.BufferCapacity != old.BufferCapacity {
		if err := a.buffer.Resize(cfg.BufferCapacity); err != nil {
			return fmt.Errorf("update config: %w", err)
		}
	}
	a.cfg = cfg

	event := newEvent(EventConfigUpdated, a.now())
	event.OldCapacity = old.BufferCapacity
	event.NewCapacity = cfg.BufferCapacity
	event.SweepInterval = cfg.SweepInterval
	a.publish(event)

	a.logger.Info("config updated",
		"capacity", cfg.BufferCapacity,
		"resolution", cfg.BucketResolution,
		"retention", cfg.MaxRetention,
		"sweep_interval", cfg.SweepInterval,
	)
	return nil
}

// Config returns a copy of the current configuration.
func (a *Aggregator) Config() Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// BufferStats returns a snapshot of ring buffer occupancy.
func (a *Aggregator) BufferStats() model.BufferStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer.Stats()
}

// MemoryStats returns buffer occupancy, footprint estimate and the live
// time range.
func (a *Aggregator) MemoryStats() model.MemoryStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := model.MemoryStats{
		Capacity:       a.buffer.Capacity(),
		Used:           a.buffer.Size(),
		EstimatedBytes: a.buffer.EstimatedBytes(),
	}
	if oldest, ok := a.buffer.Oldest(); ok {
		stats.OldestTimestamp = oldest.Timestamp
	}
	if newest, ok := a.buffer.Newest(); ok {
		stats.NewestTimestamp = newest.Timestamp
	}
	return stats
}

// Clear empties the buffer without changing its capacity.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer.Clear()
}

func (a *Aggregator) windowBounds(window time.Duration) (start, end time.Time) {
	end = a.now()
	if window > 0 {
		start = end.Add(-window)
	}
	return start, end
}
