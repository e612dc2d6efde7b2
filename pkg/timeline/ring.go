package timeline

import (
	"fmt"
	"time"

	"github.com/yapay-ai/token-timeline/pkg/model"
)

// RingBuffer is a fixed-capacity circular store of time-bucketed points.
// A full insert overwrites the oldest live slot, keeping Add O(1).
//
// The buffer assumes points arrive in non-decreasing timestamp order, which
// the aggregator guarantees. It is not safe for concurrent use; the
// aggregator serializes all access behind its own lock.
type RingBuffer struct {
	slots []model.TimeBucketPoint
	head  int // next write position
	tail  int // oldest live slot
	size  int
}

// NewRingBuffer creates a buffer with the given capacity. A non-positive
// capacity falls back to DefaultBufferCapacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &RingBuffer{
		slots: make([]model.TimeBucketPoint, capacity),
	}
}

// Add writes the point at the head cursor. When the buffer is already full
// the oldest point is overwritten and Add reports true. Never fails.
func (b *RingBuffer) Add(p model.TimeBucketPoint) (overwritten bool) {
	capacity := len(b.slots)
	b.slots[b.head] = p
	b.head = (b.head + 1) % capacity

	if b.size == capacity {
		b.tail = (b.tail + 1) % capacity
		return true
	}
	b.size++
	return false
}

// Recent returns up to n points, newest first.
func (b *RingBuffer) Recent(n int) []model.TimeBucketPoint {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return nil
	}

	capacity := len(b.slots)
	out := make([]model.TimeBucketPoint, 0, n)
	for i := 0; i < n; i++ {
		idx := (b.head - 1 - i + capacity) % capacity
		out = append(out, b.slots[idx].Clone())
	}
	return out
}

// Windowed returns all live points with timestamps in [start, end] in
// chronological order. Linear scan over live slots, O(capacity).
func (b *RingBuffer) Windowed(start, end time.Time) []model.TimeBucketPoint {
	var out []model.TimeBucketPoint
	capacity := len(b.slots)
	for i := 0; i < b.size; i++ {
		idx := (b.tail + i) % capacity
		ts := b.slots[idx].Timestamp
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out = append(out, b.slots[idx].Clone())
	}
	return out
}

// Downsampled returns the windowed series reduced to at most maxPoints by
// folding contiguous batches of ceil(len/maxPoints) points into synthetic
// sum points. The reduction is lossy but sum-preserving: total tokens and
// cost across the window are conserved. A non-positive maxPoints applies no
// limit.
func (b *RingBuffer) Downsampled(start, end time.Time, maxPoints int) []model.TimeBucketPoint {
	points := b.Windowed(start, end)
	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}

	batchSize := (len(points) + maxPoints - 1) / maxPoints
	out := make([]model.TimeBucketPoint, 0, (len(points)+batchSize-1)/batchSize)
	for i := 0; i < len(points); i += batchSize {
		j := i + batchSize
		if j > len(points) {
			j = len(points)
		}
		if j-i == 1 {
			out = append(out, points[i])
			continue
		}
		out = append(out, foldPoints(points[i:j]))
	}
	return out
}

// Oldest returns the oldest live point, if any.
func (b *RingBuffer) Oldest() (model.TimeBucketPoint, bool) {
	if b.size == 0 {
		return model.TimeBucketPoint{}, false
	}
	return b.slots[b.tail].Clone(), true
}

// Newest returns the most recently added point, if any.
func (b *RingBuffer) Newest() (model.TimeBucketPoint, bool) {
	if b.size == 0 {
		return model.TimeBucketPoint{}, false
	}
	idx := (b.head - 1 + len(b.slots)) % len(b.slots)
	return b.slots[idx].Clone(), true
}

// Cleanup evicts points older than maxAge relative to now, scanning from
// the tail and stopping at the first point still within retention. Returns
// the number of evicted points.
func (b *RingBuffer) Cleanup(now time.Time, maxAge time.Duration) int {
	cutoff := now.Add(-maxAge)
	capacity := len(b.slots)
	removed := 0
	for b.size > 0 && b.slots[b.tail].Timestamp.Before(cutoff) {
		b.slots[b.tail] = model.TimeBucketPoint{}
		b.tail = (b.tail + 1) % capacity
		b.size--
		removed++
	}
	return removed
}

// Clear resets the buffer to empty without changing its capacity.
func (b *RingBuffer) Clear() {
	clear(b.slots)
	b.head = 0
	b.tail = 0
	b.size = 0
}

// Resize repacks the live points, oldest to newest, into a freshly sized
// store. Fails with ErrInvalidCapacity when newCapacity cannot hold the
// current live points.
func (b *RingBuffer) Resize(newCapacity int) error {
	if newCapacity <= 0 || newCapacity < b.size {
		return fmt.Errorf("resize to %d with %d live points: %w", newCapacity, b.size, ErrInvalidCapacity)
	}

	slots := make([]model.TimeBucketPoint, newCapacity)
	capacity := len(b.slots)
	for i := 0; i < b.size; i++ {
		slots[i] = b.slots[(b.tail+i)%capacity]
	}

	b.slots = slots
	b.tail = 0
	b.head = b.size % newCapacity
	return nil
}

// Capacity returns the slot count of the backing store.
func (b *RingBuffer) Capacity() int { return len(b.slots) }

// Size returns the number of live points.
func (b *RingBuffer) Size() int { return b.size }

// Full reports whether every slot holds a live point.
func (b *RingBuffer) Full() bool { return b.size == len(b.slots) }

// Rough per-entry sizes used by EstimatedBytes.
const (
	pointBaseBytes        = 176
	modelEntryBytes       = 72
	providerEntryBytes    = 112
	breakdownKeyOverheads = 16
)

// EstimatedBytes returns a rough in-memory footprint of the live points.
// An estimate for memory-pressure monitoring, not an accounting guarantee.
func (b *RingBuffer) EstimatedBytes() int64 {
	capacity := len(b.slots)
	total := int64(capacity) * pointBaseBytes
	for i := 0; i < b.size; i++ {
		p := &b.slots[(b.tail+i)%capacity]
		for name := range p.ModelBreakdown {
			total += modelEntryBytes + breakdownKeyOverheads + int64(len(name))
		}
		for name, stat := range p.ProviderBreakdown {
			total += providerEntryBytes + breakdownKeyOverheads + int64(len(name)+len(stat.DisplayName))
		}
	}
	return total
}

// Stats returns a snapshot of buffer occupancy.
func (b *RingBuffer) Stats() model.BufferStats {
	return model.BufferStats{
		Capacity:     len(b.slots),
		Size:         b.size,
		UsagePercent: float64(b.size) / float64(len(b.slots)) * 100,
		Full:         b.Full(),
	}
}
