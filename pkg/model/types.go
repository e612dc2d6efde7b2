package model

import "time"

// UsageRecord is a single normalized usage event as delivered by a producer.
// Token counts are non-negative; CostUSD is a non-negative decimal carrying
// up to six decimal places.
type UsageRecord struct {
	Timestamp           time.Time `json:"timestamp"`
	Provider            string    `json:"provider"`
	Model               string    `json:"model"`
	InputTokens         int64     `json:"input_tokens"`
	OutputTokens        int64     `json:"output_tokens"`
	CacheCreationTokens int64     `json:"cache_creation_tokens"`
	CacheReadTokens     int64     `json:"cache_read_tokens"`
	CostUSD             float64   `json:"cost_usd"`
}

// TotalTokens returns the sum of all token fields of the record.
func (r *UsageRecord) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens + r.CacheCreationTokens + r.CacheReadTokens
}

// ModelStat holds the per-model partial sums nested inside a point.
type ModelStat struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Count        int64   `json:"count"`
}

// ProviderStat holds the per-provider partial sums nested inside a point,
// including cache token detail and the provider's display name.
type ProviderStat struct {
	DisplayName         string  `json:"display_name"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	TotalTokens         int64   `json:"total_tokens"`
	CostUSD             float64 `json:"cost_usd"`
	Count               int64   `json:"count"`
}

// TimeBucketPoint is one aggregated time slice of usage.
//
// Invariant: TotalTokens == InputTokens + OutputTokens +
// CacheCreationTokens + CacheReadTokens, and the summed breakdown totals
// equal the point's totals.
type TimeBucketPoint struct {
	Timestamp           time.Time               `json:"timestamp"`
	Duration            time.Duration           `json:"duration"`
	InputTokens         int64                   `json:"input_tokens"`
	OutputTokens        int64                   `json:"output_tokens"`
	CacheCreationTokens int64                   `json:"cache_creation_tokens"`
	CacheReadTokens     int64                   `json:"cache_read_tokens"`
	TotalTokens         int64                   `json:"total_tokens"`
	CostUSD             float64                 `json:"cost_usd"`
	EntryCount          int                     `json:"entry_count"`
	ModelBreakdown      map[string]ModelStat    `json:"model_breakdown,omitempty"`
	ProviderBreakdown   map[string]ProviderStat `json:"provider_breakdown,omitempty"`
}

// End returns the instant at which the bucket's covered span ends.
func (p *TimeBucketPoint) End() time.Time {
	return p.Timestamp.Add(p.Duration)
}

// Clone returns a deep copy of the point, including breakdown maps.
// Observers receive clones so that no external reference can reach a live
// buffer slot.
func (p *TimeBucketPoint) Clone() TimeBucketPoint {
	out := *p
	if p.ModelBreakdown != nil {
		out.ModelBreakdown = make(map[string]ModelStat, len(p.ModelBreakdown))
		for k, v := range p.ModelBreakdown {
			out.ModelBreakdown[k] = v
		}
	}
	if p.ProviderBreakdown != nil {
		out.ProviderBreakdown = make(map[string]ProviderStat, len(p.ProviderBreakdown))
		for k, v := range p.ProviderBreakdown {
			out.ProviderBreakdown[k] = v
		}
	}
	return out
}

// SeriesFilter restricts a windowed series query. All criteria are
// AND-combined; an empty Providers or Models set means no restriction on
// that dimension.
type SeriesFilter struct {
	Providers      []string  `json:"providers,omitempty"`
	Models         []string  `json:"models,omitempty"`
	MinTotalTokens int64     `json:"min_total_tokens,omitempty"`
	MaxCostUSD     float64   `json:"max_cost_usd,omitempty"`
	Start          time.Time `json:"start,omitempty"`
	End            time.Time `json:"end,omitempty"`
}

// Matches reports whether the point satisfies every filter criterion.
func (f *SeriesFilter) Matches(p *TimeBucketPoint) bool {
	if len(f.Providers) > 0 && !providerHasAny(p.ProviderBreakdown, f.Providers) {
		return false
	}
	if len(f.Models) > 0 && !modelHasAny(p.ModelBreakdown, f.Models) {
		return false
	}
	if f.MinTotalTokens > 0 && p.TotalTokens < f.MinTotalTokens {
		return false
	}
	if f.MaxCostUSD > 0 && p.CostUSD > f.MaxCostUSD {
		return false
	}
	if !f.Start.IsZero() && p.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && p.Timestamp.After(f.End) {
		return false
	}
	return true
}

func providerHasAny(m map[string]ProviderStat, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func modelHasAny(m map[string]ModelStat, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// TrendDirection classifies the growth rate of a series.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Trend is the direction and normalized strength of usage growth.
// Strength is the growth-rate magnitude scaled into [0, 1].
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Strength  float64        `json:"strength"`
}

// Prediction is a naive linear extrapolation of token usage, not a
// forecasting model.
type Prediction struct {
	NextHourTokens int64   `json:"next_hour_tokens"`
	NextDayTokens  int64   `json:"next_day_tokens"`
	Confidence     float64 `json:"confidence"`
}

// TimelineAnalytics holds derived statistics for a queried window.
// PeakUsageTime is nil when the window is empty.
type TimelineAnalytics struct {
	PeakUsageTime    *time.Time  `json:"peak_usage_time,omitempty"`
	AverageUsageRate float64     `json:"average_usage_rate"`
	GrowthRate       float64     `json:"growth_rate"`
	Trend            Trend       `json:"trend"`
	Prediction       *Prediction `json:"prediction,omitempty"`
}

// ProviderSlice is one provider's share of an aggregated point. ColorKey is
// a stable provider identifier; mapping it to an actual color is a
// rendering concern.
type ProviderSlice struct {
	Tokens   int64   `json:"tokens"`
	CostUSD  float64 `json:"cost_usd"`
	ColorKey string  `json:"color_key"`
}

// AggregatedPoint is a point reduced to per-provider slices for rendering.
type AggregatedPoint struct {
	Timestamp time.Time                `json:"timestamp"`
	Providers map[string]ProviderSlice `json:"providers"`
}

// BufferStats describes ring buffer occupancy.
type BufferStats struct {
	Capacity     int     `json:"capacity"`
	Size         int     `json:"size"`
	UsagePercent float64 `json:"usage_percent"`
	Full         bool    `json:"is_full"`
}

// MemoryStats describes buffer occupancy and the live time range.
// EstimatedBytes is an estimate, not an accounting guarantee.
type MemoryStats struct {
	Capacity        int       `json:"capacity"`
	Used            int       `json:"used"`
	EstimatedBytes  int64     `json:"estimated_bytes"`
	OldestTimestamp time.Time `json:"oldest_timestamp,omitempty"`
	NewestTimestamp time.Time `json:"newest_timestamp,omitempty"`
}
