package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yapay-ai/token-timeline/pkg/model"
)

func TestUsageRecord_TotalTokens(t *testing.T) {
	r := model.UsageRecord{
		InputTokens:         100,
		OutputTokens:        50,
		CacheCreationTokens: 20,
		CacheReadTokens:     5,
	}
	assert.Equal(t, int64(175), r.TotalTokens())
}

func TestTimeBucketPoint_End(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p := model.TimeBucketPoint{Timestamp: ts, Duration: 5 * time.Minute}
	assert.Equal(t, ts.Add(5*time.Minute), p.End())
}

func TestTimeBucketPoint_CloneIsDeep(t *testing.T) {
	p := model.TimeBucketPoint{
		Timestamp:   time.Now(),
		TotalTokens: 100,
		ModelBreakdown: map[string]model.ModelStat{
			"gpt-4o": {TotalTokens: 100, Count: 1},
		},
		ProviderBreakdown: map[string]model.ProviderStat{
			"openai": {TotalTokens: 100, Count: 1},
		},
	}

	clone := p.Clone()
	clone.ModelBreakdown["gpt-4o"] = model.ModelStat{TotalTokens: 999}
	clone.ProviderBreakdown["mutated"] = model.ProviderStat{}

	assert.Equal(t, int64(100), p.ModelBreakdown["gpt-4o"].TotalTokens)
	assert.NotContains(t, p.ProviderBreakdown, "mutated")
}

func TestSeriesFilter_Matches(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	point := model.TimeBucketPoint{
		Timestamp:   ts,
		TotalTokens: 500,
		CostUSD:     0.25,
		ModelBreakdown: map[string]model.ModelStat{
			"gpt-4o": {TotalTokens: 500},
		},
		ProviderBreakdown: map[string]model.ProviderStat{
			"openai": {TotalTokens: 500},
		},
	}

	tests := []struct {
		name   string
		filter model.SeriesFilter
		want   bool
	}{
		{"empty filter matches", model.SeriesFilter{}, true},
		{"matching provider", model.SeriesFilter{Providers: []string{"openai"}}, true},
		{"non-matching provider", model.SeriesFilter{Providers: []string{"anthropic"}}, false},
		{"any of several providers", model.SeriesFilter{Providers: []string{"anthropic", "openai"}}, true},
		{"matching model", model.SeriesFilter{Models: []string{"gpt-4o"}}, true},
		{"non-matching model", model.SeriesFilter{Models: []string{"claude-3.5-sonnet"}}, false},
		{"min tokens met", model.SeriesFilter{MinTotalTokens: 500}, true},
		{"min tokens not met", model.SeriesFilter{MinTotalTokens: 501}, false},
		{"max cost met", model.SeriesFilter{MaxCostUSD: 0.25}, true},
		{"max cost exceeded", model.SeriesFilter{MaxCostUSD: 0.10}, false},
		{"inside time range", model.SeriesFilter{Start: ts.Add(-time.Hour), End: ts.Add(time.Hour)}, true},
		{"before start", model.SeriesFilter{Start: ts.Add(time.Minute)}, false},
		{"after end", model.SeriesFilter{End: ts.Add(-time.Minute)}, false},
		{
			"all criteria AND-combined",
			model.SeriesFilter{Providers: []string{"openai"}, MinTotalTokens: 501},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(&point))
		})
	}
}
