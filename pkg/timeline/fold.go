package timeline

import (
	"math"

	"github.com/yapay-ai/token-timeline/pkg/model"
)

// roundCost rounds a cost sum to the six-decimal precision carried by
// source records. Applied once at an aggregate boundary, never mid-fold.
func roundCost(c float64) float64 {
	return math.Round(c*1e6) / 1e6
}

// foldPoints merges a chronological batch of points into one synthetic
// point using the same summation rule the aggregator applies to raw
// records: timestamp of the first element, duration spanning to the last
// element's end, field-wise sums, merged breakdowns. Costs are rounded
// once, after all sums are complete.
func foldPoints(points []model.TimeBucketPoint) model.TimeBucketPoint {
	first := points[0]
	last := points[len(points)-1]

	out := model.TimeBucketPoint{
		Timestamp:         first.Timestamp,
		Duration:          last.End().Sub(first.Timestamp),
		ModelBreakdown:    make(map[string]model.ModelStat),
		ProviderBreakdown: make(map[string]model.ProviderStat),
	}

	for i := range points {
		p := &points[i]
		out.InputTokens += p.InputTokens
		out.OutputTokens += p.OutputTokens
		out.CacheCreationTokens += p.CacheCreationTokens
		out.CacheReadTokens += p.CacheReadTokens
		out.TotalTokens += p.TotalTokens
		out.CostUSD += p.CostUSD
		out.EntryCount += p.EntryCount

		for name, stat := range p.ModelBreakdown {
			out.ModelBreakdown[name] = mergeModelStat(out.ModelBreakdown[name], stat)
		}
		for name, stat := range p.ProviderBreakdown {
			out.ProviderBreakdown[name] = mergeProviderStat(out.ProviderBreakdown[name], stat)
		}
	}

	roundPointCosts(&out)
	return out
}

// roundPointCosts applies the single aggregate-boundary rounding to a
// point's cost and its breakdown costs.
func roundPointCosts(p *model.TimeBucketPoint) {
	p.CostUSD = roundCost(p.CostUSD)
	for name, stat := range p.ModelBreakdown {
		stat.CostUSD = roundCost(stat.CostUSD)
		p.ModelBreakdown[name] = stat
	}
	for name, stat := range p.ProviderBreakdown {
		stat.CostUSD = roundCost(stat.CostUSD)
		p.ProviderBreakdown[name] = stat
	}
}

func mergeModelStat(into, from model.ModelStat) model.ModelStat {
	into.InputTokens += from.InputTokens
	into.OutputTokens += from.OutputTokens
	into.TotalTokens += from.TotalTokens
	into.CostUSD += from.CostUSD
	into.Count += from.Count
	return into
}

func mergeProviderStat(into, from model.ProviderStat) model.ProviderStat {
	if into.DisplayName == "" {
		into.DisplayName = from.DisplayName
	}
	into.InputTokens += from.InputTokens
	into.OutputTokens += from.OutputTokens
	into.CacheCreationTokens += from.CacheCreationTokens
	into.CacheReadTokens += from.CacheReadTokens
	into.TotalTokens += from.TotalTokens
	into.CostUSD += from.CostUSD
	into.Count += from.Count
	return into
}
