package timeline

import (
	"math"

	"github.com/yapay-ai/token-timeline/pkg/model"
)

// growthThreshold is the growth-rate percentage beyond which a trend stops
// being classified as stable.
const growthThreshold = 5.0

// AnalyticsOptions tune the derived statistics.
type AnalyticsOptions struct {
	// PredictionEnabled turns on the linear extrapolation.
	PredictionEnabled bool

	// MaxDownsamplePoints is the configured series resolution ceiling used
	// to scale prediction confidence.
	MaxDownsamplePoints int
}

// Analyze computes usage statistics over a chronologically ordered point
// series. It is a pure function; an empty series yields the neutral result
// (no peak, zero rate and growth, a stable trend of strength zero, no
// prediction).
func Analyze(points []model.TimeBucketPoint, opts AnalyticsOptions) model.TimelineAnalytics {
	analytics := model.TimelineAnalytics{
		Trend: model.Trend{Direction: model.TrendStable},
	}
	if len(points) == 0 {
		return analytics
	}

	peak := points[0].Timestamp
	peakTokens := points[0].TotalTokens
	var totalTokens int64
	for i := range points {
		totalTokens += points[i].TotalTokens
		if points[i].TotalTokens > peakTokens {
			peakTokens = points[i].TotalTokens
			peak = points[i].Timestamp
		}
	}
	analytics.PeakUsageTime = &peak

	span := points[len(points)-1].Timestamp.Sub(points[0].Timestamp)
	if span > 0 {
		analytics.AverageUsageRate = float64(totalTokens) / span.Minutes()
	}

	analytics.GrowthRate = growthRate(points)
	analytics.Trend = classifyTrend(analytics.GrowthRate)

	if opts.PredictionEnabled {
		analytics.Prediction = predict(analytics.AverageUsageRate, len(points), opts.MaxDownsamplePoints)
	}

	return analytics
}

// growthRate compares token totals of the two halves of the series, split
// at the midpoint index.
func growthRate(points []model.TimeBucketPoint) float64 {
	mid := len(points) / 2

	var firstHalf, secondHalf int64
	for i := range points[:mid] {
		firstHalf += points[i].TotalTokens
	}
	for i := mid; i < len(points); i++ {
		secondHalf += points[i].TotalTokens
	}

	if firstHalf == 0 {
		return 0
	}
	return float64(secondHalf-firstHalf) / float64(firstHalf) * 100
}

func classifyTrend(growth float64) model.Trend {
	switch {
	case growth > growthThreshold:
		return model.Trend{Direction: model.TrendIncreasing, Strength: trendStrength(growth)}
	case growth < -growthThreshold:
		return model.Trend{Direction: model.TrendDecreasing, Strength: trendStrength(growth)}
	default:
		return model.Trend{Direction: model.TrendStable}
	}
}

func trendStrength(growth float64) float64 {
	return math.Min(math.Abs(growth)/100, 1)
}

// predict extrapolates the average per-minute rate linearly. Confidence
// degrades as the series covers a smaller fraction of the configured
// resolution ceiling.
func predict(ratePerMinute float64, seriesLen, maxPoints int) *model.Prediction {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxDownsamplePoints
	}
	confidence := math.Max(0.1, 1-float64(seriesLen)/float64(maxPoints))
	return &model.Prediction{
		NextHourTokens: int64(math.Round(ratePerMinute * 60)),
		NextDayTokens:  int64(math.Round(ratePerMinute * 60 * 24)),
		Confidence:     confidence,
	}
}
