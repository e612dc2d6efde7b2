package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show usage analytics for a time window",
	Long: `Rebuild the timeline from the record log and print peak time, usage
rate, growth rate, trend and the linear usage prediction for the window.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringP("window", "w", "24h", "Analysis window (e.g., 1h, 24h, 168h)")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	windowRaw, _ := cmd.Flags().GetString("window")
	window, err := time.ParseDuration(windowRaw)
	if err != nil {
		return fmt.Errorf("invalid window %q: %w", windowRaw, err)
	}

	logger := newLogger(cfg)
	agg, log, err := initAggregator(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer log.Close()

	analytics := agg.Analytics(window)
	stats := agg.MemoryStats()

	fmt.Printf("=== Usage Analytics (last %s) ===\n\n", window)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if analytics.PeakUsageTime != nil {
		fmt.Fprintf(w, "Peak usage time:\t%s\n", analytics.PeakUsageTime.Local().Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintf(w, "Peak usage time:\t-\n")
	}
	fmt.Fprintf(w, "Average rate:\t%.1f tokens/min\n", analytics.AverageUsageRate)
	fmt.Fprintf(w, "Growth rate:\t%+.1f%%\n", analytics.GrowthRate)
	fmt.Fprintf(w, "Trend:\t%s (strength %.2f)\n", analytics.Trend.Direction, analytics.Trend.Strength)
	if analytics.Prediction != nil {
		fmt.Fprintf(w, "Next hour:\t~%d tokens\n", analytics.Prediction.NextHourTokens)
		fmt.Fprintf(w, "Next day:\t~%d tokens\n", analytics.Prediction.NextDayTokens)
		fmt.Fprintf(w, "Confidence:\t%.0f%%\n", analytics.Prediction.Confidence*100)
	}
	fmt.Fprintf(w, "Buckets:\t%d / %d\n", stats.Used, stats.Capacity)
	w.Flush()

	return nil
}
