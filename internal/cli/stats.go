package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show timeline buffer statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	agg, log, err := initAggregator(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer log.Close()

	stats := agg.MemoryStats()
	buffer := agg.BufferStats()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Capacity:\t%d buckets\n", stats.Capacity)
	fmt.Fprintf(w, "Used:\t%d buckets (%.1f%%)\n", stats.Used, buffer.UsagePercent)
	fmt.Fprintf(w, "Estimated memory:\t%.1f KiB\n", float64(stats.EstimatedBytes)/1024)
	if !stats.OldestTimestamp.IsZero() {
		fmt.Fprintf(w, "Oldest bucket:\t%s\n", stats.OldestTimestamp.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "Newest bucket:\t%s\n", stats.NewestTimestamp.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()

	return nil
}
