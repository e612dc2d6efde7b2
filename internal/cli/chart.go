package cli

import (
	"fmt"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the token timeline as a terminal chart",
	RunE:  runChart,
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringP("window", "w", "24h", "Chart window")
	chartCmd.Flags().Int("width", 80, "Chart width in columns")
	chartCmd.Flags().Int("height", 12, "Chart height in rows")
}

func runChart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	windowRaw, _ := cmd.Flags().GetString("window")
	window, err := time.ParseDuration(windowRaw)
	if err != nil {
		return fmt.Errorf("invalid window %q: %w", windowRaw, err)
	}
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	logger := newLogger(cfg)
	agg, log, err := initAggregator(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer log.Close()

	points := agg.Series(window, width)
	if len(points) == 0 {
		fmt.Println("No usage data in the selected window.")
		return nil
	}

	values := make([]float64, len(points))
	for i := range points {
		values[i] = float64(points[i].TotalTokens)
	}

	fmt.Printf("Total tokens per bucket (last %s, %d buckets)\n\n", window, len(points))
	fmt.Println(asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s .. %s",
			points[0].Timestamp.Local().Format("Jan 2 15:04"),
			points[len(points)-1].Timestamp.Local().Format("Jan 2 15:04"))),
	))
	return nil
}
