package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/token-timeline/pkg/timeline"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the timeline series as CSV or JSON",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "csv", "Export format (csv, json)")
	exportCmd.Flags().StringP("window", "w", "24h", "Export window")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().Bool("breakdown", false, "Include model/provider breakdowns")
	exportCmd.Flags().Int("resolution", 0, "Maximum exported points (0 = configured default)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatRaw, _ := cmd.Flags().GetString("format")
	format, err := timeline.ParseFormat(formatRaw)
	if err != nil {
		return err
	}

	windowRaw, _ := cmd.Flags().GetString("window")
	window, err := time.ParseDuration(windowRaw)
	if err != nil {
		return fmt.Errorf("invalid window %q: %w", windowRaw, err)
	}

	output, _ := cmd.Flags().GetString("output")
	breakdown, _ := cmd.Flags().GetBool("breakdown")
	resolution, _ := cmd.Flags().GetInt("resolution")

	logger := newLogger(cfg)
	agg, log, err := initAggregator(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer log.Close()

	data, err := agg.Export(format, window, breakdown, resolution)
	if err != nil {
		return fmt.Errorf("export series: %w", err)
	}

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Printf("Exported %d bytes to %s\n", len(data), output)
	return nil
}
