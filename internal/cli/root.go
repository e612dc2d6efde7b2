package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/token-timeline/internal/config"
	"github.com/yapay-ai/token-timeline/pkg/providers"
	"github.com/yapay-ai/token-timeline/pkg/recordlog"
	"github.com/yapay-ai/token-timeline/pkg/timeline"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Token Timeline - In-memory timeline of LLM usage metrics",
	Long: `Token Timeline aggregates LLM usage records into a bounded in-memory
timeline of time buckets. It serves windowed series, per-provider
aggregates, trend analytics and CSV/JSON exports over a small HTTP API
and through this CLI.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.ttm/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initRegistry loads the provider catalog. A missing catalog is not an
// error; display names then fall back to capitalized identifiers.
func initRegistry(cfg *config.Config) (*providers.Registry, error) {
	if _, err := os.Stat(cfg.Providers.Path); os.IsNotExist(err) {
		return providers.NewRegistry(), nil
	}
	return providers.NewRegistryFromFile(cfg.Providers.Path)
}

// timelineConfig maps file configuration onto the aggregator config.
func timelineConfig(cfg *config.Config) timeline.Config {
	return timeline.Config{
		Enabled:             cfg.Timeline.Enabled,
		BufferCapacity:      cfg.Timeline.BufferCapacity,
		BucketResolution:    cfg.Timeline.BucketResolution,
		MaxRetention:        cfg.Timeline.MaxRetention,
		SweepInterval:       cfg.Timeline.SweepInterval,
		MaxDownsamplePoints: cfg.Timeline.MaxDownsamplePoints,
		BucketPadding:       cfg.Timeline.BucketPadding,
		PredictionEnabled:   cfg.Timeline.PredictionEnabled,
	}
}

// initAggregator opens the record log and rebuilds the timeline from the
// records inside the retention window. The caller owns the returned log.
func initAggregator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*timeline.Aggregator, recordlog.Log, error) {
	registry, err := initRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	log, err := recordlog.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}

	agg := timeline.NewAggregator(timelineConfig(cfg), registry, logger)

	since := time.Now().Add(-agg.Config().MaxRetention)
	records, err := log.Replay(ctx, since)
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	if err := agg.Process(records); err != nil {
		log.Close()
		return nil, nil, err
	}
	if len(records) > 0 {
		logger.Debug("timeline rebuilt", "records", len(records))
	}

	return agg, log, nil
}
