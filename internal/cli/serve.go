package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/yapay-ai/token-timeline/internal/config"
	"github.com/yapay-ai/token-timeline/internal/metrics"
	"github.com/yapay-ai/token-timeline/internal/server"
	"github.com/yapay-ai/token-timeline/pkg/recordlog"
	"github.com/yapay-ai/token-timeline/pkg/timeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the timeline API server",
	Long: `Rebuild the timeline from the record log, then serve the query API,
ingress endpoint and Prometheus metrics. The retention sweeper runs in the
background; config file edits are applied live.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}

	logger := newLogger(cfg)

	agg, log, err := initAggregator(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer log.Close()

	collector := metrics.New(prometheus.DefaultRegisterer)
	collector.BufferCapacity.Set(float64(agg.Config().BufferCapacity))
	collector.BufferSize.Set(float64(agg.BufferStats().Size))
	agg.Subscribe(collector)

	sweeper := timeline.NewSweeper(agg, logger)
	agg.Subscribe(sweeper)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go sweeper.Run(ctx)

	// Prune the record log alongside the in-memory sweep so replay stays
	// bounded by the retention window.
	go pruneLoop(ctx, agg, log, logger)

	if err := watchConfig(agg, logger); err != nil {
		return err
	}

	apiServer := server.NewServer(agg, log, logger)

	readTimeout, _ := time.ParseDuration(cfg.Server.ReadTimeout)
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout, _ := time.ParseDuration(cfg.Server.WriteTimeout)
	if writeTimeout == 0 {
		writeTimeout = 60 * time.Second
	}

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("timeline server started", "listen", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// pruneLoop deletes record-log entries older than the retention horizon on
// the sweep cadence.
func pruneLoop(ctx context.Context, agg *timeline.Aggregator, log recordlog.Log, logger *slog.Logger) {
	ticker := time.NewTicker(agg.Config().SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-agg.Config().MaxRetention)
			removed, err := log.Prune(ctx, cutoff)
			if err != nil {
				logger.Error("prune record log", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("record log pruned", "removed", removed)
			}
		}
	}
}

// watchConfig applies config file edits to the running aggregator.
func watchConfig(agg *timeline.Aggregator, logger *slog.Logger) error {
	return config.Watch(cfgFile,
		func(cfg *config.Config) {
			tl := timelineConfig(cfg)
			update := timeline.ConfigUpdate{
				Enabled:             &tl.Enabled,
				BufferCapacity:      &tl.BufferCapacity,
				BucketResolution:    &tl.BucketResolution,
				MaxRetention:        &tl.MaxRetention,
				SweepInterval:       &tl.SweepInterval,
				MaxDownsamplePoints: &tl.MaxDownsamplePoints,
				BucketPadding:       &tl.BucketPadding,
				PredictionEnabled:   &tl.PredictionEnabled,
			}
			if err := agg.UpdateConfig(update); err != nil {
				logger.Error("apply config change", "error", err)
				return
			}
			logger.Info("config file change applied")
		},
		func(err error) {
			logger.Error("config reload", "error", err)
		},
	)
}
