package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/vmstats/collector"
	"github.com/Guliveer/vitalis/vmstats/config"
	"github.com/Guliveer/vitalis/vmstats/internal/service"
	"github.com/Guliveer/vitalis/vmstats/models"
	"github.com/Guliveer/vitalis/vmstats/sink"
)

var (
	sinkKind string
	sinkURL  string
	duration time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start collecting and reporting samples",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.CLIOverrides{SinkKind: sinkKind, SinkURL: sinkURL})
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger := initLogger(cfg)
		defer logger.Sync()

		undo, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof))
		if err != nil {
			logger.Warn("Failed to set GOMAXPROCS", zap.Error(err))
		}
		defer undo()

		logger.Info("Starting vmstats",
			zap.String("version", version),
			zap.String("sink", cfg.Sink.Kind))

		if service.IsWindowsService() {
			logger.Info("Running as Windows service")
			return service.New(logger, func(ctx context.Context) error {
				return runCollector(ctx, cfg, logger)
			}).Run()
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}

		if err := runCollector(ctx, cfg, logger); err != nil {
			return err
		}
		logger.Info("vmstats stopped")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&sinkKind, "sink", "", "Sink to report to. One of console, log, http.")
	runCmd.Flags().StringVar(&sinkURL, "url", "", "Ingestion base URL for the http sink")
	runCmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
}

// runCollector starts the sink and the collectors and blocks until ctx is
// cancelled and the sink has flushed.
func runCollector(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report, runSink := buildSink(cfg, logger)
	cfg.Report = report

	var wg sync.WaitGroup
	if runSink != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runSink(ctx)
		}()
	}

	registry, err := collector.New(cfg, collector.WithLogger(logger))
	if err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("creating collector: %w", err)
	}
	if err := registry.Start(ctx); err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("starting collector: %w", err)
	}

	id := registry.Identity()
	logger.Info("Collector running",
		zap.Int("pid", id.PID),
		zap.Int("cpu_cores", id.CPUCores),
		zap.Int("collectors", len(registry.Collectors())))

	<-ctx.Done()
	wg.Wait()
	return nil
}

// buildSink returns the report function for the configured sink and, for
// sinks that deliver in the background, the loop to run.
func buildSink(cfg *config.Config, logger *zap.Logger) (models.ReportFunc, func(context.Context)) {
	switch strings.ToLower(cfg.Sink.Kind) {
	case config.SinkLog:
		return sink.Logger(logger.Named("samples")), nil
	case config.SinkHTTP:
		h := sink.NewHTTP(cfg.Sink, logger.Named("sink"))
		return h.Report, func(ctx context.Context) {
			h.Run(ctx)
			if n := h.Dropped(); n > 0 {
				logger.Warn("Samples dropped on full queue", zap.Uint64("count", n))
			}
		}
	default:
		return sink.Console(os.Stdout), nil
	}
}
