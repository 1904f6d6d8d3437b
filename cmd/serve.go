package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/api"
	"github.com/JakeFAU/keywatch/internal/config"
	"github.com/JakeFAU/keywatch/internal/metrics"
	"github.com/JakeFAU/keywatch/internal/monitor"
	"github.com/JakeFAU/keywatch/internal/notify/telegram"
	"github.com/JakeFAU/keywatch/internal/progress"
	"github.com/JakeFAU/keywatch/internal/progress/sinks"
	"github.com/JakeFAU/keywatch/internal/storage/postgres"
	"github.com/JakeFAU/keywatch/internal/telemetry"
	"github.com/JakeFAU/keywatch/internal/watch"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP control surface and the monitor",
		Long: `Starts the HTTP API used to start and stop the monitor, inspect its
status and recent log lines, and scrape metrics. With monitor.autostart the
configured run begins immediately.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
			ServiceName: "keywatch",
			ProjectID:   cfg.Tracing.ProjectID,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(flushCtx); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}
	comps := buildComponents(cfg, logger)
	defer comps.close(logger)

	hitStore, err := buildHitStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	hub, ring, err := buildHub(ctx, cfg, prometheus.DefaultRegisterer, hitStore, logger)
	if err != nil {
		return err
	}

	notifier := telegram.New(telegram.Config{
		APIEndpoint:   cfg.Telegram.APIEndpoint,
		RatePerSecond: cfg.Telegram.RatePerSecond,
		Timeout:       config.Seconds(cfg.Telegram.TimeoutSeconds),
	}, telegram.WithLogger(logger.Named("telegram")))

	controller := monitor.New(comps.keywords, comps.fetcher, notifier,
		monitor.WithPacer(&monitor.JitterPacer{
			Base:          config.Seconds(cfg.Monitor.IntervalSeconds),
			JitterMin:     config.Seconds(cfg.Monitor.JitterMinSeconds),
			JitterMax:     config.Seconds(cfg.Monitor.JitterMaxSeconds),
			RecoveryDelay: config.Seconds(cfg.Monitor.RecoveryDelaySeconds),
		}),
		monitor.WithEmitter(hub),
		monitor.WithLogger(logger.Named("monitor")),
		monitor.WithBaseContext(ctx),
		monitor.WithCallTimeout(cfg.HTTPTimeout()),
		monitor.WithSeenLimit(cfg.Monitor.SeenLimit),
	)

	if cfg.Monitor.Autostart {
		runCfg, err := cfg.RunConfig()
		if err != nil {
			return err
		}
		if err := controller.Start(runCfg); err != nil {
			return fmt.Errorf("autostart monitor: %w", err)
		}
		logger.Info("monitor autostarted",
			zap.String("mode", string(runCfg.Mode)),
			zap.String("target_url", runCfg.TargetURL),
		)
	}

	var apiOpts []api.Option
	if hitStore != nil {
		apiOpts = append(apiOpts, api.WithHitReader(hitStore))
	}
	apiServer := api.NewServer(controller, ring, cfg.Target.URL, logger.Named("api"), apiOpts...)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := controller.Shutdown(shutdownCtx); err != nil {
		logger.Warn("monitor did not stop in time", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// buildHub assembles the progress fan-out and returns the ring that backs the
// recent-line endpoint. Status lines and hit history are routed losslessly;
// metrics and hit publishing may drop events under backpressure. The hub owns
// hitStore once built; on error hitStore is closed here.
func buildHub(
	ctx context.Context,
	cfg config.Config,
	reg prometheus.Registerer,
	hitStore *postgres.HitStore,
	logger *zap.Logger,
) (_ *progress.Hub, _ *sinks.RingSink, err error) {
	defer func() {
		if err != nil && hitStore != nil {
			hitStore.Close()
		}
	}()
	ring := sinks.NewRingSink(cfg.Progress.RingSize)
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	pub, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	routes := []progress.Route{
		{Name: "log", Sink: sinks.NewLogSink(logger.Named("progress")), Delivery: progress.Lossless},
		{Name: "ring", Sink: ring, Delivery: progress.Lossless},
		{Name: "metrics", Sink: promSink, Delivery: progress.BestEffort},
	}
	if pub != nil {
		routes = append(routes, progress.Route{Name: "pubsub", Sink: sinks.NewPublisherSink(pub), Delivery: progress.BestEffort})
	}
	if hitStore != nil {
		routes = append(routes, progress.Route{Name: "history", Sink: sinks.NewStoreSink(hitStore), Delivery: progress.Lossless})
	}
	if cfg.Progress.Stdout {
		routes = append(routes, progress.Route{
			Name: "stdout",
			Sink: sinks.NewLineSink(watch.LogSinkFunc(func(line string) {
				fmt.Fprintln(os.Stdout, line)
			})),
			Delivery: progress.Lossless,
		})
	}

	hub := progress.NewHub(progress.Config{
		BufferSize:  cfg.Progress.BufferSize,
		BaseContext: context.WithoutCancel(ctx),
		Logger:      logger.Named("progress"),
	}, routes...)
	return hub, ring, nil
}
