package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appservice "github.com/turtacn/riskserve/internal/application/service"
	"github.com/turtacn/riskserve/internal/config"
	domainservice "github.com/turtacn/riskserve/internal/domain/service"
	"github.com/turtacn/riskserve/internal/infrastructure/artifact"
	"github.com/turtacn/riskserve/internal/infrastructure/events"
	"github.com/turtacn/riskserve/internal/infrastructure/monitoring"
	"github.com/turtacn/riskserve/internal/infrastructure/redis"
	"github.com/turtacn/riskserve/internal/interfaces/http"
	"github.com/turtacn/riskserve/internal/interfaces/http/handlers"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:           "riskserve",
		Short:         "Maternal health risk prediction server with online fine-tuning",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml or /etc/riskserve/config.yaml)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "riskserve:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string) error {
	// Load config
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return err
	}

	// Initialize tracing
	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		_ = tracing.Shutdown(shutdownCtx)
	}()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)
	metricsAdapter := monitoring.NewMetricsAdapter(metrics)

	// Initialize artifact store
	opened, err := artifact.Open(ctx, &cfg.Tracking, appLogger)
	if err != nil {
		return err
	}
	defer opened.Close()

	// Initialize lifecycle events
	publisher := domainservice.NewNoopEventPublisher()
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaProducer(cfg.Kafka, appLogger)
	}
	defer publisher.Close()

	// Initialize Redis
	var (
		redisConn   *redis.RedisConnection
		redisHealth handlers.Pinger
		pointer     *redis.ActivePointer
		activePub   = domainservice.NewNoopPointerPublisher()
	)
	if cfg.Redis.Enabled {
		redisConn, err = redis.NewRedisConnection(ctx, &cfg.Redis, appLogger)
		if err != nil {
			return err
		}
		defer redisConn.Close()
		pointer = redis.NewActivePointer(redisConn, appLogger)
		activePub = pointer
		redisHealth = redisConn
	}

	coordinator := appservice.NewCoordinator(opened.Store, appservice.CoordinatorConfig{
		FineTuneEpochs:       cfg.Model.FineTuneEpochs,
		FineTuneLearningRate: cfg.Model.FineTuneLearningRate,
		Seed:                 cfg.Model.Seed,
	}, metricsAdapter, publisher, activePub, tracing.Tracer(), appLogger)

	if _, err := coordinator.LoadLatest(ctx); err != nil {
		if !errors.Is(err, errors.ErrNotReady) {
			return err
		}
		appLogger.Warn(ctx, "No model version registered yet, predictions return 503 until one is trained",
			logger.Fields{"experiment": opened.Store.Experiment()})
	}

	worker := appservice.NewCorrectionWorker(coordinator, cfg.Correction.QueueSize, cfg.Correction.DrainDuration(), metricsAdapter, appLogger)

	// Initialize HTTP handlers and router
	page, err := handlers.NewPageHandler(coordinator, appLogger)
	if err != nil {
		return err
	}
	var redisClient goredis.UniversalClient
	if redisConn != nil {
		redisClient = redisConn.GetClient()
	}
	router := http.NewRouter(cfg, appLogger, http.Handlers{
		Health:   handlers.NewHealthHandler(opened.Store, coordinator, redisHealth, appLogger),
		Risk:     handlers.NewRiskHandler(coordinator, worker, appLogger),
		Versions: handlers.NewVersionHandler(opened.Store, coordinator, opened.Store.Experiment(), appLogger),
		Page:     page,
	}, metrics, registry, tracing.Tracer(), redisClient)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })

	if cfg.Tracking.Watch {
		watcher := artifact.NewWatcher(opened.Paths.ArtifactDir, 0, coordinator.ReloadIfNewer, appLogger)
		g.Go(func() error { return watcher.Run(gctx) })
	}
	if pointer != nil {
		g.Go(func() error { return pointer.Subscribe(gctx, coordinator.ReloadIfNewer) })
	}
	if cfg.Kafka.Enabled && cfg.Kafka.Consume {
		consumer := events.NewVersionConsumer(cfg.Kafka, coordinator.ReloadIfNewer, appLogger)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	g.Go(router.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		return router.Stop(shutdownCtx)
	})

	err = g.Wait()
	appLogger.Info(context.Background(), "Server stopped", logger.Fields{"active_version": coordinator.VersionID()})
	return err
}

//Personal.AI order the ending
