// Package main wires together the domain crawl service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/neuralnyx/domaincrawler/internal/api"
	"github.com/neuralnyx/domaincrawler/internal/browser"
	"github.com/neuralnyx/domaincrawler/internal/bus"
	busmemory "github.com/neuralnyx/domaincrawler/internal/bus/memory"
	buspubsub "github.com/neuralnyx/domaincrawler/internal/bus/pubsub"
	capturepg "github.com/neuralnyx/domaincrawler/internal/capture/pglisten"
	"github.com/neuralnyx/domaincrawler/internal/clock/system"
	"github.com/neuralnyx/domaincrawler/internal/config"
	"github.com/neuralnyx/domaincrawler/internal/dispatcher"
	iduuid "github.com/neuralnyx/domaincrawler/internal/id/uuid"
	"github.com/neuralnyx/domaincrawler/internal/logging"
	"github.com/neuralnyx/domaincrawler/internal/metrics"
	"github.com/neuralnyx/domaincrawler/internal/orchestrator"
	"github.com/neuralnyx/domaincrawler/internal/params"
	queuememory "github.com/neuralnyx/domaincrawler/internal/queue/memory"
	"github.com/neuralnyx/domaincrawler/internal/records"
	recordsmemory "github.com/neuralnyx/domaincrawler/internal/records/memory"
	recordspostgres "github.com/neuralnyx/domaincrawler/internal/records/postgres"
	"github.com/neuralnyx/domaincrawler/internal/storage"
	storagegcs "github.com/neuralnyx/domaincrawler/internal/storage/gcs"
	storagememory "github.com/neuralnyx/domaincrawler/internal/storage/memory"
	"github.com/neuralnyx/domaincrawler/internal/watcher"
	"github.com/neuralnyx/domaincrawler/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, v, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildRecordStore(ctx, cfg)
	if err != nil {
		logger.Fatal("record store init failed", zap.Error(err))
	}
	defer closeStore()

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	publisher, subscriber, stopBus, err := buildBus(ctx, cfg)
	if err != nil {
		logger.Fatal("bus init failed", zap.Error(err))
	}
	defer stopBus()

	paramStore := params.NewViperStore(v, "parameters")
	clock := system.New()

	pages := browser.New(browser.Config{
		NavigationTimeout: cfg.Crawler.NavigationTimeout,
		SettleDelay:       cfg.Crawler.SettleDelay,
		UserAgent:         cfg.Crawler.UserAgent,
	}, logger.Named("browser"))
	logger.Info("browser ready", zap.String("engine", pages.Describe()))

	pipeline := orchestrator.New(
		pages,
		blobs,
		store,
		paramStore,
		clock,
		metrics.NewPipelineCollector(),
		logger.Named("orchestrator"),
	)

	eventQueue := queuememory.NewQueue(cfg.Crawler.QueueDepth)
	var workers []*worker.Worker
	for i := 0; i < cfg.Crawler.Concurrency; i++ {
		workers = append(workers, worker.New(
			eventQueue,
			pipeline,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(eventQueue, workers, logger.Named("dispatcher"))

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Crawler.Concurrency))
		dispatch.Run(ctx)
	}()

	go func() {
		if err := dispatch.Consume(ctx, subscriber); err != nil && ctx.Err() == nil {
			logger.Error("bus consumer stopped", zap.Error(err))
			stop()
		}
	}()

	if cfg.Capture.Enabled {
		if err := startCapture(ctx, cfg, publisher, clock, logger); err != nil {
			logger.Fatal("change capture init failed", zap.Error(err))
		}
	}

	apiServer := api.NewServer(pipeline, store, cfg, logger.Named("api"))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	eventQueue.Close()
}

func buildRecordStore(ctx context.Context, cfg config.Config) (records.Store, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		store, err := recordspostgres.New(ctx, recordspostgres.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return recordsmemory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown db provider %q", cfg.DB.Provider)
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config) (storage.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return storagegcs.New(ctx, client, storagegcs.Config{Bucket: cfg.Storage.GCSBucket})
	case "memory":
		return storagememory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func buildBus(ctx context.Context, cfg config.Config) (bus.Publisher, bus.Subscriber, func(), error) {
	switch cfg.PubSub.Provider {
	case "pubsub":
		client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		publisher, err := buspubsub.NewPublisher(ctx, client, cfg.PubSub.Topic)
		if err != nil {
			return nil, nil, nil, err
		}
		subscription := cfg.PubSub.Subscription
		if subscription == "" {
			subscription = cfg.PubSub.Topic + "-crawler"
		}
		subscriber, err := buspubsub.NewSubscriber(ctx, client, subscription)
		if err != nil {
			return nil, nil, nil, err
		}
		return publisher, subscriber, publisher.Stop, nil
	case "memory":
		b := busmemory.New(cfg.Crawler.QueueDepth)
		return b, b, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown pubsub provider %q", cfg.PubSub.Provider)
	}
}

// startCapture launches the registry change listener feeding the watcher.
func startCapture(ctx context.Context, cfg config.Config, publisher bus.Publisher, clock *system.Clock, logger *zap.Logger) error {
	listener, err := capturepg.New(ctx, capturepg.Config{
		DSN:     cfg.DB.DSN,
		Channel: cfg.Capture.Channel,
	}, logger.Named("capture"))
	if err != nil {
		return err
	}
	w := watcher.New(publisher, clock, iduuid.NewUUIDGenerator(), metrics.NewWatcherCollector(), logger.Named("watcher"))
	go func() {
		if err := listener.Receive(ctx, w.HandleBatch); err != nil && ctx.Err() == nil {
			logger.Error("change capture stopped", zap.Error(err))
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := listener.Close(closeCtx); err != nil {
			logger.Warn("capture listener close failed", zap.Error(err))
		}
	}()
	return nil
}
