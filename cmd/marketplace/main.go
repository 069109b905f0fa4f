package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/silverbars/marketplace/params"
	"github.com/silverbars/marketplace/pkg/api"
	"github.com/silverbars/marketplace/pkg/app/core/orderbook"
	"github.com/silverbars/marketplace/pkg/app/marketplace"
	"github.com/silverbars/marketplace/pkg/events"
	"github.com/silverbars/marketplace/pkg/metrics"
	"github.com/silverbars/marketplace/pkg/storage"
	"github.com/silverbars/marketplace/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Log.File != "" {
		logger, err = util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	} else {
		logger, err = util.NewLogger(cfg.Log.Level)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "level", cfg.Log.Level)

	if err := run(cfg, sugar); err != nil {
		sugar.Fatalw("marketplace_failed", "err", err)
	}
}

func run(cfg params.Config, sugar *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()
	sugar.Infow("order_store_ready", "backend", cfg.Store.Backend)

	m := metrics.New(sugar)

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, sugar)
		kp.OnDrop = func(events.Event) { m.EventsDropped.Inc() }
		publisher = kp
		sugar.Infow("order_events_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			sugar.Warnw("order_events_close_failed", "err", err)
		}
	}()

	app := marketplace.NewApp(store,
		marketplace.WithLogger(sugar),
		marketplace.WithMetrics(m),
		marketplace.WithPublisher(publisher),
	)

	apiServer := api.NewServer(app, api.Config{AllowedOrigins: cfg.API.AllowedOrigins}, m, sugar)
	app.OnChange = apiServer.BroadcastSummary
	go apiServer.Hub().Run(ctx)

	// Enable with: ENABLE_ORDERGEN=true
	if cfg.OrderGen.Enabled {
		feederCfg := marketplace.DefaultFeederConfig()
		feederCfg.Interval = cfg.OrderGen.Interval
		feederCfg.BatchSize = cfg.OrderGen.BatchSize
		feederCfg.NumUsers = cfg.OrderGen.NumUsers
		cancelFeeder := marketplace.StartFeeder(ctx, app, feederCfg, sugar)
		defer cancelFeeder()
	}

	srv := &http.Server{Addr: cfg.API.Addr, Handler: apiServer.Handler()}
	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	sugar.Infow("shutting_down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func openStore(cfg params.Store) (orderbook.Store, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		return orderbook.NewMemoryStore(), func() {}, nil
	case "pebble":
		ps, err := storage.NewInMemoryPebbleStore()
		if err != nil {
			return nil, nil, err
		}
		return ps, func() { _ = ps.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
	}
}
