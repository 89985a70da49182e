package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finform/internal/amqp"
	"finform/internal/backend"
	"finform/internal/cache"
	"finform/internal/cli"
	"finform/internal/config"
	apphttp "finform/internal/http"
	"finform/internal/log"
	"finform/internal/metrics"
	"finform/internal/options"
)

const (
	shutdownTimeout  = 30 * time.Second
	cacheCleanEvery  = 5 * time.Minute
	amqpConnectTries = 5
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	m := metrics.New()
	loader := options.NewLoader(result.Backend.Options,
		options.WithLogger(logger),
		options.WithMetrics(m))
	caches := cache.NewManager(logger)

	deps := apphttp.Dependencies{
		Loader:  loader,
		Sink:    result.Backend.Sink,
		Lister:  result.Backend.Lister,
		Pinger:  result.Backend.Pinger,
		Metrics: m,
		Logger:  logger,
		Caches:  caches,
	}

	if cfg.AMQPURL != "" {
		pub := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, amqp.WithLogger(logger))
		if err := pub.Connect(ctx, amqpConnectTries); err != nil {
			// Publishing reconnects on demand; the form works without the broker.
			logger.Warn("AMQP broker unavailable at startup", log.FieldError, err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("AMQP close failed", log.FieldError, err)
			}
		}()
		deps.Publisher = pub
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps, apphttp.Settings{
		ResetOnSuccess:       cfg.ResetOnSuccess,
		RejectBlankNewValues: cfg.RejectBlankNewValues,
		SessionTTL:           cfg.SessionTTL,
		MaxSessions:          cfg.MaxSessions,
		APITimeout:           cfg.APITimeout,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "addr", srv.Addr, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return caches.Run(gctx, cacheCleanEvery)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})
	return g.Wait()
}
