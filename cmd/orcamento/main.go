package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"orcamento/internal/amqp"
	"orcamento/internal/cache"
	"orcamento/internal/cli"
	apphttp "orcamento/internal/http"
	"orcamento/internal/log"
	"orcamento/internal/metrics"
	"orcamento/internal/reports"
	"orcamento/internal/visualizador"
	"orcamento/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger, logCloser := cli.SetupLogger(cfg, log.ComponentApp)
	defer logCloser.Close()

	startCtx, startCancel := context.WithTimeout(context.Background(), time.Minute)
	repo := cli.OpenRepository(startCtx, logger, cfg)
	startCancel()
	defer repo.Close()

	svc := reports.NewService(repo.Repository, logger, cfg.CacheTTL)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	caches := cache.NewManager()
	for _, c := range svc.Caches() {
		caches.Register(c)
	}
	caches.OnClean(func(cleaned int) {
		logger.WithComponent(log.ComponentCache).Debug("Expired cache entries removed", "count", cleaned)
	})
	caches.StartCleanup(cfg.CacheTTL)

	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	if err := svc.Refresh(warmCtx); err != nil {
		logger.Warn("Initial cache warm-up failed", log.FieldError, err)
	}
	warmCancel()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Reports:            svc,
		Browser:            visualizador.New(repo.Repository, logger),
		Metrics:            m,
		CacheManager:       caches,
		Logger:             logger,
		QueryTimeout:       cfg.QueryTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, load notifications disabled", log.FieldError, err)
		} else {
			amqpClient = c
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			amqpClient.Close()
		}
	})

	if amqpClient != nil {
		w := worker.NewCargaWorker(svc, caches, m, logger)
		go func() {
			if err := w.Run(ctx, amqpClient); err != nil {
				logger.Error("Load notification worker failed", log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting orcamento server",
		"port", cfg.Port,
		"backend", repo.Type.String(),
		"metrics", m != nil,
		"amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
