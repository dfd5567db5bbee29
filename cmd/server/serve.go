package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tiergate/internal/gateway"
	"tiergate/internal/platform/config"
	"tiergate/internal/platform/health"
	"tiergate/internal/platform/logger"
	platformmetrics "tiergate/internal/platform/metrics"
	"tiergate/internal/tier/cache"
	tiermetrics "tiergate/internal/tier/metrics"
	"tiergate/internal/tier/models"
	"tiergate/internal/tier/rewrite"
	"tiergate/internal/tier/service"
	"tiergate/internal/tier/tracer"
)

const shutdownTimeout = 10 * time.Second

// runServe wires the gateway and blocks until a shutdown signal arrives.
// Any configuration defect is returned before the listener opens.
func runServe(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signalContext(parent)
	defer stop()

	log.Info("initializing tiergate",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"lookup_source", cfg.Lookup.Source,
		"cache_size", cfg.CacheSize,
		"services", len(cfg.Services),
	)

	handler, cleanup, err := buildHandler(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// buildHandler composes cache, source, resolver, rewriter and router.
// cleanup releases source connections.
func buildHandler(ctx context.Context, cfg config.Server, log *slog.Logger) (http.Handler, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tierMetrics := tiermetrics.New(reg)
	httpMetrics := platformmetrics.New(reg)
	tierCache, err := cache.New(cfg.CacheSize, cache.WithMetrics(tierMetrics))
	if err != nil {
		return nil, nil, err
	}
	healthHandler := health.New(cfg.Environment,
		health.WithSource(cfg.Lookup.Source),
		health.WithCache(tierCache),
	)

	src, closeSource, err := buildSource(ctx, cfg, sourceDeps{
		registry: reg,
		health:   healthHandler,
		logger:   log,
	})
	if err != nil {
		return nil, nil, err
	}

	resolverOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(tierMetrics),
		service.WithTracer(tracer.NewOTel(nil)),
	}
	if cfg.Lookup.SingleFlight {
		resolverOpts = append(resolverOpts, service.WithSingleFlight())
	}
	resolver := service.New(tierCache, src, resolverOpts...)

	rewriter, err := rewrite.New(resolver, rewrite.Config{
		Services:         serviceDefaults(cfg.Services),
		DefaultPartnerID: cfg.DefaultPartnerID,
		PartnerHeader:    cfg.PartnerHeader,
	}, rewrite.WithLogger(log), rewrite.WithMetrics(tierMetrics))
	if err != nil {
		closeSource()
		return nil, nil, err
	}

	router, err := gateway.NewRouter(gateway.Config{
		Rewriter:       rewriter,
		Cache:          tierCache,
		CacheHeader:    cfg.CacheHeader,
		Health:         healthHandler,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Metrics:        httpMetrics,
		Logger:         log,
	})
	if err != nil {
		closeSource()
		return nil, nil, err
	}
	return router, closeSource, nil
}

func serviceDefaults(services []config.Service) []models.ServiceDefault {
	out := make([]models.ServiceDefault, 0, len(services))
	for _, svc := range services {
		out = append(out, models.ServiceDefault{Name: svc.Name, DefaultURI: svc.DefaultURI})
	}
	return out
}
