package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tiergate/internal/platform/config"
	"tiergate/internal/platform/database"
	"tiergate/internal/platform/health"
	"tiergate/internal/platform/redis"
	"tiergate/internal/tier/models"
	"tiergate/internal/tier/source"
)

const poolStatsInterval = 15 * time.Second

type sourceDeps struct {
	registry prometheus.Registerer
	health   *health.Handler
	logger   *slog.Logger
}

// buildSource opens the lookup source named by cfg.Lookup.Source. The
// returned func closes whatever connections the source holds.
func buildSource(ctx context.Context, cfg config.Server, deps sourceDeps) (source.Source, func(), error) {
	noop := func() {}
	lookup := cfg.Lookup

	switch lookup.Source {
	case config.SourceHTTP:
		return source.NewHTTPSource(source.HTTPSourceConfig{
			BaseURL:     lookup.URL,
			FeaturePath: lookup.FeaturePath,
			Timeout:     lookup.Timeout,
		}), noop, nil

	case config.SourcePostgres:
		pool, err := database.New(ctx, database.DefaultConfig(lookup.URL))
		if err != nil {
			return nil, nil, fmt.Errorf("postgres lookup source: %w", err)
		}
		deps.health.RegisterCheck("postgres", pool.Health)
		return source.NewPostgresSource(pool.DB(), lookup.Timeout), func() {
			if err := pool.Close(); err != nil {
				deps.logger.Warn("close postgres pool", "error", err)
			}
		}, nil

	case config.SourceRedis:
		client, err := redis.New(ctx, redis.Config{
			URL:          lookup.URL,
			ReadTimeout:  lookup.Timeout,
			WriteTimeout: lookup.Timeout,
		}, redis.NewPoolMetrics(deps.registry))
		if err != nil {
			return nil, nil, fmt.Errorf("redis lookup source: %w", err)
		}
		deps.health.RegisterCheck("redis", client.Health)
		statsCtx, stopStats := context.WithCancel(context.Background())
		go client.RunPoolStats(statsCtx, poolStatsInterval)
		return source.NewRedisSource(client), func() {
			stopStats()
			if err := client.Close(); err != nil {
				deps.logger.Warn("close redis client", "error", err)
			}
		}, nil

	case config.SourceMemory:
		entries := make(map[models.CacheKey]string, len(lookup.Entries))
		for _, e := range lookup.Entries {
			entries[models.NewCacheKey(e.PartnerID, e.Service)] = e.EndpointURI
		}
		return source.NewMemorySource(entries), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown lookup source %q", lookup.Source)
	}
}
