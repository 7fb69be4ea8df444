package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/slotbook/slotbook/libs/config"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/consumer"
	"github.com/slotbook/slotbook/services/booking-service/internal/policy"
	"github.com/slotbook/slotbook/services/booking-service/internal/scheduling"
)

// buildCatalog picks the business-service over gRPC when BUSINESS_GRPC_ADDR is set
// and the YAML file from CATALOG_FILE otherwise. With Redis available the lookups
// are cached and the returned evicter is non-nil.
func buildCatalog(logger *slog.Logger, rdb *redis.Client) (scheduling.Provider, consumer.Evicter, func(), error) {
	var (
		provider scheduling.Provider
		closeFn  = func() {}
	)
	switch {
	case config.String("BUSINESS_GRPC_ADDR", "") != "":
		addr := config.String("BUSINESS_GRPC_ADDR", "")
		p, conn, err := scheduling.NewGRPCProvider(addr)
		if err != nil {
			return nil, nil, closeFn, fmt.Errorf("dial business-service: %w", err)
		}
		provider, closeFn = p, func() { _ = conn.Close() }
		logger.Info("catalog lookups via business-service", "addr", addr)
	case config.String("CATALOG_FILE", "") != "":
		path := config.String("CATALOG_FILE", "")
		cf, err := scheduling.LoadCatalogFile(path)
		if err != nil {
			return nil, nil, closeFn, err
		}
		provider = scheduling.NewStaticProvider(cf)
		logger.Info("catalog loaded from file", "path", path, "businesses", len(cf.Businesses))
	default:
		return nil, nil, closeFn, fmt.Errorf("set BUSINESS_GRPC_ADDR or CATALOG_FILE")
	}

	if rdb == nil {
		return provider, nil, closeFn, nil
	}
	cached := scheduling.NewCachedProvider(provider, rdb, config.Duration("CATALOG_CACHE_TTL", 5*time.Minute), logger)
	return cached, cached, closeFn, nil
}

func noticeSource(p scheduling.Provider) policy.HoursSource {
	return scheduling.NoticeSource{Provider: p}
}

// publicRateLimit prefers the shared Redis window so limits hold across replicas.
func publicRateLimit(logger *slog.Logger, rdb *redis.Client) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:booking"))
		logger.Info("rate limiting enabled (redis)", "per_minute", limit)
		return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	}
	logger.Info("rate limiting enabled (in-memory)", "per_minute", limit)
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}
