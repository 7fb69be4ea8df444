package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/config"
	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/libs/kafkax"
	otelx "github.com/slotbook/slotbook/libs/otel"
	"github.com/slotbook/slotbook/libs/outbox"
	"github.com/slotbook/slotbook/libs/runtime"
	"github.com/slotbook/slotbook/services/business-service/internal/catalog"
	"github.com/slotbook/slotbook/services/business-service/internal/handlers"
	"github.com/slotbook/slotbook/services/business-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	service := config.String("SERVICE_NAME", "business-service")
	logger := runtime.NewLogger(service)
	if err := run(logger, service); err != nil {
		logger.Error("business-service exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, service string) error {
	port, err := config.Port("PORT", "8082")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		return err
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		checks  []runtime.ReadyCheck
		store   catalog.Store
		brokers = config.String("KAFKA_BROKERS", "")
	)
	switch driver := config.String("STORAGE_DRIVER", "postgres"); driver {
	case "memory":
		logger.Warn("using in-memory storage; catalog events are not published")
		store = storage.NewMemory()
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return err
		}
		pool, err := db.Open(ctx, dbURL, db.PoolOptions{
			MaxConns:         int32(config.Int("DB_MAX_CONNS", 10)),
			AppName:          service,
			StatementTimeout: config.Duration("DB_STATEMENT_TIMEOUT", 5*time.Second),
		})
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()
		applied, err := db.Migrate(ctx, pool, storage.Migrations(), service)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "files", applied)
		}
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		outboxRepo := outbox.NewRepository()
		store = storage.NewRepository(pool, outboxRepo)

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	c := catalog.New(store)

	grpcErr := make(chan error, 1)
	go func() {
		err := serveGRPC(ctx, logger, ":"+grpcPort, c)
		if err != nil {
			stop()
		}
		grpcErr <- err
	}()

	verifier := auth.Verifier{Secret: config.String("JWT_SECRET", "dev-secret")}
	if url := config.String("JWKS_URL", ""); url != "" {
		verifier.JWKS = auth.NewJWKSClient(url, config.Duration("JWKS_CACHE_TTL", 5*time.Minute))
	}

	mux := runtime.NewBaseMux(checks...)
	mux.Handle("/api/", handlers.New(c, logger).Routes(verifier))

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicyFromList(config.String("CORS_ALLOWED_ORIGINS", ""))),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "business"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := runtime.Serve(ctx, srv, logger); err != nil {
		stop()
		<-grpcErr
		return err
	}
	return <-grpcErr
}
