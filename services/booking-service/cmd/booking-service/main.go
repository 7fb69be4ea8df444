package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/config"
	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/libs/kafkax"
	otelx "github.com/slotbook/slotbook/libs/otel"
	"github.com/slotbook/slotbook/libs/outbox"
	"github.com/slotbook/slotbook/libs/runtime"
	"github.com/slotbook/slotbook/services/booking-service/internal/blocks"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/consumer"
	"github.com/slotbook/slotbook/services/booking-service/internal/handlers"
	"github.com/slotbook/slotbook/services/booking-service/internal/inbox"
	"github.com/slotbook/slotbook/services/booking-service/internal/metrics"
	"github.com/slotbook/slotbook/services/booking-service/internal/policy"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage/memstore"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)
	if err := run(logger, service); err != nil {
		logger.Error("booking-service exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, service string) error {
	port, err := config.Port("PORT", "8083")
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
	metrics.Register()

	var checks []runtime.ReadyCheck
	brokers := config.String("KAFKA_BROKERS", "")

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	catalog, evicter, closeCatalog, err := buildCatalog(logger, rdb)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer closeCatalog()

	var (
		appts    booking.AppointmentStore
		blockDB  booking.BlockStore
		recorder inbox.Recorder
	)
	switch driver := config.String("STORAGE_DRIVER", "postgres"); driver {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		appts, blockDB = memstore.NewAppointments(), memstore.NewBlocks()
		if rdb != nil {
			recorder = inbox.NewRedisInbox(rdb, config.Duration("INBOX_TTL", 24*time.Hour))
		}
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
		appts = storage.NewAppointmentRepository(pool, outboxRepo)
		blockDB = storage.NewBlockRepository(pool)
		recorder = inbox.NewRepository(pool)

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
		if evicter != nil {
			c := consumer.New(logger, recorder, consumer.Config{
				Brokers: brokers,
				GroupID: config.String("KAFKA_GROUP_ID", service),
				Topic:   config.String("KAFKA_CATALOG_TOPIC", consumer.TopicCatalogUpdated),
			}, consumer.CatalogInvalidation(evicter))
			go c.Run(ctx)
		}
	}

	bookingSvc := booking.NewService(appts, blockDB, catalog)
	policyProvider := policy.NewBusinessPolicyProvider(logger,
		time.Duration(config.Int("CHANGE_NOTICE_HOURS", 0))*time.Hour,
		noticeSource(catalog),
	)
	verifier := auth.Verifier{Secret: config.String("JWT_SECRET", "dev-secret")}
	if url := config.String("JWKS_URL", ""); url != "" {
		verifier.JWKS = auth.NewJWKSClient(url, config.Duration("JWKS_CACHE_TTL", 5*time.Minute))
	}

	api := handlers.NewRouter(
		handlers.NewBookingHandler(bookingSvc, policyProvider, logger),
		handlers.NewBlockHandler(blocks.NewService(blockDB, bookingSvc), bookingSvc, logger),
		verifier,
		publicRateLimit(logger, rdb),
	)

	mux := runtime.NewBaseMux(checks...)
	mux.Handle("/api/", api)

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicyFromList(config.String("CORS_ALLOWED_ORIGINS", ""))),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "booking"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return runtime.Serve(ctx, srv, logger)
}
