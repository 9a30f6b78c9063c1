package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/curatedcode/toshi-sub000/internal/auth"
	"github.com/curatedcode/toshi-sub000/internal/config"
	"github.com/curatedcode/toshi-sub000/internal/event"
	handler "github.com/curatedcode/toshi-sub000/internal/handler/http"
	"github.com/curatedcode/toshi-sub000/internal/repository/postgres"
	redisrepo "github.com/curatedcode/toshi-sub000/internal/repository/redis"
	"github.com/curatedcode/toshi-sub000/internal/service"
	"github.com/curatedcode/toshi-sub000/migrations"
	"github.com/curatedcode/toshi-sub000/pkg/database"
	"github.com/curatedcode/toshi-sub000/pkg/health"
	pkgkafka "github.com/curatedcode/toshi-sub000/pkg/kafka"
	"github.com/curatedcode/toshi-sub000/pkg/middleware"
	"github.com/curatedcode/toshi-sub000/pkg/tracing"
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	rdb             *redis.Client
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	shutdownTracing func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Tracing.
	shutdownTracing, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  "storefront",
		OTLPEndpoint: cfg.TracingEndpoint,
		Enabled:      cfg.TracingEnabled,
		SampleRate:   cfg.TracingSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// PostgreSQL.
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	prometheus.MustRegister(database.NewPoolStatsCollector(pool))

	// Redis.
	rdb, err := database.NewRedisClient(ctx, cfg.RedisConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisConfig().Addr()))

	// Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	productRepo := postgres.NewProductRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	cartTTL := time.Duration(cfg.CartTTL) * time.Hour
	cartRepo := redisrepo.NewCartRepository(rdb, cartTTL)

	eventProducer := event.NewProducer(producer, logger)

	jwtManager := auth.NewJWTManager(
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.RefreshTokenExpiry)*time.Hour,
	)

	svcs := handler.Services{
		Catalog:  service.NewCatalogService(productRepo, categoryRepo, reviewRepo, eventProducer, logger),
		Reviews:  service.NewReviewService(reviewRepo, productRepo, eventProducer, logger),
		Cart:     service.NewCartService(cartRepo, productRepo, eventProducer, logger, cartTTL),
		Checkout: service.NewCheckoutService(cartRepo, orderRepo, eventProducer, logger, cfg.TaxRateDecimal()),
		Orders:   service.NewOrderService(orderRepo, logger),
		Users:    service.NewUserService(userRepo, jwtManager, logger),
	}

	// Health checks. Kafka is non-critical: event publishing is best effort,
	// so a broker outage degrades the service without failing readiness.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		conn, err := kafka.DialContext(ctx, "tcp", cfg.KafkaBrokers[0])
		if err != nil {
			return err
		}
		return conn.Close()
	})

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	router := handler.NewRouter(svcs, jwtManager, healthHandler, corsConfig, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		rdb:             rdb,
		producer:        producer,
		httpServer:      httpServer,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if err := a.shutdownTracing(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
