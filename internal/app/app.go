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

	"github.com/utafrali/reviews/internal/command"
	"github.com/utafrali/reviews/internal/config"
	"github.com/utafrali/reviews/internal/event"
	handler "github.com/utafrali/reviews/internal/handler/http"
	"github.com/utafrali/reviews/internal/idempotency"
	"github.com/utafrali/reviews/internal/query"
	"github.com/utafrali/reviews/internal/repository/memory"
	"github.com/utafrali/reviews/internal/repository/postgres"
	"github.com/utafrali/reviews/migrations"
	"github.com/utafrali/reviews/pkg/database"
	"github.com/utafrali/reviews/pkg/health"
	pkgkafka "github.com/utafrali/reviews/pkg/kafka"
	"github.com/utafrali/reviews/pkg/rabbitmq"
	"github.com/utafrali/reviews/pkg/tracing"
)

// ServiceName identifies the service in logs, metrics, traces and events.
const ServiceName = "review-service"

// transport is an event transport that owns a broker connection.
type transport interface {
	event.Transport
	Ping(ctx context.Context) error
	Close() error
}

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	transport      transport
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Tracing.
	tracingCfg := tracing.DefaultConfig(ServiceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Insecure = cfg.OTELInsecure
	tracingCfg.Enabled = cfg.OTELEnabled
	shutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.tracerShutdown = shutdown

	healthHandler := health.NewHandler()

	// Review store.
	var repo seedableRepository
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		repo = memory.NewReviewRepository()
		logger.Warn("using in-memory review store; reviews are lost on restart")
	default:
		pool, err := a.connectPostgres(ctx)
		if err != nil {
			return err
		}
		a.pool = pool
		repo = postgres.NewReviewRepository(pool)
		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	}

	if cfg.SeedReviews {
		if err := Seed(ctx, repo, time.Now(), logger); err != nil {
			return fmt.Errorf("seed reviews: %w", err)
		}
	}

	// Event transport behind a circuit breaker.
	switch cfg.EventBus {
	case config.EventBusRabbitMQ:
		pub := rabbitmq.NewPublisher(rabbitmq.DefaultPublisherConfig(cfg.RabbitMQURL, cfg.RabbitMQExchange), logger)
		a.transport = pub
		logger.Info("rabbitmq publisher initialized", slog.String("exchange", cfg.RabbitMQExchange))
	default:
		a.transport = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	healthHandler.RegisterNonCritical(cfg.EventBus, a.transport.Ping)

	breakerCfg := event.DefaultBreakerConfig(cfg.EventBus)
	breakerCfg.Timeout = cfg.BreakerTimeout
	breakerCfg.MinRequests = cfg.BreakerMinRequests
	breakerCfg.FailureRatio = cfg.BreakerFailureRatio
	publisher := event.NewProducer(event.NewBreakerTransport(a.transport, breakerCfg, logger), logger)

	// Idempotency keys.
	var store idempotency.Store
	switch cfg.IdempotencyDriver {
	case config.IdempotencyDriverRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Host = cfg.RedisHost
		redisCfg.Port = cfg.RedisPort
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB
		client, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		redisStore := idempotency.NewRedisStore(client, cfg.IdempotencyTTL)
		store = redisStore
		healthHandler.RegisterNonCritical("redis", redisStore.Ping)
		logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))
	case config.IdempotencyDriverMemory:
		store = idempotency.NewMemoryStore(cfg.IdempotencyTTL)
	default:
		logger.Info("idempotency keys disabled")
	}

	// Build the dependency graph.
	pipeline := command.NewPipeline(command.NewCreateReviewHandler(repo, publisher, logger), store, logger)
	queries := query.NewService(repo, logger)

	router := handler.NewRouter(pipeline, queries, healthHandler, handler.Options{
		ServiceName:     ServiceName,
		JWTSecret:       cfg.JWTSecret,
		CreateRateLimit: cfg.CreateRateLimit,
		CreateBurst:     cfg.CreateBurst,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// connectPostgres opens the pool, applies migrations and exports pool metrics.
func (a *App) connectPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, logger := a.cfg, a.logger

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL
	pgCfg.MaxConns = cfg.DBMaxConns
	pgCfg.MinConns = cfg.DBMinConns
	pgCfg.MaxConnLifetime = time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute
	pgCfg.MaxConnIdleTime = time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	return pool, nil
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
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()

	a.logger.Info("application shutdown complete")
	return nil
}

// close releases whatever init managed to open.
func (a *App) close() {
	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			a.logger.Error("event transport close error", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
