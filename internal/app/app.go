package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront-cart/internal/config"
	"github.com/utafrali/storefront-cart/internal/event"
	handler "github.com/utafrali/storefront-cart/internal/handler/http"
	redisrepo "github.com/utafrali/storefront-cart/internal/repository/redis"
	"github.com/utafrali/storefront-cart/internal/service"
	"github.com/utafrali/storefront-cart/pkg/database"
	"github.com/utafrali/storefront-cart/pkg/health"
	pkgkafka "github.com/utafrali/storefront-cart/pkg/kafka"
	"github.com/utafrali/storefront-cart/pkg/middleware"
	"github.com/utafrali/storefront-cart/pkg/tracing"
)

// App wires together all dependencies and runs the cart service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	watcher        *event.StorageWatcher
	httpServer     *http.Server
	stopStreams    context.CancelFunc
	tracerShutdown func(context.Context) error
	shutdownOnce   sync.Once
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}
	logger = logger.With(slog.String("instance_id", instanceID))

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "cart",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		InstanceID:     instanceID,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize Redis client.
	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = cfg.RedisAddr
	redisCfg.Password = cfg.RedisPass
	redisCfg.DB = cfg.RedisDB
	redisCfg.PoolSize = cfg.RedisPoolSize

	rdb, err := database.NewRedisClient(ctx, redisCfg, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Change notification: Pub/Sub across instances, bus within this one.
	bus := event.NewBus(0)
	publisher := event.NewRedisPublisher(rdb, cfg.NotifyChannel)
	watcher := event.NewStorageWatcher(rdb, cfg.NotifyChannel, instanceID, bus, logger)
	broadcaster := event.NewBroadcaster(instanceID, bus, publisher, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", database.RedisChecker(rdb))

	// Initialize Kafka producer when domain events are enabled.
	var (
		producer *pkgkafka.Producer
		events   service.EventPublisher
	)
	if cfg.EventsEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := producer.Ping(ctx); err != nil {
			logger.Warn("kafka producer ping failed, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		breaker := pkgkafka.NewBreakerPublisher(producer, pkgkafka.DefaultBreakerConfig("cart-events"), logger)
		events = event.NewProducer(breaker, instanceID, logger)
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	// Build the dependency graph.
	store := redisrepo.NewStore(rdb, cfg.StoreKeyPrefix, cfg.CartTTLDuration())
	cartService := service.NewCartService(store, broadcaster, events, cfg.PricingPolicy(), cfg.DefaultMaxQuantity, logger)

	// HTTP router.
	router := handler.NewRouter(cartService, bus, healthHandler, logger, handler.RouterConfig{
		CORS:           middleware.DefaultCORSConfig(cfg.Environment, cfg.CORSOrigins),
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RequestTimeout: cfg.RequestTimeout,
		Heartbeat:      cfg.SSEHeartbeat,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	// Request contexts derive from streamCtx so Shutdown can end open event
	// streams instead of waiting them out.
	streamCtx, stopStreams := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		BaseContext:       func(net.Listener) context.Context { return streamCtx },
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		producer:       producer,
		watcher:        watcher,
		httpServer:     httpServer,
		stopStreams:    stopStreams,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the storage watcher and the HTTP server and blocks until the
// context is canceled or either of them fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	go func() {
		if err := a.watcher.Run(watchCtx); err != nil {
			errCh <- fmt.Errorf("storage watcher: %w", err)
		}
	}()

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed", slog.String("error", runErr.Error()))
	}

	stopWatch()
	if err := a.Shutdown(); err != nil {
		return err
	}
	return runErr
}

// Shutdown gracefully stops all components. It is safe to call more than once.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application...")

		// Graceful HTTP server shutdown with a 10-second deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		a.stopStreams()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		}

		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			}
		}

		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}

		if err := a.tracerShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}

		a.logger.Info("application shutdown complete")
	})
	return nil
}
