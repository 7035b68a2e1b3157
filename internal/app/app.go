package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/mongomart/internal/config"
	"github.com/utafrali/mongomart/internal/domain"
	"github.com/utafrali/mongomart/internal/event"
	handler "github.com/utafrali/mongomart/internal/handler/http"
	"github.com/utafrali/mongomart/internal/seed"
	"github.com/utafrali/mongomart/internal/service"
	"github.com/utafrali/mongomart/internal/store"
	"github.com/utafrali/mongomart/internal/store/memory"
	"github.com/utafrali/mongomart/internal/store/mongodb"
	"github.com/utafrali/mongomart/pkg/database"
	"github.com/utafrali/mongomart/pkg/health"
	pkgkafka "github.com/utafrali/mongomart/pkg/kafka"
	"github.com/utafrali/mongomart/pkg/middleware"
	"github.com/utafrali/mongomart/pkg/tracing"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	mongoClient    *mongo.Client
	kafkaProducer  *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
// On error, anything already opened is closed before returning.
func NewApp(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.release(context.Background())
		}
	}()

	// Tracing and slow query logging.
	a.tracerShutdown, err = tracing.InitTracer(ctx, cfg.TracingConfig(handler.ServiceName, version))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	healthHandler := health.NewHandler()

	// Catalog store based on configuration.
	var catalogStore store.CatalogStore
	switch cfg.Store {
	case config.StoreMemory:
		var items []domain.Item
		if cfg.SeedFile != "" {
			items, err = seed.LoadFile(cfg.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("load seed file: %w", err)
			}
		}
		catalogStore = memory.New(items...)
		logger.Info("in-memory catalog store initialized",
			slog.Int("item_count", len(items)),
		)
	default:
		var dbMetrics *database.Metrics
		dbMetrics, err = database.RegisterMetrics(reg, handler.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("register mongodb metrics: %w", err)
		}
		a.mongoClient, err = database.NewMongoClient(ctx, cfg.MongoConfig(handler.ServiceName), logger, dbMetrics.ClientOptions())
		if err != nil {
			return nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		catalogStore = mongodb.NewStore(a.mongoClient.Database(cfg.MongoDatabase))
		healthHandler.RegisterCritical("mongodb", database.PingMongo(a.mongoClient))
		logger.Info("mongodb catalog store initialized",
			slog.String("database", cfg.MongoDatabase),
		)
	}

	// Review events.
	var publisher service.ReviewPublisher = event.Nop{}
	if cfg.KafkaEnabled {
		pm := pkgkafka.NewProducerMetrics()
		if err := reg.Register(pm); err != nil {
			return nil, fmt.Errorf("register kafka metrics: %w", err)
		}
		a.kafkaProducer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), pm, logger)
		publisher = event.NewProducer(a.kafkaProducer, logger)
		healthHandler.RegisterNonCritical("kafka", a.kafkaProducer.Ping)
		logger.Info("kafka producer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
		)
	}

	healthHandler.SetTimeout(3 * time.Second)
	logger.Info("readiness checks registered",
		slog.Any("checks", healthHandler.Names()),
	)

	// Build the service layer.
	catalogService := service.NewCatalogService(catalogStore, publisher, cfg.ItemsPerPage, logger)

	httpMetrics, err := middleware.RegisterHTTPMetrics(reg, handler.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}
	a.limiter = middleware.NewRateLimiter(cfg.ReviewRateLimitRPS, cfg.ReviewRateLimitBurst, logger)
	a.limiter.SetTrustProxyHeaders(cfg.ReviewRateLimitTrustProxy)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	// HTTP router.
	router := handler.NewRouter(catalogService, healthHandler, handler.RouterOptions{
		CORS:          cors,
		Metrics:       httpMetrics,
		Gatherer:      reg,
		ReviewLimiter: a.limiter,
		Tracing:       cfg.OTELEnabled,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	errs = append(errs, a.release(shutdownCtx)...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release closes everything except the HTTP server.
func (a *App) release(ctx context.Context) []error {
	var errs []error

	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.logger.Error("mongodb disconnect error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errs
}
