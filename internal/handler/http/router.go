package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/mongomart/internal/service"
	"github.com/utafrali/mongomart/pkg/health"
	"github.com/utafrali/mongomart/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the HTTP layer.
const ServiceName = "catalog-service"

// RouterOptions carries the optional pieces of the middleware stack. Nil
// fields are left out.
type RouterOptions struct {
	CORS          middleware.CORSConfig
	Metrics       *middleware.HTTPMetrics
	Gatherer      prometheus.Gatherer
	ReviewLimiter *middleware.RateLimiter
	Tracing       bool
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalogService *service.CatalogService,
	healthHandler *health.Handler,
	opts RouterOptions,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(opts.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	if opts.Tracing {
		r.Use(middleware.Tracing(ServiceName))
	}
	r.Use(middleware.RequestLogger(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Handler)
	}

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// Catalog API endpoints
	h := NewCatalogHandler(catalogService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/categories", h.ListCategories)
		r.Get("/items", h.ListItems)
		r.Get("/items/{itemId}", h.GetItem)
		r.Get("/search", h.Search)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			if opts.ReviewLimiter != nil {
				r.Use(opts.ReviewLimiter.Handler)
			}
			r.Post("/items/{itemId}/reviews", h.AddReview)
		})
	})

	return r
}
