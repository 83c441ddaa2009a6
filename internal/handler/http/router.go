package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront-cart/internal/event"
	"github.com/utafrali/storefront-cart/internal/service"
	"github.com/utafrali/storefront-cart/pkg/health"
	"github.com/utafrali/storefront-cart/pkg/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
	RequestTimeout time.Duration
	Heartbeat      time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all cart service routes registered.
func NewRouter(
	cartService *service.CartService,
	bus *event.Bus,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("cart"))
	r.Use(middleware.Tracing("cart"))
	r.Use(middleware.RequestLogger(logger))

	cartHandler := NewCartHandler(cartService, logger)
	eventsHandler := NewEventsHandler(bus, cfg.Heartbeat, logger)

	// The event stream must not be buffered by Compress or cut by Timeout.
	r.With(middleware.SessionIDFromHeader, middleware.NoStore).
		Get("/api/v1/cart/events", eventsHandler.Stream)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(chimw.Timeout(cfg.RequestTimeout))

		// Health check endpoints
		r.Get("/health/live", healthHandler.LivenessHandler())
		r.Get("/health/ready", healthHandler.ReadinessHandler())
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			promhttp.Handler().ServeHTTP(w, r)
		})

		// Pprof debug endpoints with IP allowlist.
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.SessionIDFromHeader)
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
			r.Use(middleware.NoStore)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)

				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{lineId}", cartHandler.SetQuantity)
				r.Delete("/items/{lineId}", cartHandler.RemoveItem)
				r.Post("/items/{lineId}/wishlist", cartHandler.ToggleWishlist)
			})

			r.Get("/wishlist", cartHandler.GetWishlist)
		})
	})

	return r
}
