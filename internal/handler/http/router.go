package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skillexchange/exchange-service/internal/auth"
	"github.com/skillexchange/exchange-service/internal/service"
	"github.com/skillexchange/exchange-service/pkg/health"
	"github.com/skillexchange/exchange-service/pkg/middleware"
)

// NewRouter creates a chi router with all exchange service routes registered.
func NewRouter(
	exchangeService *service.ExchangeService,
	listingService *service.ListingService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("exchange"))
	r.Use(middleware.Tracing("exchange"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Role:   claims.Role,
		}, nil
	}

	exchangeHandler := NewExchangeHandler(exchangeService, logger)
	listingHandler := NewListingHandler(listingService, logger)

	r.Route("/api/v1/exchanges", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/", exchangeHandler.CreateExchange)
		r.Get("/", exchangeHandler.ListMyExchanges)
		r.Post("/{id}/respond", exchangeHandler.Respond)
		r.Post("/{id}/complete", exchangeHandler.Complete)
		r.Post("/{id}/ratings", exchangeHandler.Rate)
	})

	r.Route("/api/v1/listings", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/", listingHandler.CreateListing)
		r.Get("/", listingHandler.BrowseListings)
		r.Get("/mine", listingHandler.MyListings)
		r.Get("/{id}", listingHandler.GetListing)
	})

	// Rating summaries are public.
	r.Get("/api/v1/users/{id}/ratings/summary", exchangeHandler.RatingSummary)

	return r
}
