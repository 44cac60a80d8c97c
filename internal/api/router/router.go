package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/momentworks/consultbook/internal/bookings"
	"github.com/momentworks/consultbook/internal/cms"
	"github.com/momentworks/consultbook/internal/consultants"
	httpmiddleware "github.com/momentworks/consultbook/internal/http/middleware"
	"github.com/momentworks/consultbook/internal/payments"
	"github.com/momentworks/consultbook/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Bookings           *bookings.Handler
	Consultants        *consultants.Handler
	StripeWebhook      *payments.StripeWebhookHandler
	CMS                *cms.Handler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// BookingLimiter throttles booking intake per client IP when set.
	BookingLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.StripeWebhook != nil {
		r.Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Compress(5))
		if cfg.Bookings != nil {
			if cfg.BookingLimiter != nil {
				api.With(httpmiddleware.RateLimit(cfg.BookingLimiter)).Post("/bookings", cfg.Bookings.Create)
			} else {
				api.Post("/bookings", cfg.Bookings.Create)
			}
		}
		if cfg.Consultants != nil {
			api.Get("/consultants", cfg.Consultants.List)
			api.Get("/consultants/{id}", cfg.Consultants.Get)
		}
		if cfg.CMS != nil {
			api.Get("/blogs", cfg.CMS.ListBlogs)
			api.Get("/blogs/recent", cfg.CMS.RecentBlogs)
			api.Get("/blogs/{id}", cfg.CMS.GetBlog)
			api.Get("/categories", cfg.CMS.ListCategories)
			api.Get("/categories/{id}/blogs", cfg.CMS.CategoryBlogs)
		}
	})

	// Operator routes exist only when a signing secret is configured.
	if cfg.AdminAuthSecret != "" && cfg.Bookings != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/bookings", cfg.Bookings.List)
			admin.Get("/bookings/{id}", cfg.Bookings.Get)
			admin.Post("/bookings/{id}/resend-confirmation", cfg.Bookings.ResendConfirmation)
		})
	}

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
