package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Corewavemedia/Dustout-sub001/internal/config"
	"github.com/Corewavemedia/Dustout-sub001/internal/handlers"
	"github.com/Corewavemedia/Dustout-sub001/internal/middleware"
)

// Handlers bundles the constructed handler groups wired into the router.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Bookings      *handlers.BookingHandler
	AdminBookings *handlers.AdminBookingHandler
	Services      *handlers.ServiceHandler
	Staff         *handlers.StaffHandler
	Plans         *handlers.PlanHandler
	Subscriptions *handlers.SubscriptionHandler
	AdminSubs     *handlers.AdminSubscriptionHandler
	Checkout      *handlers.CheckoutHandler
	Webhook       *handlers.WebhookHandler
	Calendar      *handlers.CalendarHandler
	Analytics     *handlers.AnalyticsHandler
}

// Server wraps an http.Server with convenience helpers for startup/shutdown.
type Server struct {
	httpServer *http.Server
}

// New constructs the HTTP server: common middleware, public routes, the
// authenticated group and the admin group.
func New(cfg config.Config, auth *middleware.Authenticator, h Handlers) *Server {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	registry := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(registry)
	router.Use(metrics.Middleware())

	// Public surface: health, metrics, catalog reads, availability, and the
	// signed webhook.
	router.Get("/healthz", handlers.Health)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	h.Services.RegisterRoutes(router)
	h.Plans.RegisterRoutes(router)
	h.Calendar.RegisterRoutes(router)
	h.Webhook.RegisterRoutes(router)

	// Authenticated customer surface.
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)
		h.Auth.RegisterRoutes(r)
		h.Bookings.RegisterRoutes(r)
		h.Subscriptions.RegisterRoutes(r)
		h.Checkout.RegisterRoutes(r)
	})

	// Admin surface.
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		h.Auth.RegisterAdminRoutes(r)
		h.AdminBookings.RegisterRoutes(r)
		h.Services.RegisterAdminRoutes(r)
		h.Staff.RegisterRoutes(r)
		h.Plans.RegisterAdminRoutes(r)
		h.AdminSubs.RegisterRoutes(r)
		h.Calendar.RegisterAdminRoutes(r)
		h.Analytics.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
