package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cruiselens/payments-backend/internal/api/handlers"
	"github.com/cruiselens/payments-backend/internal/auth"
	"github.com/cruiselens/payments-backend/internal/config"
	"github.com/cruiselens/payments-backend/internal/metrics"
	"github.com/cruiselens/payments-backend/internal/middleware"
	"github.com/cruiselens/payments-backend/internal/services"
)

type RouterDeps struct {
	Cfg      config.Config
	Payments *handlers.PaymentsHandler
	Admin    *handlers.AdminHandler
	Tokens   *auth.TokenManager
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(chimw.Timeout(d.Cfg.StoreTimeout + 5*time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Post("/api/payu-initiate", d.Payments.Initiate)
	r.Post(services.CallbackPath, d.Payments.Callback)
	r.Get("/api/payment-details", d.Payments.Details)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", d.Admin.Login)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Tokens), middleware.RequireRole(services.RoleAdmin))
			r.Get("/applications", d.Admin.ListApplications)
			r.Get("/applications/{txnid}/audit", d.Admin.History)
		})
	})

	return r
}
