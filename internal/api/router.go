package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mmynk/tontine/internal/auth"
	"github.com/mmynk/tontine/internal/metrics"
	"github.com/mmynk/tontine/internal/middleware"
)

// RouterConfig carries the cross-cutting pieces of the router.
type RouterConfig struct {
	JWT            *auth.JWTManager
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Limiter        *middleware.RateLimiter
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter returns the HTTP handler for the whole API.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(cfg.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", h.Health)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.Limiter))

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.RequireAuth(cfg.JWT))

			pr.Post("/logout", h.Logout)
			pr.Get("/profile", h.Profile)
			pr.Get("/contacts", h.Contacts)
			pr.Get("/dashboard", h.Dashboard)

			pr.Post("/tontines", h.CreateTontine)
			pr.Get("/tontines", h.ListTontines)
			pr.Route("/tontines/{id}", func(tr chi.Router) {
				tr.Get("/", h.GetTontine)
				tr.Delete("/", h.DeleteTontine)

				tr.Post("/add-member", h.AddMember)
				tr.Delete("/members/{userID}", h.RemoveMember)
				tr.Put("/transfer-admin", h.TransferAdmin)
				tr.Post("/shuffle", h.Shuffle)
				tr.Put("/reorder", h.Reorder)

				tr.Post("/start", h.Start)
				tr.Post("/close-round", h.CloseRound)
				tr.Post("/cancel", h.Cancel)

				tr.Post("/record-payment", h.RecordPayment)
				tr.Post("/apply-penalty", h.ApplyPenalty)

				tr.Get("/payment-status", h.PaymentStatus)
				tr.Get("/debtors", h.Debtors)
				tr.Get("/history", h.History)
			})

			pr.Post("/penalties/{id}/pay", h.PayPenalty)
		})
	})

	return r
}
