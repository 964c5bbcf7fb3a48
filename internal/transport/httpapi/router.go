package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi/handler"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi/middleware"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger           *logger.Logger
	AllowedOrigins   []string
	AccountHandler   *handler.AccountHandler
	EntryHandler     *handler.EntryHandler
	ReportHandler    *handler.ReportHandler
	ReconcileHandler *handler.ReconcileHandler
	HealthHandler    *handler.HealthHandler
	JWTMiddleware    func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit())

	// Health check endpoints (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTMiddleware != nil {
			r.Use(cfg.JWTMiddleware)
		}

		if cfg.AccountHandler != nil {
			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", cfg.AccountHandler.CreateAccount)
				r.Get("/", cfg.AccountHandler.ListAccounts)
				r.Post("/bootstrap", cfg.AccountHandler.BootstrapChart)
				r.Get("/holds", cfg.AccountHandler.ListHolds)
				r.Get("/{id}", cfg.AccountHandler.GetAccount)
				r.Put("/{id}", cfg.AccountHandler.UpdateAccount)
				r.Post("/{id}/verify", cfg.AccountHandler.VerifyAccount)
				r.Delete("/{id}/hold", cfg.AccountHandler.ReleaseHold)
			})
		}

		if cfg.EntryHandler != nil {
			r.Route("/entries", func(r chi.Router) {
				r.Post("/", cfg.EntryHandler.CreateEntry)
				r.Get("/", cfg.EntryHandler.ListEntries)
				r.Get("/{id}", cfg.EntryHandler.GetEntry)
				r.Post("/{id}/post", cfg.EntryHandler.PostEntry)
			})
		}

		if cfg.ReportHandler != nil {
			r.Route("/reports", func(r chi.Router) {
				r.Get("/trial-balance", cfg.ReportHandler.GetTrialBalance)
				r.Get("/balance-sheet", cfg.ReportHandler.GetBalanceSheet)
				r.Get("/income-statement", cfg.ReportHandler.GetIncomeStatement)
				r.Get("/cash-flow", cfg.ReportHandler.GetCashFlowStatement)
			})
		}

		if cfg.ReconcileHandler != nil {
			r.Post("/reconcile", cfg.ReconcileHandler.Reconcile)
		}
	})

	return r
}
