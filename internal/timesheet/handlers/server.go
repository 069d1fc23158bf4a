package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/timetrack/internal/timesheet/auth"
	"github.com/gartstein/timetrack/internal/timesheet/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server wraps the HTTP server serving the JSON API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer wires the handler into a router and prepares the server.
func NewServer(port int, handler *Handler, jwtSecret string, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      NewRouter(handler, jwtSecret),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.Named("http_server"),
	}
}

// NewRouter builds the route tree: a public login and health check,
// authenticated entry/stats routes, and admin-gated company and payroll
// routes.
func NewRouter(h *Handler, jwtSecret string) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Post("/v1/auth/login", h.Login)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))

		r.Post("/v1/entries", h.SubmitEntry)
		r.Get("/v1/entries", h.ListEntries)
		r.Get("/v1/entries/{entryID}", h.GetEntry)
		r.Patch("/v1/entries/{entryID}", h.UpdateEntry)
		r.Delete("/v1/entries/{entryID}", h.DeleteEntry)
		r.Post("/v1/entries/{entryID}/submit", h.SubmitDraft)
		r.Post("/v1/entries/{entryID}/unsubmit", h.UnsubmitEntry)
		r.Post("/v1/entries/{entryID}/resubmit", h.ResubmitEntry)
		r.Post("/v1/entries/{entryID}/approve", h.ApproveEntry)
		r.Post("/v1/entries/{entryID}/reject", h.RejectEntry)
		r.Get("/v1/stats/{userID}", h.GetStats)
		r.Get("/v1/companies/{companyID}", h.GetCompany)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleManager, models.RoleAdmin, models.RoleSuperAdmin))
			r.Get("/v1/approvals/pending", h.PendingApprovals)
			r.Post("/v1/entries/batch-approve", h.BatchApprove)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
			r.Post("/v1/entries/{entryID}/restore", h.RestoreEntry)
			r.Post("/v1/entries/{entryID}/unapprove", h.UnapproveEntry)
			r.Patch("/v1/companies/{companyID}", h.UpdateCompany)
			r.Get("/v1/export/payroll", h.ExportPayroll)
		})
	})

	return router
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
