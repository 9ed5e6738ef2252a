// Package ui renders a minimal server-side HTML dashboard over the report
// service. Chart-heavy presentation lives in external tooling; this view
// covers the headline numbers, the client-type split, and the leaderboard.
package ui

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	gomponents "maragu.dev/gomponents"

	"usage-report/internal/api"
)

// Handler serves the HTML dashboard.
type Handler struct {
	reports api.ReportService
	logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(reports api.ReportService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reports: reports, logger: logger}
}

// Routes mounts the dashboard endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Dashboard)
	r.Post("/refresh", h.Refresh)
	return r
}

// Dashboard renders the report page. Any failure renders the error page with
// the likely-causes checklist instead; the page itself never 500s blank.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	overall, err := h.reports.Overall(ctx)
	if err != nil {
		h.renderError(w, err)
		return
	}
	clientTypes, err := h.reports.ClientTypes(ctx)
	if err != nil {
		h.renderError(w, err)
		return
	}
	topUsers, err := h.reports.TopUsers(ctx, 0)
	if err != nil {
		h.renderError(w, err)
		return
	}

	renderHTML(w, http.StatusOK, dashboardPage(overall, clientTypes, topUsers))
}

// Refresh drops the caches and redirects back to the dashboard.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.reports.Refresh()
	http.Redirect(w, r, "/ui", http.StatusSeeOther)
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	h.logger.Error("dashboard render failed", "error", err)
	renderHTML(w, http.StatusOK, errorPage(err))
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}
