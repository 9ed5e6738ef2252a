// Package api provides the HTTP handlers for the usage report REST API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"usage-report/internal/domain"
	"usage-report/internal/service/report"
)

// ReportService is the part of the report service the handlers use.
type ReportService interface {
	Overall(ctx context.Context) (*report.OverallMetrics, error)
	ClientTypes(ctx context.Context) ([]report.ClientTypeUsage, error)
	TopUsers(ctx context.Context, limit int) ([]report.UserUsage, error)
	Daily(ctx context.Context) ([]report.DailyUsage, error)
	DailyByClientType(ctx context.Context) ([]report.DailyClientUsage, error)
	CreditsByUser(ctx context.Context) ([]report.UserCredits, error)
	Tiers(ctx context.Context) ([]report.TierUsage, error)
	Engagement(ctx context.Context) ([]report.UserEngagement, error)
	Activity(ctx context.Context) ([]report.UserActivity, error)
	Sections() []report.Section
	Custom(ctx context.Context, name string) (*domain.ResultTable, error)
	Refresh()
}

// Handler serves the report API.
type Handler struct {
	reports ReportService
	logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(reports ReportService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reports: reports, logger: logger}
}

// Routes mounts the report endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/report", func(r chi.Router) {
		r.Get("/overall", h.Overall)
		r.Get("/client-types", h.ClientTypes)
		r.Get("/top-users", h.TopUsers)
		r.Get("/daily", h.Daily)
		r.Get("/daily-client-types", h.DailyByClientType)
		r.Get("/credits", h.CreditsByUser)
		r.Get("/tiers", h.Tiers)
		r.Get("/engagement", h.Engagement)
		r.Get("/activity", h.Activity)
		r.Get("/sections", h.ListSections)
		r.Get("/sections/{name}", h.CustomSection)
		r.Post("/refresh", h.Refresh)
	})
	return r
}

func (h *Handler) Overall(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.Overall(ctx)
	})
}

func (h *Handler) ClientTypes(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.ClientTypes(ctx)
	})
}

func (h *Handler) TopUsers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			h.writeError(w, r, domain.ErrValidation("limit must be an integer between 1 and 100"))
			return
		}
		limit = n
	}
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.TopUsers(ctx, limit)
	})
}

func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.Daily(ctx)
	})
}

func (h *Handler) DailyByClientType(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.DailyByClientType(ctx)
	})
}

func (h *Handler) CreditsByUser(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.CreditsByUser(ctx)
	})
}

func (h *Handler) Tiers(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.Tiers(ctx)
	})
}

func (h *Handler) Engagement(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.Engagement(ctx)
	})
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.Activity(ctx)
	})
}

func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	sections := h.reports.Sections()
	out := make([]map[string]string, 0, len(sections))
	for _, sec := range sections {
		out = append(out, map[string]string{"name": sec.Name, "title": sec.Title})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CustomSection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.respond(w, r, func(ctx context.Context) (interface{}, error) {
		return h.reports.Custom(ctx, name)
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.reports.Refresh()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, produce func(ctx context.Context) (interface{}, error)) {
	v, err := produce(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

// errorResponse is the unified failure body. Server-side failures carry the
// likely-causes checklist so the dashboard can always render guidance.
type errorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Causes  []string `json:"likely_causes,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	resp := errorResponse{Code: status, Message: err.Error()}
	if status >= http.StatusInternalServerError || status == http.StatusNotFound {
		resp.Causes = domain.LikelyCauses()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("report request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, resp)
}
