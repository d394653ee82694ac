package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumenkb/lumen/internal/api"
	"github.com/lumenkb/lumen/internal/api/middleware"
	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/service"
)

type GapLister interface {
	List(ctx context.Context, projectID, userID string, gapType *domain.GapType, cursorToken string, limit int) (*service.GapPageResult, error)
}

type GapHandler struct {
	svc      GapLister
	projects ProjectRepository
}

func NewGapHandler(svc GapLister, projects ProjectRepository) *GapHandler {
	return &GapHandler{svc: svc, projects: projects}
}

type GapRecordResponse struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Severity    string   `json:"severity,omitempty"`
	Status      string   `json:"status,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

type GapListResponse struct {
	Items      []GapRecordResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

func gapToResponse(g *domain.GapRecord) GapRecordResponse {
	return GapRecordResponse{
		ID:          g.ID,
		Type:        string(g.Type),
		Title:       g.Title,
		Description: g.Description,
		Tags:        g.Tags,
		Severity:    g.Severity,
		Status:      g.Status,
		CreatedAt:   g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// List returns detected knowledge gaps for a project, newest first.
func (h *GapHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	project, err := resolveProject(r.Context(), h.projects, userID, chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, http.StatusNotFound, "project not found")
		return
	}

	var gapType *domain.GapType
	if raw := r.URL.Query().Get("type"); raw != "" {
		gt := domain.GapType(raw)
		if !domain.IsValidGapType(gt) {
			api.Error(w, http.StatusBadRequest, "invalid gap type")
			return
		}
		gapType = &gt
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	page, err := h.svc.List(r.Context(), project.ID, userID, gapType, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := GapListResponse{
		Items:      make([]GapRecordResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, gapToResponse(item))
	}

	api.Success(w, http.StatusOK, resp)
}
