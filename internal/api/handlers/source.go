package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenkb/lumen/internal/api"
	"github.com/lumenkb/lumen/internal/api/middleware"
	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/service"
)

type Ingester interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
	DeleteSource(ctx context.Context, sourceID string, sourceType domain.SourceType, userID string) error
}

type SourceHandler struct {
	svc      Ingester
	projects ProjectRepository
}

func NewSourceHandler(svc Ingester, projects ProjectRepository) *SourceHandler {
	return &SourceHandler{svc: svc, projects: projects}
}

type IngestSourceRequest struct {
	Content    string `json:"content"`
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	Project    string `json:"project"`
	MaxWords   int    `json:"max_words"`
}

type IngestSourceResponse struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
}

func (h *SourceHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Project == "" {
		api.Error(w, http.StatusBadRequest, "project is required")
		return
	}

	project, err := resolveProject(r.Context(), h.projects, userID, req.Project)
	if err != nil {
		api.Error(w, http.StatusNotFound, "project not found")
		return
	}

	result, err := h.svc.Ingest(r.Context(), service.IngestInput{
		Content:    req.Content,
		Title:      req.Title,
		SourceType: domain.SourceType(req.SourceType),
		ProjectID:  project.ID,
		UserID:     userID,
		MaxWords:   req.MaxWords,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, IngestSourceResponse{
		SourceID: result.SourceID,
		Chunks:   len(result.Records),
	})
}

func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sourceID := chi.URLParam(r, "id")
	sourceType := domain.SourceType(r.URL.Query().Get("source_type"))
	if sourceType == "" {
		sourceType = domain.SourceTypeContext
	}
	if !domain.IsValidSourceType(sourceType) {
		api.Error(w, http.StatusBadRequest, "invalid source type")
		return
	}

	if err := h.svc.DeleteSource(r.Context(), sourceID, sourceType, userID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
