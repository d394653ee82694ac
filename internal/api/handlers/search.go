package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lumenkb/lumen/internal/api"
	"github.com/lumenkb/lumen/internal/api/middleware"
	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/service"
)

type Searcher interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Search(ctx context.Context, queryEmbedding []float32, threshold float64, limit int, projectID, userID string, sourceType *domain.SourceType) ([]domain.SimilarityResult, error)
}

type SearchHandler struct {
	svc      Searcher
	projects ProjectRepository
}

func NewSearchHandler(svc Searcher, projects ProjectRepository) *SearchHandler {
	return &SearchHandler{svc: svc, projects: projects}
}

type SearchRequest struct {
	Query      string  `json:"query"`
	Project    string  `json:"project"`
	Threshold  float64 `json:"threshold,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	SourceType string  `json:"source_type,omitempty"`
}

type SearchResponse struct {
	Results []domain.SimilarityResult `json:"results"`
}

// Search embeds the query text and returns similar stored chunks.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
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

	if req.Threshold == 0 {
		req.Threshold = service.DefaultSearchThreshold
	}

	var sourceType *domain.SourceType
	if req.SourceType != "" {
		st := domain.SourceType(req.SourceType)
		if !domain.IsValidSourceType(st) {
			api.Error(w, http.StatusBadRequest, "invalid source type")
			return
		}
		sourceType = &st
	}

	embedding, err := h.svc.Embed(r.Context(), req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results, err := h.svc.Search(r.Context(), embedding, req.Threshold, req.Limit, project.ID, userID, sourceType)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if results == nil {
		results = []domain.SimilarityResult{}
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}
