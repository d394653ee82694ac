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

type ChatAsker interface {
	Ask(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error)
}

type ChatHandler struct {
	svc      ChatAsker
	projects ProjectRepository
}

func NewChatHandler(svc ChatAsker, projects ProjectRepository) *ChatHandler {
	return &ChatHandler{svc: svc, projects: projects}
}

type ChatAskRequest struct {
	Query     string            `json:"query"`
	History   []domain.ChatTurn `json:"history,omitempty"`
	Project   string            `json:"project"`
	Threshold float64           `json:"threshold,omitempty"`
	Limit     int               `json:"limit,omitempty"`
}

type ChatAskResponse struct {
	Response         string                    `json:"response"`
	Context          []domain.SimilarityResult `json:"context"`
	KnowledgeGap     bool                      `json:"knowledge_gap"`
	KnowledgeGapType *domain.GapType           `json:"knowledge_gap_type,omitempty"`
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatAskRequest
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

	resp, err := h.svc.Ask(r.Context(), service.ChatRequest{
		Query:     req.Query,
		History:   req.History,
		ProjectID: project.ID,
		UserID:    userID,
		Threshold: req.Threshold,
		Limit:     req.Limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	// context stays null when retrieval came back empty
	api.Success(w, http.StatusOK, ChatAskResponse{
		Response:         resp.Response,
		Context:          resp.Context,
		KnowledgeGap:     resp.KnowledgeGap,
		KnowledgeGapType: resp.KnowledgeGapType,
	})
}
