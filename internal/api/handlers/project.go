package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lumenkb/lumen/internal/api"
	"github.com/lumenkb/lumen/internal/api/middleware"
	"github.com/lumenkb/lumen/internal/domain"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetBySlug(ctx context.Context, userID, slug string) (*domain.Project, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Project, error)
	Delete(ctx context.Context, id string) error
}

type ProjectHandler struct {
	repo ProjectRepository
}

func NewProjectHandler(repo ProjectRepository) *ProjectHandler {
	return &ProjectHandler{repo: repo}
}

type CreateProjectRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var slugCleanup = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a URL-safe slug from a project name.
func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = slugCleanup.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}
	if !domain.IsValidSlug(slug) {
		api.Error(w, http.StatusBadRequest, "invalid slug")
		return
	}

	project := domain.NewProject(uuid.NewString(), userID, req.Name, slug, time.Now().UTC())

	if err := h.repo.Create(r.Context(), project); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	api.Success(w, http.StatusCreated, project)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID := chi.URLParam(r, "id")
	project, err := h.repo.GetByID(r.Context(), projectID)
	if err != nil {
		if err == domain.ErrProjectNotFound {
			api.Error(w, http.StatusNotFound, "project not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to get project")
		return
	}

	if project.UserID != userID {
		api.Error(w, http.StatusNotFound, "project not found")
		return
	}

	api.Success(w, http.StatusOK, project)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projects, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	if projects == nil {
		projects = []*domain.Project{}
	}

	api.Success(w, http.StatusOK, projects)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID := chi.URLParam(r, "id")
	project, err := h.repo.GetByID(r.Context(), projectID)
	if err != nil || project.UserID != userID {
		api.Error(w, http.StatusNotFound, "project not found")
		return
	}

	if err := h.repo.Delete(r.Context(), projectID); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to delete project")
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// resolveProject looks a project up by ID or slug within the caller's
// namespace and enforces ownership.
func resolveProject(ctx context.Context, repo ProjectRepository, userID, idOrSlug string) (*domain.Project, error) {
	if _, err := uuid.Parse(idOrSlug); err == nil {
		project, err := repo.GetByID(ctx, idOrSlug)
		if err != nil {
			return nil, err
		}
		if project.UserID != userID {
			return nil, domain.ErrProjectNotFound
		}
		return project, nil
	}
	return repo.GetBySlug(ctx, userID, idOrSlug)
}
