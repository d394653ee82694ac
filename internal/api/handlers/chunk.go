package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lumenkb/lumen/internal/api"
	"github.com/lumenkb/lumen/internal/api/middleware"
	"github.com/lumenkb/lumen/internal/domain"
)

type Chunker interface {
	Chunk(ctx context.Context, content string, maxWords int) []domain.Chunk
}

type ChunkHandler struct {
	chunker Chunker
}

func NewChunkHandler(chunker Chunker) *ChunkHandler {
	return &ChunkHandler{chunker: chunker}
}

type ChunkRequest struct {
	Content  string `json:"content"`
	MaxWords int    `json:"max_words"`
}

type ChunkResponse struct {
	Chunks []domain.Chunk `json:"chunks"`
}

// Chunk splits submitted content into summarized chunks without storing
// anything.
func (h *ChunkHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r.Context()) == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	chunks := h.chunker.Chunk(r.Context(), req.Content, req.MaxWords)
	if chunks == nil {
		chunks = []domain.Chunk{}
	}

	api.Success(w, http.StatusOK, ChunkResponse{Chunks: chunks})
}
