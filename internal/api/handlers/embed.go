package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lumenkb/lumen/internal/api"
	"github.com/lumenkb/lumen/internal/api/middleware"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type EmbedHandler struct {
	svc Embedder
}

func NewEmbedHandler(svc Embedder) *EmbedHandler {
	return &EmbedHandler{svc: svc}
}

type EmbedRequest struct {
	Text  string   `json:"text,omitempty"`
	Texts []string `json:"texts,omitempty"`
}

type EmbedResponse struct {
	Embedding []float32 `json:"embedding,omitempty"`
	// Embeddings preserves the input order for batch requests.
	Embeddings [][]float32 `json:"embeddings,omitempty"`
}

func (h *EmbedHandler) Embed(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r.Context()) == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case len(req.Texts) > 0:
		embeddings, err := h.svc.EmbedBatch(r.Context(), req.Texts)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusOK, EmbedResponse{Embeddings: embeddings})
	case req.Text != "":
		embedding, err := h.svc.Embed(r.Context(), req.Text)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusOK, EmbedResponse{Embedding: embedding})
	default:
		api.Error(w, http.StatusBadRequest, "text or texts is required")
	}
}
