package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/telemetry"
)

// SufficiencyThreshold is the similarity a retrieved result must strictly
// exceed for retrieval to count as answered. Stricter than the search
// threshold, so weakly related material can surface without suppressing gap
// detection.
const SufficiencyThreshold = 0.5

// maxHistoryTurns bounds how much conversation history goes into the prompt.
const maxHistoryTurns = 10

const chatSystemPrompt = `You are a knowledge-base assistant. Answer the user's question using the provided context passages when they are relevant. If the context does not cover the question, say so honestly instead of inventing an answer.`

// ProgressEvent is an immutable snapshot of pipeline progress, emitted for
// consumers that render status. The pipeline never reads it back.
type ProgressEvent struct {
	Step    string
	Percent int
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(ProgressEvent)

// ChatRequest is one question against a project's knowledge base.
type ChatRequest struct {
	Query     string
	History   []domain.ChatTurn
	ProjectID string
	UserID    string
	Threshold float64
	Limit     int
}

// ChatResponse carries the generated answer plus retrieval and gap-detection
// outcomes.
type ChatResponse struct {
	Response         string
	Context          []domain.SimilarityResult
	KnowledgeGap     bool
	KnowledgeGapType *domain.GapType
}

// ChatEmbeddingStore is the slice of the embedding service the orchestrator
// needs.
type ChatEmbeddingStore interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Search(ctx context.Context, queryEmbedding []float32, threshold float64, limit int, projectID, userID string, sourceType *domain.SourceType) ([]domain.SimilarityResult, error)
}

// GapDetector is the slice of the gap service the orchestrator needs.
type GapDetector interface {
	DetectAndLog(ctx context.Context, query, projectID, userID string) (*domain.GapRecord, bool)
}

// ChatService orchestrates a query: embed, retrieve, judge sufficiency,
// detect gaps on weak retrieval, and generate the final answer.
type ChatService struct {
	embeddings ChatEmbeddingStore
	gaps       GapDetector
	oracle     CompletionClient
	progress   ProgressFunc
}

// NewChatService creates a new ChatService instance
func NewChatService(embeddings ChatEmbeddingStore, gaps GapDetector, oracle CompletionClient) *ChatService {
	return &ChatService{
		embeddings: embeddings,
		gaps:       gaps,
		oracle:     oracle,
	}
}

// WithProgress returns a copy of the service that emits progress events.
func (s *ChatService) WithProgress(fn ProgressFunc) *ChatService {
	clone := *s
	clone.progress = fn
	return &clone
}

func (s *ChatService) emit(step string, percent int) {
	if s.progress != nil {
		s.progress(ProgressEvent{Step: step, Percent: percent})
	}
}

// Ask answers a query with retrieved context. Gap detection and logging are
// best-effort and never block the answer.
func (s *ChatService) Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Ask", telemetry.SpanAttributes{
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
		Operation: "chat",
	})
	defer span.End()

	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = DefaultSearchThreshold
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s.emit("embedding query", 10)
	queryEmbedding, err := s.embeddings.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	s.emit("searching knowledge base", 30)
	results, err := s.embeddings.Search(ctx, queryEmbedding, threshold, limit, req.ProjectID, req.UserID, nil)
	if err != nil {
		return nil, err
	}

	resp := &ChatResponse{Context: results}

	if !isSufficient(results) {
		s.emit("checking for knowledge gap", 50)
		if record, detected := s.gaps.DetectAndLog(ctx, req.Query, req.ProjectID, req.UserID); detected {
			gapType := record.Type
			resp.KnowledgeGap = true
			resp.KnowledgeGapType = &gapType
		}
	}

	s.emit("generating answer", 70)
	answer, err := s.oracle.Complete(ctx, chatSystemPrompt, buildChatPrompt(req.Query, req.History, results))
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "answer generation failed", err)
	}
	resp.Response = answer

	s.emit("done", 100)
	return resp, nil
}

// isSufficient reports whether retrieval answered the query: non-empty and
// at least one result strictly above the sufficiency bar.
func isSufficient(results []domain.SimilarityResult) bool {
	for _, r := range results {
		if r.Similarity > SufficiencyThreshold {
			return true
		}
	}
	return false
}

func buildChatPrompt(query string, history []domain.ChatTurn, results []domain.SimilarityResult) string {
	var b strings.Builder

	if len(results) > 0 {
		b.WriteString("Context passages:\n")
		for i, r := range results {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, r.Content)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No relevant context was found in the knowledge base.\n\n")
	}

	if len(history) > 0 {
		start := 0
		if len(history) > maxHistoryTurns {
			start = len(history) - maxHistoryTurns
		}
		b.WriteString("Conversation so far:\n")
		for _, turn := range history[start:] {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}
