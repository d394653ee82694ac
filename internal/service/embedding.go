package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/telemetry"
)

const (
	// DefaultSearchThreshold favors recall over precision; callers tune per
	// request.
	DefaultSearchThreshold = 0.4
	// DefaultSearchLimit caps the number of similarity results returned.
	DefaultSearchLimit = 5

	// embedBatchParallelism bounds concurrent model calls in EmbedBatch.
	embedBatchParallelism = 4
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchParams scopes a nearest-neighbor query to a tenant.
type SearchParams struct {
	Embedding  []float32
	Threshold  float64
	Limit      int
	ProjectID  string
	UserID     string
	SourceType *domain.SourceType
}

// EmbeddingRepositoryInterface defines the repository interface for embedding
// record persistence
type EmbeddingRepositoryInterface interface {
	Create(ctx context.Context, record *domain.EmbeddingRecord) error
	GetByID(ctx context.Context, id string) (*domain.EmbeddingRecord, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	Search(ctx context.Context, params SearchParams) ([]domain.SimilarityResult, error)
	DeleteBySource(ctx context.Context, sourceID string, sourceType domain.SourceType) error
}

// EmbeddingService converts text to vectors, persists chunk embeddings with
// tenant-scoped metadata, and answers similarity queries.
type EmbeddingService struct {
	client  EmbeddingClient
	repo    EmbeddingRepositoryInterface
	uuidGen UUIDGenerator
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingRepositoryInterface, uuidGen UUIDGenerator) *EmbeddingService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &EmbeddingService{
		client:  client,
		repo:    repo,
		uuidGen: uuidGen,
	}
}

// Embed generates an embedding for the given text. A model error, non-vector
// response, or wrong dimensionality surfaces as an error; there is no
// degraded fallback.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, domain.ErrEmptyEmbedInput
	}

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "embedding generation failed", err)
	}
	if len(embedding) != domain.EmbeddingDimensions {
		return nil, domain.ErrWrongDimensions
	}

	return embedding, nil
}

// EmbedBatch embeds texts in order-preserving one-to-one correspondence with
// the input. Any individual failure fails the whole batch. Model calls run
// with bounded parallelism.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedBatchParallelism)

	for i, text := range texts {
		g.Go(func() error {
			embedding, err := s.Embed(gctx, text)
			if err != nil {
				return err
			}
			results[i] = embedding
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Store embeds and persists chunks one at a time. On failure at chunk k the
// first k-1 records stay committed and are returned alongside the error; no
// rollback. Cancelling ctx stops further chunks the same way.
func (s *EmbeddingService) Store(
	ctx context.Context,
	chunks []domain.Chunk,
	sourceID string,
	sourceType domain.SourceType,
	projectID, userID, originalTitle string,
) ([]*domain.EmbeddingRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.Store", telemetry.SpanAttributes{
		UserID:    userID,
		ProjectID: projectID,
		SourceID:  sourceID,
		Operation: "store",
	})
	defer span.End()

	if !domain.IsValidSourceType(sourceType) {
		return nil, domain.ErrInvalidSourceType
	}

	stored := make([]*domain.EmbeddingRecord, 0, len(chunks))
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		embedding, err := s.Embed(ctx, chunks[i].Content)
		if err != nil {
			return stored, err
		}

		record := domain.NewEmbeddingRecord(
			s.uuidGen.NewString(),
			chunks[i],
			embedding,
			sourceType,
			sourceID,
			projectID,
			userID,
			originalTitle,
			time.Now().UTC(),
		)
		if err := domain.ValidateEmbeddingRecord(record); err != nil {
			return stored, err
		}

		if err := s.repo.Create(ctx, record); err != nil {
			return stored, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to store embedding record", err)
		}
		stored = append(stored, record)
	}

	return stored, nil
}

// Search returns similarity results ordered by descending similarity,
// truncated to limit and scoped to (projectID, userID) and optionally a
// source type.
func (s *EmbeddingService) Search(
	ctx context.Context,
	queryEmbedding []float32,
	threshold float64,
	limit int,
	projectID, userID string,
	sourceType *domain.SourceType,
) ([]domain.SimilarityResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.Search", telemetry.SpanAttributes{
		UserID:    userID,
		ProjectID: projectID,
		Operation: "search",
	})
	defer span.End()

	if len(queryEmbedding) != domain.EmbeddingDimensions {
		return nil, domain.ErrWrongDimensions
	}
	if threshold < 0 || threshold > 1 {
		return nil, domain.ErrInvalidThreshold
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if sourceType != nil && !domain.IsValidSourceType(*sourceType) {
		return nil, domain.ErrInvalidSourceType
	}

	return s.repo.Search(ctx, SearchParams{
		Embedding:  queryEmbedding,
		Threshold:  threshold,
		Limit:      limit,
		ProjectID:  projectID,
		UserID:     userID,
		SourceType: sourceType,
	})
}

// ReembedRecord regenerates the vector for a stored record in place. Used by
// the re-embed worker after an embedding model change.
func (s *EmbeddingService) ReembedRecord(ctx context.Context, recordID string) error {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}

	embedding, err := s.Embed(ctx, record.Content)
	if err != nil {
		return err
	}

	return s.repo.UpdateEmbedding(ctx, recordID, embedding)
}

// DeleteBySource removes all embedding records for a source. Deleting a
// non-existent source is a no-op.
func (s *EmbeddingService) DeleteBySource(ctx context.Context, sourceID string, sourceType domain.SourceType) error {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.DeleteBySource", telemetry.SpanAttributes{
		SourceID:  sourceID,
		Operation: "delete",
	})
	defer span.End()

	if !domain.IsValidSourceType(sourceType) {
		return domain.ErrInvalidSourceType
	}

	return s.repo.DeleteBySource(ctx, sourceID, sourceType)
}
