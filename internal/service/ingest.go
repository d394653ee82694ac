package service

import (
	"context"
	"log"
	"strings"

	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/telemetry"
)

// ContentArchive stores raw source content alongside the chunk embeddings.
// Optional: ingestion works without it.
type ContentArchive interface {
	PutSource(ctx context.Context, userID, sourceID string, content []byte) error
	DeleteSource(ctx context.Context, userID, sourceID string) error
}

// IngestEmbeddingStore is the slice of the embedding service ingestion needs.
type IngestEmbeddingStore interface {
	Store(ctx context.Context, chunks []domain.Chunk, sourceID string, sourceType domain.SourceType, projectID, userID, originalTitle string) ([]*domain.EmbeddingRecord, error)
	DeleteBySource(ctx context.Context, sourceID string, sourceType domain.SourceType) error
}

// IngestInput is one content submission.
type IngestInput struct {
	Content    string
	Title      string
	SourceType domain.SourceType
	ProjectID  string
	UserID     string
	MaxWords   int
}

// IngestResult reports what a submission produced.
type IngestResult struct {
	SourceID string
	Records  []*domain.EmbeddingRecord
}

// IngestService turns submitted content into stored chunk embeddings:
// chunk, archive the raw text, then embed and store. Embedding and storage
// failures are hard failures surfaced to the caller; archiving is
// best-effort.
type IngestService struct {
	chunker *ChunkingService
	store   IngestEmbeddingStore
	archive ContentArchive
	uuidGen UUIDGenerator
}

// NewIngestService creates a new IngestService instance. archive may be nil.
func NewIngestService(chunker *ChunkingService, store IngestEmbeddingStore, archive ContentArchive, uuidGen UUIDGenerator) *IngestService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &IngestService{
		chunker: chunker,
		store:   store,
		archive: archive,
		uuidGen: uuidGen,
	}
}

// Ingest processes one content submission. On a mid-batch storage failure
// the already-stored records are returned along with the error.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		UserID:    input.UserID,
		ProjectID: input.ProjectID,
		Operation: "ingest",
	})
	defer span.End()

	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "content is required")
	}
	if input.ProjectID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "project ID is required")
	}
	if input.UserID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}

	sourceType := input.SourceType
	if sourceType == "" {
		sourceType = domain.SourceTypeContext
	}
	if !domain.IsValidSourceType(sourceType) {
		return nil, domain.ErrInvalidSourceType
	}

	chunks := s.chunker.Chunk(ctx, input.Content, input.MaxWords)
	sourceID := s.uuidGen.NewString()

	if s.archive != nil {
		if err := s.archive.PutSource(ctx, input.UserID, sourceID, []byte(input.Content)); err != nil {
			log.Printf("ingest: failed to archive source %s: %v", sourceID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	records, err := s.store.Store(ctx, chunks, sourceID, sourceType, input.ProjectID, input.UserID, input.Title)
	result := &IngestResult{SourceID: sourceID, Records: records}
	if err != nil {
		return result, err
	}
	return result, nil
}

// DeleteSource removes a source's embeddings and, best-effort, its archived
// raw content. Idempotent.
func (s *IngestService) DeleteSource(ctx context.Context, sourceID string, sourceType domain.SourceType, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.DeleteSource", telemetry.SpanAttributes{
		UserID:    userID,
		SourceID:  sourceID,
		Operation: "delete_source",
	})
	defer span.End()

	if sourceID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "source ID is required")
	}

	if err := s.store.DeleteBySource(ctx, sourceID, sourceType); err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.DeleteSource(ctx, userID, sourceID); err != nil {
			log.Printf("ingest: failed to delete archived source %s: %v", sourceID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	return nil
}
