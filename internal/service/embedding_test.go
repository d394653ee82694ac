package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenkb/lumen/internal/domain"
)

// MockEmbeddingClient is a mock for the embedding model client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockEmbeddingRepository is a mock for the embedding record repository
type MockEmbeddingRepository struct {
	mock.Mock
}

func (m *MockEmbeddingRepository) Create(ctx context.Context, record *domain.EmbeddingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockEmbeddingRepository) GetByID(ctx context.Context, id string) (*domain.EmbeddingRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmbeddingRecord), args.Error(1)
}

func (m *MockEmbeddingRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockEmbeddingRepository) Search(ctx context.Context, params SearchParams) ([]domain.SimilarityResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SimilarityResult), args.Error(1)
}

func (m *MockEmbeddingRepository) DeleteBySource(ctx context.Context, sourceID string, sourceType domain.SourceType) error {
	args := m.Called(ctx, sourceID, sourceType)
	return args.Error(0)
}

// MockUUIDGenerator generates predictable IDs for tests
type MockUUIDGenerator struct {
	counter int
}

func (g *MockUUIDGenerator) NewString() string {
	g.counter++
	return fmt.Sprintf("uuid-%d", g.counter)
}

func validEmbedding() []float32 {
	return make([]float32, domain.EmbeddingDimensions)
}

func TestEmbed_Success(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, nil, nil)

	client.On("GenerateEmbedding", mock.Anything, "some text").Return(validEmbedding(), nil)

	embedding, err := svc.Embed(context.Background(), "some text")

	require.NoError(t, err)
	assert.Len(t, embedding, domain.EmbeddingDimensions)
	client.AssertExpectations(t)
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewEmbeddingService(new(MockEmbeddingClient), nil, nil)

	_, err := svc.Embed(context.Background(), "")

	assert.Equal(t, domain.ErrEmptyEmbedInput, err)
}

func TestEmbed_ClientError(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, nil, nil)

	client.On("GenerateEmbedding", mock.Anything, "text").Return(nil, errors.New("model unavailable"))

	_, err := svc.Embed(context.Background(), "text")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbedding, domainErr.Code)
}

func TestEmbed_WrongDimensions(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, nil, nil)

	client.On("GenerateEmbedding", mock.Anything, "text").Return(make([]float32, 512), nil)

	_, err := svc.Embed(context.Background(), "text")

	assert.Equal(t, domain.ErrWrongDimensions, err)
}

func TestEmbedBatch_OrderPreserving(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, nil, nil)

	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		embedding := validEmbedding()
		embedding[0] = float32(i + 1)
		client.On("GenerateEmbedding", mock.Anything, text).Return(embedding, nil)
	}

	results, err := svc.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, float32(1), results[0][0])
	assert.Equal(t, float32(2), results[1][0])
	assert.Equal(t, float32(3), results[2][0])
}

func TestEmbedBatch_AnyFailureFailsWholeBatch(t *testing.T) {
	client := new(MockEmbeddingClient)
	svc := NewEmbeddingService(client, nil, nil)

	client.On("GenerateEmbedding", mock.Anything, "good").Return(validEmbedding(), nil).Maybe()
	client.On("GenerateEmbedding", mock.Anything, "bad").Return(nil, errors.New("boom")).Maybe()

	results, err := svc.EmbedBatch(context.Background(), []string{"good", "bad", "good"})

	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc := NewEmbeddingService(new(MockEmbeddingClient), nil, nil)

	results, err := svc.EmbedBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func storeChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			Content:     fmt.Sprintf("chunk %d content", i+1),
			ChunkIndex:  i + 1,
			TotalChunks: n,
		}
	}
	return chunks
}

func TestStore_Success(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(client, repo, &MockUUIDGenerator{})

	chunks := storeChunks(2)
	client.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(validEmbedding(), nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	records, err := svc.Store(context.Background(), chunks, "src-1", domain.SourceTypeContext, "proj-1", "user-1", "Title")

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "uuid-1", records[0].ID)
	assert.Equal(t, "uuid-2", records[1].ID)
	assert.Equal(t, "chunk 1 content", records[0].Content)
	assert.Equal(t, "src-1", records[0].SourceID)
	assert.Equal(t, "Title", records[0].Metadata.OriginalTitle)
	repo.AssertNumberOfCalls(t, "Create", 2)
}

func TestStore_PartialFailureKeepsCommittedRecords(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(client, repo, &MockUUIDGenerator{})

	chunks := storeChunks(3)
	client.On("GenerateEmbedding", mock.Anything, "chunk 1 content").Return(validEmbedding(), nil)
	client.On("GenerateEmbedding", mock.Anything, "chunk 2 content").Return(validEmbedding(), nil)
	client.On("GenerateEmbedding", mock.Anything, "chunk 3 content").Return(nil, errors.New("model down"))
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	records, err := svc.Store(context.Background(), chunks, "src-1", domain.SourceTypeContext, "proj-1", "user-1", "")

	assert.Error(t, err)
	assert.Len(t, records, 2, "first two writes stay committed")
	repo.AssertNumberOfCalls(t, "Create", 2)
}

func TestStore_RepositoryFailure(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(client, repo, &MockUUIDGenerator{})

	chunks := storeChunks(1)
	client.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(validEmbedding(), nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	records, err := svc.Store(context.Background(), chunks, "src-1", domain.SourceTypeContext, "proj-1", "user-1", "")

	require.Error(t, err)
	assert.Empty(t, records)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeStorage, domainErr.Code)
}

func TestStore_CancelledContextStopsFurtherChunks(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(client, repo, &MockUUIDGenerator{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := svc.Store(ctx, storeChunks(2), "src-1", domain.SourceTypeContext, "proj-1", "user-1", "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, records)
	client.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestStore_InvalidSourceType(t *testing.T) {
	svc := NewEmbeddingService(new(MockEmbeddingClient), new(MockEmbeddingRepository), &MockUUIDGenerator{})

	_, err := svc.Store(context.Background(), storeChunks(1), "src-1", "bogus", "proj-1", "user-1", "")

	assert.Equal(t, domain.ErrInvalidSourceType, err)
}

func TestSearch_Success(t *testing.T) {
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(new(MockEmbeddingClient), repo, nil)

	expected := []domain.SimilarityResult{
		{ID: "rec-1", Content: "match", Similarity: 0.92},
	}
	repo.On("Search", mock.Anything, mock.MatchedBy(func(p SearchParams) bool {
		return p.Threshold == 0.4 && p.Limit == 5 && p.ProjectID == "proj-1" && p.UserID == "user-1"
	})).Return(expected, nil)

	results, err := svc.Search(context.Background(), validEmbedding(), 0.4, 5, "proj-1", "user-1", nil)

	require.NoError(t, err)
	assert.Equal(t, expected, results)
	repo.AssertExpectations(t)
}

func TestSearch_InvalidThreshold(t *testing.T) {
	svc := NewEmbeddingService(new(MockEmbeddingClient), new(MockEmbeddingRepository), nil)

	_, err := svc.Search(context.Background(), validEmbedding(), 1.5, 5, "proj-1", "user-1", nil)
	assert.Equal(t, domain.ErrInvalidThreshold, err)

	_, err = svc.Search(context.Background(), validEmbedding(), -0.1, 5, "proj-1", "user-1", nil)
	assert.Equal(t, domain.ErrInvalidThreshold, err)
}

func TestSearch_WrongQueryDimensions(t *testing.T) {
	svc := NewEmbeddingService(new(MockEmbeddingClient), new(MockEmbeddingRepository), nil)

	_, err := svc.Search(context.Background(), make([]float32, 10), 0.4, 5, "proj-1", "user-1", nil)

	assert.Equal(t, domain.ErrWrongDimensions, err)
}

func TestSearch_DefaultLimit(t *testing.T) {
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(new(MockEmbeddingClient), repo, nil)

	repo.On("Search", mock.Anything, mock.MatchedBy(func(p SearchParams) bool {
		return p.Limit == DefaultSearchLimit
	})).Return([]domain.SimilarityResult{}, nil)

	_, err := svc.Search(context.Background(), validEmbedding(), 0.4, 0, "proj-1", "user-1", nil)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestReembedRecord(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(client, repo, nil)

	record := &domain.EmbeddingRecord{ID: "rec-1", Content: "stored content"}
	fresh := validEmbedding()
	fresh[0] = 0.5

	repo.On("GetByID", mock.Anything, "rec-1").Return(record, nil)
	client.On("GenerateEmbedding", mock.Anything, "stored content").Return(fresh, nil)
	repo.On("UpdateEmbedding", mock.Anything, "rec-1", fresh).Return(nil)

	err := svc.ReembedRecord(context.Background(), "rec-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestReembedRecord_NotFound(t *testing.T) {
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(new(MockEmbeddingClient), repo, nil)

	repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrRecordNotFound)

	err := svc.ReembedRecord(context.Background(), "missing")

	assert.Equal(t, domain.ErrRecordNotFound, err)
}

func TestDeleteBySource(t *testing.T) {
	repo := new(MockEmbeddingRepository)
	svc := NewEmbeddingService(new(MockEmbeddingClient), repo, nil)

	repo.On("DeleteBySource", mock.Anything, "src-1", domain.SourceTypeContext).Return(nil)

	err := svc.DeleteBySource(context.Background(), "src-1", domain.SourceTypeContext)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDeleteBySource_InvalidSourceType(t *testing.T) {
	svc := NewEmbeddingService(new(MockEmbeddingClient), new(MockEmbeddingRepository), nil)

	err := svc.DeleteBySource(context.Background(), "src-1", "bogus")

	assert.Equal(t, domain.ErrInvalidSourceType, err)
}
