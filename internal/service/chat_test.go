package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenkb/lumen/internal/domain"
)

// MockChatEmbeddingStore is a mock for the orchestrator's embedding surface
type MockChatEmbeddingStore struct {
	mock.Mock
}

func (m *MockChatEmbeddingStore) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockChatEmbeddingStore) Search(ctx context.Context, queryEmbedding []float32, threshold float64, limit int, projectID, userID string, sourceType *domain.SourceType) ([]domain.SimilarityResult, error) {
	args := m.Called(ctx, queryEmbedding, threshold, limit, projectID, userID, sourceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SimilarityResult), args.Error(1)
}

// MockGapDetector is a mock for the orchestrator's gap surface
type MockGapDetector struct {
	mock.Mock
}

func (m *MockGapDetector) DetectAndLog(ctx context.Context, query, projectID, userID string) (*domain.GapRecord, bool) {
	args := m.Called(ctx, query, projectID, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.GapRecord), args.Bool(1)
}

func chatRequest(query string) ChatRequest {
	return ChatRequest{
		Query:     query,
		ProjectID: "proj-1",
		UserID:    "user-1",
	}
}

func TestAsk_SufficientRetrievalSkipsGapDetection(t *testing.T) {
	store := new(MockChatEmbeddingStore)
	gaps := new(MockGapDetector)
	oracle := new(MockCompletionClient)
	svc := NewChatService(store, gaps, oracle)

	results := []domain.SimilarityResult{
		{ID: "rec-1", Content: "Reset via settings page.", Similarity: 0.82},
	}
	store.On("Embed", mock.Anything, "How do I reset my password?").Return(validEmbedding(), nil)
	store.On("Search", mock.Anything, mock.Anything, 0.4, 5, "proj-1", "user-1", (*domain.SourceType)(nil)).Return(results, nil)
	oracle.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("Use the settings page.", nil)

	resp, err := svc.Ask(context.Background(), chatRequest("How do I reset my password?"))

	require.NoError(t, err)
	assert.Equal(t, "Use the settings page.", resp.Response)
	assert.Equal(t, results, resp.Context)
	assert.False(t, resp.KnowledgeGap)
	assert.Nil(t, resp.KnowledgeGapType)
	gaps.AssertNotCalled(t, "DetectAndLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAsk_WeakRetrievalTriggersGapDetection(t *testing.T) {
	store := new(MockChatEmbeddingStore)
	gaps := new(MockGapDetector)
	oracle := new(MockCompletionClient)
	svc := NewChatService(store, gaps, oracle)

	// Best match clears the 0.4 search threshold but not the 0.5
	// sufficiency bar.
	results := []domain.SimilarityResult{
		{ID: "rec-1", Content: "Loosely related.", Similarity: 0.45},
	}
	gapRecord := domain.NewGapRecord("gap-1", domain.GapTypeIssue, "The login button is completely broken and nothing works", "proj-1", "user-1", time.Now().UTC())

	store.On("Embed", mock.Anything, mock.Anything).Return(validEmbedding(), nil)
	store.On("Search", mock.Anything, mock.Anything, 0.4, 5, "proj-1", "user-1", (*domain.SourceType)(nil)).Return(results, nil)
	gaps.On("DetectAndLog", mock.Anything, "The login button is completely broken and nothing works", "proj-1", "user-1").Return(gapRecord, true)
	oracle.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("I could not find an answer.", nil)

	resp, err := svc.Ask(context.Background(), chatRequest("The login button is completely broken and nothing works"))

	require.NoError(t, err)
	assert.True(t, resp.KnowledgeGap)
	require.NotNil(t, resp.KnowledgeGapType)
	assert.Equal(t, domain.GapTypeIssue, *resp.KnowledgeGapType)
	assert.Equal(t, "I could not find an answer.", resp.Response)
	gaps.AssertExpectations(t)
}

func TestAsk_ExactSufficiencyBarIsInsufficient(t *testing.T) {
	store := new(MockChatEmbeddingStore)
	gaps := new(MockGapDetector)
	oracle := new(MockCompletionClient)
	svc := NewChatService(store, gaps, oracle)

	results := []domain.SimilarityResult{{ID: "rec-1", Similarity: 0.5}}
	store.On("Embed", mock.Anything, mock.Anything).Return(validEmbedding(), nil)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(results, nil)
	gaps.On("DetectAndLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, false)
	oracle.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)

	resp, err := svc.Ask(context.Background(), chatRequest("Is similarity of exactly one half enough?"))

	require.NoError(t, err)
	assert.False(t, resp.KnowledgeGap)
	gaps.AssertExpectations(t)
}

func TestAsk_FilteredQueryAnsweredWithoutGap(t *testing.T) {
	store := new(MockChatEmbeddingStore)
	gaps := new(MockGapDetector)
	oracle := new(MockCompletionClient)
	svc := NewChatService(store, gaps, oracle)

	store.On("Embed", mock.Anything, mock.Anything).Return(validEmbedding(), nil)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.SimilarityResult{}, nil)
	gaps.On("DetectAndLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, false)
	oracle.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("Hello!", nil)

	resp, err := svc.Ask(context.Background(), chatRequest("hello there my friend"))

	require.NoError(t, err)
	assert.False(t, resp.KnowledgeGap)
	assert.Nil(t, resp.KnowledgeGapType)
	assert.Equal(t, "Hello!", resp.Response)
}

func TestAsk_EmptyQuery(t *testing.T) {
	svc := NewChatService(new(MockChatEmbeddingStore), new(MockGapDetector), new(MockCompletionClient))

	_, err := svc.Ask(context.Background(), chatRequest("   "))

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestAsk_EmbedFailureSurfaced(t *testing.T) {
	store := new(MockChatEmbeddingStore)
	svc := NewChatService(store, new(MockGapDetector), new(MockCompletionClient))

	store.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("model down"))

	_, err := svc.Ask(context.Background(), chatRequest("How do I reset my password?"))

	assert.Error(t, err)
}

func TestAsk_OracleFailureSurfaced(t *testing.T) {
	store := new(MockChatEmbeddingStore)
	gaps := new(MockGapDetector)
	oracle := new(MockCompletionClient)
	svc := NewChatService(store, gaps, oracle)

	store.On("Embed", mock.Anything, mock.Anything).Return(validEmbedding(), nil)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.SimilarityResult{}, nil)
	gaps.On("DetectAndLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, false)
	oracle.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	_, err := svc.Ask(context.Background(), chatRequest("How do I reset my password?"))

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeInternalError, domainErr.Code)
}

func TestAsk_CustomThresholdPassedThrough(t *testing.T) {
	store := new(MockChatEmbeddingStore)
	gaps := new(MockGapDetector)
	oracle := new(MockCompletionClient)
	svc := NewChatService(store, gaps, oracle)

	store.On("Embed", mock.Anything, mock.Anything).Return(validEmbedding(), nil)
	store.On("Search", mock.Anything, mock.Anything, 0.7, 3, "proj-1", "user-1", (*domain.SourceType)(nil)).Return([]domain.SimilarityResult{}, nil)
	gaps.On("DetectAndLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, false)
	oracle.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)

	req := chatRequest("What plans include single sign-on?")
	req.Threshold = 0.7
	req.Limit = 3

	_, err := svc.Ask(context.Background(), req)

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAsk_ProgressEventsEmitted(t *testing.T) {
	store := new(MockChatEmbeddingStore)
	gaps := new(MockGapDetector)
	oracle := new(MockCompletionClient)

	var events []ProgressEvent
	svc := NewChatService(store, gaps, oracle).WithProgress(func(e ProgressEvent) {
		events = append(events, e)
	})

	store.On("Embed", mock.Anything, mock.Anything).Return(validEmbedding(), nil)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.SimilarityResult{{Similarity: 0.9}}, nil)
	oracle.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)

	_, err := svc.Ask(context.Background(), chatRequest("How do I reset my password?"))

	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, 10, events[0].Percent)
	assert.Equal(t, 100, events[len(events)-1].Percent)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent)
	}
}

func TestBuildChatPrompt_HistoryBounded(t *testing.T) {
	history := make([]domain.ChatTurn, 15)
	for i := range history {
		history[i] = domain.ChatTurn{Role: domain.ChatRoleUser, Content: "turn"}
	}

	prompt := buildChatPrompt("question", history, nil)

	assert.Contains(t, prompt, "No relevant context")
	assert.Contains(t, prompt, "Question: question")
	assert.Equal(t, maxHistoryTurns, strings.Count(prompt, "user: turn"))
}
