package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOpenAIAPI is a mock for the OpenAI embedding API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockCompletionAPI is a mock for the OpenAI chat API
type MockCompletionAPI struct {
	mock.Mock
}

func (m *MockCompletionAPI) CreateCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 768}

	ctx := context.Background()
	text := "This is a test document about Go programming."
	expectedEmbedding := make([]float32, 768)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, 768)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	ctx := context.Background()
	embedding, err := client.GenerateEmbedding(ctx, "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 768}

	ctx := context.Background()
	text := "Test text"
	apiErr := errors.New("API rate limit exceeded")

	mockAPI.On("CreateEmbeddings", ctx, text).Return(nil, apiErr)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Contains(t, err.Error(), "failed to create embedding")
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 768}

	ctx := context.Background()
	text := "Test text"
	wrongEmbedding := make([]float32, 1536)

	mockAPI.On("CreateEmbeddings", ctx, text).Return(wrongEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrWrongDimensions, err)
	mockAPI.AssertExpectations(t)
}

func TestClient_Complete_Success(t *testing.T) {
	mockChat := new(MockCompletionAPI)
	client := &Client{completion: mockChat}

	ctx := context.Background()
	mockChat.On("CreateCompletion", ctx, "You are a helpful assistant.", "What is Go?").
		Return("Go is a programming language.", nil)

	out, err := client.Complete(ctx, "You are a helpful assistant.", "What is Go?")

	assert.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", out)
	mockChat.AssertExpectations(t)
}

func TestClient_Complete_EmptyPrompt(t *testing.T) {
	client := NewClient("test-key")

	out, err := client.Complete(context.Background(), "system", "")

	assert.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_Complete_APIError(t *testing.T) {
	mockChat := new(MockCompletionAPI)
	client := &Client{completion: mockChat}

	ctx := context.Background()
	mockChat.On("CreateCompletion", ctx, "", "prompt").Return("", errors.New("timeout"))

	out, err := client.Complete(ctx, "", "prompt")

	assert.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "failed to create completion")
	mockChat.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_AppliesDeadline(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 768, timeout: 5 * time.Second}

	expectedEmbedding := make([]float32, 768)
	mockAPI.On("CreateEmbeddings", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 5*time.Second
	}), "some text").Return(expectedEmbedding, nil)

	_, err := client.GenerateEmbedding(context.Background(), "some text")

	assert.NoError(t, err)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_KeepsEarlierDeadline(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 768, timeout: time.Hour}

	callerDeadline := time.Now().Add(time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), callerDeadline)
	defer cancel()

	expectedEmbedding := make([]float32, 768)
	mockAPI.On("CreateEmbeddings", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && !deadline.After(callerDeadline)
	}), "some text").Return(expectedEmbedding, nil)

	_, err := client.GenerateEmbedding(ctx, "some text")

	assert.NoError(t, err)
	mockAPI.AssertExpectations(t)
}

func TestClient_Complete_AppliesDeadline(t *testing.T) {
	mockChat := new(MockCompletionAPI)
	client := &Client{completion: mockChat, timeout: 5 * time.Second}

	mockChat.On("CreateCompletion", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 5*time.Second
	}), "system", "prompt").Return("answer", nil)

	out, err := client.Complete(context.Background(), "system", "prompt")

	assert.NoError(t, err)
	assert.Equal(t, "answer", out)
	mockChat.AssertExpectations(t)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.NotNil(t, client.completion)
	assert.Equal(t, 768, client.dimensions)
	assert.Equal(t, DefaultRequestTimeout, client.timeout)
}

func TestNewClientWithConfig_CustomTimeout(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "test-api-key", RequestTimeout: 10 * time.Second})

	assert.Equal(t, 10*time.Second, client.timeout)
}

func TestNewClientFromEnv_NoAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClientFromEnv()

	assert.Nil(t, client)
	assert.Error(t, err)
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestNewClientFromEnv_WithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-api-key")

	client, err := NewClientFromEnv()

	assert.NotNil(t, client)
	assert.NoError(t, err)
}
