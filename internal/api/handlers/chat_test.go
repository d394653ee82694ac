package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/service"
)

type MockChatAsker struct {
	mock.Mock
}

func (m *MockChatAsker) Ask(ctx context.Context, req service.ChatRequest) (*service.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatResponse), args.Error(1)
}

func TestChatHandler_Ask(t *testing.T) {
	project := domain.NewProject(uuid.NewString(), "user-1", "Docs", "docs", time.Now().UTC())

	repo := new(MockProjectRepository)
	repo.On("GetBySlug", mock.Anything, "user-1", "docs").Return(project, nil)

	gapType := domain.GapTypeInquiry
	svc := new(MockChatAsker)
	svc.On("Ask", mock.Anything, mock.MatchedBy(func(req service.ChatRequest) bool {
		return req.Query == "how do exports work" && req.ProjectID == project.ID && req.UserID == "user-1"
	})).Return(&service.ChatResponse{
		Response:         "Exports are configured per project.",
		KnowledgeGap:     true,
		KnowledgeGapType: &gapType,
	}, nil)

	handler := NewChatHandler(svc, repo)

	body, _ := json.Marshal(ChatAskRequest{Query: "how do exports work", Project: "docs"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data ChatAskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Exports are configured per project.", envelope.Data.Response)
	assert.True(t, envelope.Data.KnowledgeGap)
	require.NotNil(t, envelope.Data.KnowledgeGapType)
	assert.Equal(t, domain.GapTypeInquiry, *envelope.Data.KnowledgeGapType)
	svc.AssertExpectations(t)
}

func TestChatHandler_Ask_NullContextWhenRetrievalEmpty(t *testing.T) {
	project := domain.NewProject(uuid.NewString(), "user-1", "Docs", "docs", time.Now().UTC())

	repo := new(MockProjectRepository)
	repo.On("GetBySlug", mock.Anything, "user-1", "docs").Return(project, nil)

	svc := new(MockChatAsker)
	svc.On("Ask", mock.Anything, mock.Anything).Return(&service.ChatResponse{
		Response: "Nothing in the knowledge base covers that.",
	}, nil)

	handler := NewChatHandler(svc, repo)

	body, _ := json.Marshal(ChatAskRequest{Query: "anything uncovered here", Project: "docs"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Contains(t, envelope.Data, "context")
	assert.Equal(t, "null", string(envelope.Data["context"]))
}

func TestChatHandler_Ask_ContextPresentWhenRetrievalNonEmpty(t *testing.T) {
	project := domain.NewProject(uuid.NewString(), "user-1", "Docs", "docs", time.Now().UTC())

	repo := new(MockProjectRepository)
	repo.On("GetBySlug", mock.Anything, "user-1", "docs").Return(project, nil)

	svc := new(MockChatAsker)
	svc.On("Ask", mock.Anything, mock.Anything).Return(&service.ChatResponse{
		Response: "Exports run nightly.",
		Context: []domain.SimilarityResult{
			{ID: "rec-1", Content: "Exports run nightly.", Similarity: 0.93},
		},
	}, nil)

	handler := NewChatHandler(svc, repo)

	body, _ := json.Marshal(ChatAskRequest{Query: "when do exports run", Project: "docs"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data ChatAskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Context, 1)
	assert.Equal(t, "rec-1", envelope.Data.Context[0].ID)
}

func TestChatHandler_Ask_MissingQuery(t *testing.T) {
	handler := NewChatHandler(new(MockChatAsker), new(MockProjectRepository))

	body, _ := json.Marshal(ChatAskRequest{Project: "docs"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_Ask_ProjectNotFound(t *testing.T) {
	repo := new(MockProjectRepository)
	repo.On("GetBySlug", mock.Anything, "user-1", "missing").Return(nil, domain.ErrProjectNotFound)

	handler := NewChatHandler(new(MockChatAsker), repo)

	body, _ := json.Marshal(ChatAskRequest{Query: "anything goes here", Project: "missing"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatHandler_Ask_UpstreamFailure(t *testing.T) {
	project := domain.NewProject(uuid.NewString(), "user-1", "Docs", "docs", time.Now().UTC())

	repo := new(MockProjectRepository)
	repo.On("GetBySlug", mock.Anything, "user-1", "docs").Return(project, nil)

	svc := new(MockChatAsker)
	svc.On("Ask", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingFailed)

	handler := NewChatHandler(svc, repo)

	body, _ := json.Marshal(ChatAskRequest{Query: "how do exports work", Project: "docs"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
