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

type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockIngester) DeleteSource(ctx context.Context, sourceID string, sourceType domain.SourceType, userID string) error {
	args := m.Called(ctx, sourceID, sourceType, userID)
	return args.Error(0)
}

func TestSourceHandler_Ingest(t *testing.T) {
	project := domain.NewProject(uuid.NewString(), "user-1", "Docs", "docs", time.Now().UTC())

	repo := new(MockProjectRepository)
	repo.On("GetBySlug", mock.Anything, "user-1", "docs").Return(project, nil)

	svc := new(MockIngester)
	svc.On("Ingest", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.ProjectID == project.ID && input.UserID == "user-1" && input.Title == "Guide"
	})).Return(&service.IngestResult{
		SourceID: "src-1",
		Records:  []*domain.EmbeddingRecord{{}, {}},
	}, nil)

	handler := NewSourceHandler(svc, repo)

	body, _ := json.Marshal(IngestSourceRequest{
		Content: "Widgets are great. They do things.",
		Title:   "Guide",
		Project: "docs",
	})
	req := withUser(httptest.NewRequest(http.MethodPost, "/sources", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data IngestSourceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "src-1", envelope.Data.SourceID)
	assert.Equal(t, 2, envelope.Data.Chunks)
	svc.AssertExpectations(t)
}

func TestSourceHandler_Ingest_EmbeddingFailure(t *testing.T) {
	project := domain.NewProject(uuid.NewString(), "user-1", "Docs", "docs", time.Now().UTC())

	repo := new(MockProjectRepository)
	repo.On("GetBySlug", mock.Anything, "user-1", "docs").Return(project, nil)

	svc := new(MockIngester)
	svc.On("Ingest", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingFailed)

	handler := NewSourceHandler(svc, repo)

	body, _ := json.Marshal(IngestSourceRequest{Content: "text", Project: "docs"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/sources", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSourceHandler_Delete(t *testing.T) {
	svc := new(MockIngester)
	svc.On("DeleteSource", mock.Anything, "src-1", domain.SourceTypeContext, "user-1").Return(nil)

	handler := NewSourceHandler(svc, new(MockProjectRepository))

	req := withUser(httptest.NewRequest(http.MethodDelete, "/sources/src-1", nil), "user-1")
	req = withURLParam(req, "id", "src-1")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSourceHandler_Delete_InvalidSourceType(t *testing.T) {
	handler := NewSourceHandler(new(MockIngester), new(MockProjectRepository))

	req := withUser(httptest.NewRequest(http.MethodDelete, "/sources/src-1?source_type=bogus", nil), "user-1")
	req = withURLParam(req, "id", "src-1")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
