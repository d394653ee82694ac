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
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateUser(ctx context.Context, name string) (*domain.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, userID, name string) (string, error) {
	args := m.Called(ctx, userID, name)
	return args.String(0), args.Error(1)
}

func TestAuthHandler_CreateUser(t *testing.T) {
	user := domain.NewUser(uuid.NewString(), "acme", time.Now().UTC())

	svc := new(MockAuthService)
	svc.On("CreateUser", mock.Anything, "acme").Return(user, nil)

	handler := NewAuthHandler(svc)

	body, _ := json.Marshal(CreateUserRequest{Name: "acme"})
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateUser(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data UserResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, user.ID, envelope.Data.ID)
	assert.Equal(t, "acme", envelope.Data.Name)
	svc.AssertExpectations(t)
}

func TestAuthHandler_CreateUser_MissingName(t *testing.T) {
	handler := NewAuthHandler(new(MockAuthService))

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.CreateUser(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_CreateUser_AlreadyExists(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("CreateUser", mock.Anything, "acme").Return(nil, domain.ErrUserAlreadyExists)

	handler := NewAuthHandler(svc)

	body, _ := json.Marshal(CreateUserRequest{Name: "acme"})
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateUser(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_CreateAPIKey(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("CreateAPIKey", mock.Anything, "user-1", "ci").Return("lmn_token", nil)

	handler := NewAuthHandler(svc)

	body, _ := json.Marshal(CreateAPIKeyRequest{UserID: "user-1", Name: "ci"})
	req := httptest.NewRequest(http.MethodPost, "/apikeys", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data APIKeyResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "lmn_token", envelope.Data.Token)
	svc.AssertExpectations(t)
}

func TestAuthHandler_CreateAPIKey_UnknownUser(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("CreateAPIKey", mock.Anything, "nobody", "ci").Return("", domain.ErrUserNotFound)

	handler := NewAuthHandler(svc)

	body, _ := json.Marshal(CreateAPIKeyRequest{UserID: "nobody", Name: "ci"})
	req := httptest.NewRequest(http.MethodPost, "/apikeys", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
