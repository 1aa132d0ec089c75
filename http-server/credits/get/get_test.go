package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doe-studio/internal/middleware/identity"
)

type MockCreditsProvider struct {
	mock.Mock
}

func (m *MockCreditsProvider) GetCredits(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func TestGetCredits(t *testing.T) {
	m := new(MockCreditsProvider)
	m.On("GetCredits", mock.Anything, "u1").Return(10, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/user/credits", nil)
	req = req.WithContext(identity.WithUser(req.Context(), "u1"))
	rr := httptest.NewRecorder()
	GetCredits(slog.Default(), m).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp Response
	require.NoError(t, render.DecodeJSON(strings.NewReader(rr.Body.String()), &resp))
	assert.Equal(t, Response{UserID: "u1", Credits: 10}, resp)
}

func TestGetCredits_Errors(t *testing.T) {
	m := new(MockCreditsProvider)
	m.On("GetCredits", mock.Anything, "u1").Return(0, errors.New("timeout"))

	rr := httptest.NewRecorder()
	GetCredits(slog.Default(), m).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/user/credits", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/user/credits", nil)
	req = req.WithContext(identity.WithUser(req.Context(), "u1"))
	rr = httptest.NewRecorder()
	GetCredits(slog.Default(), m).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
