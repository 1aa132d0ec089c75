package delete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doe-studio/internal/middleware/identity"
	"doe-studio/internal/storage"
)

type MockDesignDeleter struct {
	mock.Mock
}

func (m *MockDesignDeleter) DeleteDesign(ctx context.Context, id int64, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

func request(id string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/api/designs/"+id, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(identity.WithUser(ctx, "u1"))
}

func TestDeleteDesign(t *testing.T) {
	m := new(MockDesignDeleter)
	m.On("DeleteDesign", mock.Anything, int64(1), "u1").Return(nil)
	m.On("DeleteDesign", mock.Anything, int64(2), "u1").Return(storage.ErrNotFound)
	m.On("DeleteDesign", mock.Anything, int64(3), "u1").Return(errors.New("locked"))

	for id, want := range map[string]int{
		"1":   http.StatusNoContent,
		"2":   http.StatusNotFound,
		"3":   http.StatusInternalServerError,
		"0":   http.StatusBadRequest,
		"abc": http.StatusBadRequest,
	} {
		rr := httptest.NewRecorder()
		DeleteDesign(slog.Default(), m).ServeHTTP(rr, request(id))
		assert.Equal(t, want, rr.Code, id)
	}
}
