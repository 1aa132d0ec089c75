package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doe-studio/internal/middleware/identity"
	"doe-studio/internal/service/studio"
	"doe-studio/internal/storage"
)

type MockDesignUpdater struct {
	mock.Mock
}

func (m *MockDesignUpdater) UpdateDesign(ctx context.Context, userID string, id int64, u studio.DesignUpdate) (*storage.Design, error) {
	args := m.Called(ctx, userID, id, u)
	d, _ := args.Get(0).(*storage.Design)
	return d, args.Error(1)
}

func request(id, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/api/designs/"+id, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(identity.WithUser(ctx, "u1"))
}

func TestUpdateDesign(t *testing.T) {
	m := new(MockDesignUpdater)
	m.On("UpdateDesign", mock.Anything, "u1", int64(1), mock.MatchedBy(func(u studio.DesignUpdate) bool {
		return u.Name != nil && *u.Name == "renamed" && u.Parameters == nil
	})).Return(&storage.Design{ID: 1, Name: "renamed"}, nil)
	m.On("UpdateDesign", mock.Anything, "u1", int64(2), mock.Anything).Return(nil, storage.ErrNotFound)
	m.On("UpdateDesign", mock.Anything, "u1", int64(3), mock.Anything).
		Return(nil, fmt.Errorf("op: %w: nothing to update", studio.ErrInvalidInput))
	m.On("UpdateDesign", mock.Anything, "u1", int64(4), mock.Anything).Return(nil, errors.New("db down"))

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"ok", "1", `{"name":"renamed"}`, http.StatusOK},
		{"not found", "2", `{"name":"x"}`, http.StatusNotFound},
		{"invalid", "3", `{}`, http.StatusBadRequest},
		{"storage failure", "4", `{"name":"x"}`, http.StatusInternalServerError},
		{"bad id", "x", `{"name":"x"}`, http.StatusBadRequest},
		{"bad body", "1", `[`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			UpdateDesign(slog.Default(), m).ServeHTTP(rr, request(tt.id, tt.body))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
