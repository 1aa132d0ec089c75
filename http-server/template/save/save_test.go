package save

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doe-studio/internal/storage"
)

type MockTemplateCreator struct {
	mock.Mock
}

func (m *MockTemplateCreator) CreateTemplate(ctx context.Context, t storage.Template) (int64, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTemplateCreator) GetTemplate(ctx context.Context, id int64) (*storage.Template, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*storage.Template)
	return t, args.Error(1)
}

func TestSaveTemplateAdmin_Success(t *testing.T) {
	mockStorage := new(MockTemplateCreator)
	mockStorage.On("CreateTemplate", mock.Anything, mock.MatchedBy(func(tpl storage.Template) bool {
		var params map[string]any
		if err := json.Unmarshal(tpl.Parameters, &params); err != nil {
			return false
		}
		return tpl.Name == "Splitter 1x5" && tpl.Mode == "1d_splitter" && tpl.IsActive &&
			params["mode"] == "1d_splitter"
	})).Return(int64(4), nil)
	mockStorage.On("GetTemplate", mock.Anything, int64(4)).Return(&storage.Template{ID: 4, Name: "Splitter 1x5"}, nil)

	body := `{"name":"Splitter 1x5","mode":"1d_splitter","parameters":{"splitterCount":"5"},"displayOrder":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/templates", strings.NewReader(body))
	rr := httptest.NewRecorder()

	SaveTemplateAdmin(slog.Default(), mockStorage).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	mockStorage.AssertExpectations(t)
}

func TestSaveTemplateAdmin_BadRequest(t *testing.T) {
	mockStorage := new(MockTemplateCreator)

	for _, body := range []string{
		`{"mode":"diffuser"}`,
		`{"name":"x","mode":"hologram"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/templates", strings.NewReader(body))
		rr := httptest.NewRecorder()
		SaveTemplateAdmin(slog.Default(), mockStorage).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	mockStorage.AssertNotCalled(t, "CreateTemplate", mock.Anything, mock.Anything)
}

func TestSaveTemplateAdmin_StorageError(t *testing.T) {
	mockStorage := new(MockTemplateCreator)
	mockStorage.On("CreateTemplate", mock.Anything, mock.Anything).Return(int64(0), errors.New("duplicate"))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/templates", strings.NewReader(`{"name":"x","mode":"prism"}`))
	rr := httptest.NewRecorder()
	SaveTemplateAdmin(slog.Default(), mockStorage).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
