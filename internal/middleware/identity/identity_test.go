package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireUser(t *testing.T) {
	var got string
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/designs", nil)
	req.Header.Set(Header, "  user-1 ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-1", got)
}

func TestRequireUser_Rejects(t *testing.T) {
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called")
	}))

	for _, v := range []string{"", "   ", strings.Repeat("x", maxIDLength+1)} {
		req := httptest.NewRequest(http.MethodGet, "/api/designs", nil)
		req.Header.Set(Header, v)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
}

func TestUserID_Missing(t *testing.T) {
	_, ok := UserID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
