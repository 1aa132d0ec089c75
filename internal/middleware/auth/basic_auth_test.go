package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		password string
		want     int
	}{
		{"no header", func(r *http.Request) {}, "secret", http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer x") }, "secret", http.StatusUnauthorized},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth("admin", "nope") }, "secret", http.StatusUnauthorized},
		{"wrong user", func(r *http.Request) { r.SetBasicAuth("root", "secret") }, "secret", http.StatusUnauthorized},
		{"valid", func(r *http.Request) { r.SetBasicAuth("admin", "secret") }, "secret", http.StatusNoContent},
		{"empty password configured", func(r *http.Request) { r.SetBasicAuth("admin", "") }, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/templates", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()

			BasicAuth("admin", tt.password)(ok).ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}
