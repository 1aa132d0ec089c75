// Package identity достаёт id пользователя, который проставляет шлюз в
// заголовке X-User-ID.
package identity

import (
	"context"
	"net/http"
	"strings"
)

const Header = "X-User-ID"

// maxIDLength совпадает с users.id VARCHAR(255)
const maxIDLength = 255

type ctxKey struct{}

// RequireUser rejects requests without a usable user id and stores the id
// in the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" || len(id) > maxIDLength {
			http.Error(w, "missing or invalid "+Header, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
	})
}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the id stored by RequireUser.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
