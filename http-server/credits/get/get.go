package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"doe-studio/internal/middleware/identity"
)

type CreditsProvider interface {
	GetCredits(ctx context.Context, userID string) (int, error)
}

type Response struct {
	UserID  string `json:"userId"`
	Credits int    `json:"credits"`
}

// GetCredits отдаёт остаток кредитов на оптимизацию текущего пользователя.
func GetCredits(log *slog.Logger, users CreditsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.credits.GetCredits"

		userID, ok := identity.UserID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		n, err := users.GetCredits(ctx, userID)
		if err != nil {
			log.With(
				slog.String("op", op),
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			).Error("Failed to fetch credits")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, Response{UserID: userID, Credits: n})
	}
}
