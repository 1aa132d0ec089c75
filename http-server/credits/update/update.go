package update

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type CreditsSetter interface {
	SetCredits(ctx context.Context, userID string, value int) error
}

type Request struct {
	Credits *int `json:"credits"`
}

type Response struct {
	UserID  string `json:"userId"`
	Credits int    `json:"credits"`
}

// SetCreditsAdmin выставляет баланс пользователя: PUT /api/admin/users/{id}/credits.
func SetCreditsAdmin(log *slog.Logger, users CreditsSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.credits.SetCreditsAdmin"

		userID := chi.URLParam(r, "id")
		if userID == "" || len(userID) > 255 {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "ошибка парсинга JSON", http.StatusBadRequest)
			return
		}
		if req.Credits == nil || *req.Credits < 0 {
			http.Error(w, "credits must be a non-negative number", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := users.SetCredits(ctx, userID, *req.Credits); err != nil {
			log.With(
				slog.String("op", op),
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			).Error("Failed to set credits")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		log.Info("credits updated", slog.String("user_id", userID), slog.Int("credits", *req.Credits))
		render.JSON(w, r, Response{UserID: userID, Credits: *req.Credits})
	}
}
