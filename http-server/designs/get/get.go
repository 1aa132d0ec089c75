package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"doe-studio/internal/middleware/identity"
	"doe-studio/internal/storage"
)

type DesignProvider interface {
	ListDesigns(ctx context.Context, userID string) ([]storage.Design, error)
	GetDesign(ctx context.Context, id int64, userID string) (*storage.Design, error)
}

// GetDesigns отдаёт все дизайны пользователя, свежие первыми.
func GetDesigns(log *slog.Logger, designs DesignProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.GetDesigns"

		userID, ok := identity.UserID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := designs.ListDesigns(ctx, userID)
		if err != nil {
			log.With(
				slog.String("op", op),
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			).Error("Failed to list designs")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, list)
	}
}

func GetDesign(log *slog.Logger, designs DesignProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.GetDesign"

		userID, ok := identity.UserID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid design id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		d, err := designs.GetDesign(ctx, id, userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Design not found", http.StatusNotFound)
				return
			}
			log.With(
				slog.String("op", op),
				slog.Int64("design_id", id),
				slog.String("error", err.Error()),
			).Error("Failed to fetch design")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, d)
	}
}
