package preview

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
	"doe-studio/internal/service/studio"
	"doe-studio/internal/storage"
)

type PreviewRefresher interface {
	RefreshPreview(ctx context.Context, userID string, id int64) (*studio.PreviewResult, error)
}

// RefreshDesignPreview пересчитывает превью сохранённого дизайна и
// записывает его вместе с исправленными параметрами.
func RefreshDesignPreview(log *slog.Logger, svc PreviewRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.RefreshDesignPreview"

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

		res, err := svc.RefreshPreview(ctx, userID, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Design not found", http.StatusNotFound)
				return
			}
			log.With(
				slog.String("op", op),
				slog.Int64("design_id", id),
				slog.String("error", err.Error()),
			).Error("Failed to refresh preview")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, res)
	}
}
