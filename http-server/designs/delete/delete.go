package delete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"doe-studio/internal/middleware/identity"
	"doe-studio/internal/storage"
)

type DesignDeleter interface {
	DeleteDesign(ctx context.Context, id int64, userID string) error
}

func DeleteDesign(log *slog.Logger, designs DesignDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.DeleteDesign"

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

		if err := designs.DeleteDesign(ctx, id, userID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Design not found", http.StatusNotFound)
				return
			}
			log.With(
				slog.String("op", op),
				slog.Int64("design_id", id),
				slog.String("error", err.Error()),
			).Error("Failed to delete design")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
