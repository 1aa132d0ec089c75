package update

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

type DesignUpdater interface {
	UpdateDesign(ctx context.Context, userID string, id int64, u studio.DesignUpdate) (*storage.Design, error)
}

func UpdateDesign(log *slog.Logger, svc DesignUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.UpdateDesign"

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

		var req studio.DesignUpdate
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		d, err := svc.UpdateDesign(ctx, userID, id, req)
		if err != nil {
			switch {
			case errors.Is(err, studio.ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, storage.ErrNotFound):
				http.Error(w, "Design not found", http.StatusNotFound)
			default:
				log.With(
					slog.String("op", op),
					slog.Int64("design_id", id),
					slog.String("error", err.Error()),
				).Error("Failed to update design")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, r, d)
	}
}
