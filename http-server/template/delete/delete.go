package delete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"doe-studio/internal/storage"
)

type TemplateDeleter interface {
	DeleteTemplate(ctx context.Context, id int64) error
}

// DeleteTemplateAdmin удаляет шаблон. Созданные из него дизайны остаются.
func DeleteTemplateAdmin(log *slog.Logger, templates TemplateDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.DeleteTemplateAdmin"

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "неверный ID шаблона", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := templates.DeleteTemplate(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Template not found", http.StatusNotFound)
				return
			}
			log.With(
				slog.String("op", op),
				slog.Int64("template_id", id),
				slog.String("error", err.Error()),
			).Error("Failed to delete template")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
