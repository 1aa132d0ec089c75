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

	"doe-studio/internal/storage"
)

type TemplateProvider interface {
	ListTemplates(ctx context.Context, all bool) ([]storage.Template, error)
	GetTemplate(ctx context.Context, id int64) (*storage.Template, error)
}

// GetTemplates отдаёт активные шаблоны для галереи.
func GetTemplates(log *slog.Logger, templates TemplateProvider) http.HandlerFunc {
	return listTemplates(log, templates, false, "handlers.template.GetTemplates")
}

// GetAllTemplatesAdmin отдаёт все шаблоны, включая скрытые.
func GetAllTemplatesAdmin(log *slog.Logger, templates TemplateProvider) http.HandlerFunc {
	return listTemplates(log, templates, true, "handlers.template.GetAllTemplatesAdmin")
}

func listTemplates(log *slog.Logger, templates TemplateProvider, all bool, op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := templates.ListTemplates(ctx, all)
		if err != nil {
			log.With(
				slog.String("op", op),
				slog.String("error", err.Error()),
			).Error("Failed to fetch templates")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, list)
	}
}

// GetTemplate отдаёт один шаблон. Неактивный шаблон пользователю не виден.
func GetTemplate(log *slog.Logger, templates TemplateProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.GetTemplate"

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid template id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		t, err := templates.GetTemplate(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Template not found", http.StatusNotFound)
				return
			}
			log.With(
				slog.String("op", op),
				slog.Int64("template_id", id),
				slog.String("error", err.Error()),
			).Error("Failed to fetch template")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !t.IsActive {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}

		render.JSON(w, r, t)
	}
}
