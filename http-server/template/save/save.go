package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"doe-studio/internal/doe"
	"doe-studio/internal/storage"
)

type TemplateCreator interface {
	CreateTemplate(ctx context.Context, t storage.Template) (int64, error)
	GetTemplate(ctx context.Context, id int64) (*storage.Template, error)
}

type Request struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Mode         string  `json:"mode"`
	Category     *string `json:"category"`
	Parameters   doe.Raw `json:"parameters"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	IsActive     *bool   `json:"isActive"`
	DisplayOrder int     `json:"displayOrder"`
}

// SaveTemplateAdmin создаёт шаблон. Параметры нормализуются так же, как
// при сохранении дизайна, режим берётся из поля mode.
func SaveTemplateAdmin(log *slog.Logger, templates TemplateCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.SaveTemplateAdmin"

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "ошибка парсинга JSON", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if !doe.Mode(req.Mode).Valid() {
			http.Error(w, "unknown mode", http.StatusBadRequest)
			return
		}

		raw := req.Parameters.Clone()
		raw[doe.FieldMode] = req.Mode
		normalized, _ := doe.Normalize(doe.FillDefaults(raw))

		params, err := json.Marshal(normalized)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to marshal parameters")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		id, err := templates.CreateTemplate(ctx, storage.Template{
			Name:         req.Name,
			Description:  req.Description,
			Mode:         req.Mode,
			Category:     req.Category,
			Parameters:   params,
			ThumbnailURL: req.ThumbnailURL,
			IsActive:     active,
			DisplayOrder: req.DisplayOrder,
		})
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to create template")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		t, err := templates.GetTemplate(ctx, id)
		if err != nil {
			log.With(slog.String("op", op), slog.Int64("template_id", id), slog.String("error", err.Error())).
				Error("Failed to reload template")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		log.Info("template created", slog.Int64("template_id", id), slog.String("mode", req.Mode))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, t)
	}
}
