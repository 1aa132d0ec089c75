package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"doe-studio/internal/doe"
	"doe-studio/internal/storage"
)

type TemplateUpdater interface {
	UpdateTemplate(ctx context.Context, id int64, p storage.TemplatePatch) error
	GetTemplate(ctx context.Context, id int64) (*storage.Template, error)
}

// Request: частичное обновление, отсутствующие поля не меняются.
type Request struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Mode         *string `json:"mode"`
	Category     *string `json:"category"`
	Parameters   doe.Raw `json:"parameters"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	IsActive     *bool   `json:"isActive"`
	DisplayOrder *int    `json:"displayOrder"`
}

func UpdateTemplateAdmin(log *slog.Logger, templates TemplateUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.template.UpdateTemplateAdmin"

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "неверный ID шаблона", http.StatusBadRequest)
			return
		}

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "ошибка парсинга JSON", http.StatusBadRequest)
			return
		}
		if req.Name != nil && *req.Name == "" {
			http.Error(w, "name must not be empty", http.StatusBadRequest)
			return
		}
		if req.Mode != nil && !doe.Mode(*req.Mode).Valid() {
			http.Error(w, "unknown mode", http.StatusBadRequest)
			return
		}

		patch := storage.TemplatePatch{
			Name:         req.Name,
			Description:  req.Description,
			Mode:         req.Mode,
			Category:     req.Category,
			ThumbnailURL: req.ThumbnailURL,
			IsActive:     req.IsActive,
			DisplayOrder: req.DisplayOrder,
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if req.Parameters != nil {
			raw := req.Parameters.Clone()
			if req.Mode != nil {
				raw[doe.FieldMode] = *req.Mode
			} else if !raw.Has(doe.FieldMode) {
				// режим остаётся прежним, параметры должны с ним совпадать
				cur, err := templates.GetTemplate(ctx, id)
				if err != nil {
					writeError(w, log, op, id, err)
					return
				}
				raw[doe.FieldMode] = cur.Mode
			}
			normalized, _ := doe.Normalize(doe.FillDefaults(raw))
			params, err := json.Marshal(normalized)
			if err != nil {
				writeError(w, log, op, id, err)
				return
			}
			patch.Parameters = params
			mode := normalized.String(doe.FieldMode)
			patch.Mode = &mode
		}

		if patch.Empty() {
			http.Error(w, "nothing to update", http.StatusBadRequest)
			return
		}

		if err := templates.UpdateTemplate(ctx, id, patch); err != nil {
			writeError(w, log, op, id, err)
			return
		}

		t, err := templates.GetTemplate(ctx, id)
		if err != nil {
			writeError(w, log, op, id, err)
			return
		}

		log.Info("template updated", slog.Int64("template_id", id))
		render.JSON(w, r, t)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, op string, id int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}
	log.With(
		slog.String("op", op),
		slog.Int64("template_id", id),
		slog.String("error", err.Error()),
	).Error("Failed to update template")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
