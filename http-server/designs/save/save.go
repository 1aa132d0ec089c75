package save

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"doe-studio/internal/middleware/identity"
	"doe-studio/internal/service/studio"
	"doe-studio/internal/storage"
)

type DesignCreator interface {
	CreateDesign(ctx context.Context, userID string, in studio.NewDesign) (*storage.Design, error)
	CreateFromTemplate(ctx context.Context, userID string, templateID int64, name string) (*storage.Design, error)
}

func SaveDesign(log *slog.Logger, svc DesignCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.SaveDesign"

		userID, ok := identity.UserID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req studio.NewDesign
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		d, err := svc.CreateDesign(ctx, userID, req)
		if err != nil {
			writeError(log, op, w, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, d)
	}
}

type fromTemplateRequest struct {
	TemplateID int64  `json:"templateId"`
	Name       string `json:"name"`
}

// SaveDesignFromTemplate создаёт черновик из активного шаблона.
func SaveDesignFromTemplate(log *slog.Logger, svc DesignCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.SaveDesignFromTemplate"

		userID, ok := identity.UserID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req fromTemplateRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.TemplateID <= 0 {
			http.Error(w, "templateId is required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		d, err := svc.CreateFromTemplate(ctx, userID, req.TemplateID, req.Name)
		if err != nil {
			writeError(log, op, w, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, d)
	}
}

func writeError(log *slog.Logger, op string, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studio.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "Template not found", http.StatusNotFound)
	default:
		log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to create design")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
