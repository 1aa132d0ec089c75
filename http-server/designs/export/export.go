package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"doe-studio/internal/middleware/identity"
	exp "doe-studio/internal/service/export"
	"doe-studio/internal/storage"
)

type Exporter interface {
	Export(ctx context.Context, userID string, id int64, f exp.Format) (*exp.File, error)
}

// ExportDesign отдаёт дизайн файлом: /api/designs/{id}/export/{format}.
func ExportDesign(log *slog.Logger, svc Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.ExportDesign"

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
		format, ok := exp.ParseFormat(chi.URLParam(r, "format"))
		if !ok {
			http.Error(w, "format must be one of pdf, xlsx, dxf", http.StatusBadRequest)
			return
		}

		// свип по длинам волн в xlsx считается дольше обычного запроса
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		file, err := svc.Export(ctx, userID, id, format)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Design not found", http.StatusNotFound)
				return
			}
			log.With(
				slog.String("op", op),
				slog.Int64("design_id", id),
				slog.String("format", string(format)),
				slog.String("error", err.Error()),
			).Error("Failed to export design")
			http.Error(w, "Failed to export design", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))

		if _, err := w.Write(file.Data); err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to write export")
		}
	}
}
