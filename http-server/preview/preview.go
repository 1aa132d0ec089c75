package preview

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"doe-studio/internal/doe"
	"doe-studio/internal/service/studio"
)

type Previewer interface {
	Preview(raw doe.Raw) studio.PreviewResult
}

// Preview считает превью текущего состояния формы, ничего не сохраняя.
func Preview(log *slog.Logger, svc Previewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.preview.Preview"

		var raw doe.Raw
		if err := render.DecodeJSON(r.Body, &raw); err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Warn("bad preview request")
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if raw == nil {
			raw = doe.Raw{}
		}

		render.JSON(w, r, svc.Preview(raw))
	}
}
