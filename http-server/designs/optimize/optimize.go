package optimize

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
	opt "doe-studio/internal/optimize"
	"doe-studio/internal/service/studio"
	"doe-studio/internal/storage"
)

type Optimizer interface {
	StartOptimize(ctx context.Context, userID string, id int64) (opt.Job, error)
	OptimizeStatus(ctx context.Context, userID string, id int64) (opt.Job, error)
}

type ErrorResponse struct {
	Error string   `json:"error"`
	Job   *opt.Job `json:"job,omitempty"`
}

// StartOptimization ставит оптимизацию дизайна в очередь и сразу
// возвращает задачу. Результат забирается через OptimizationStatus.
func StartOptimization(log *slog.Logger, svc Optimizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.StartOptimization"

		userID, id, ok := designParams(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		job, err := svc.StartOptimize(ctx, userID, id)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				http.Error(w, "Design not found", http.StatusNotFound)
			case errors.Is(err, storage.ErrNoCredits):
				writeJSON(w, r, http.StatusPaymentRequired, ErrorResponse{Error: "no optimization credits left"})
			case errors.Is(err, opt.ErrInFlight):
				writeJSON(w, r, http.StatusConflict, ErrorResponse{Error: "optimization already in progress", Job: &job})
			case errors.Is(err, studio.ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, opt.ErrClosed):
				http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			default:
				log.With(
					slog.String("op", op),
					slog.Int64("design_id", id),
					slog.String("error", err.Error()),
				).Error("Failed to start optimization")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		log.Info("optimization started",
			slog.Int64("design_id", id),
			slog.String("job_id", job.ID),
		)
		writeJSON(w, r, http.StatusAccepted, job)
	}
}

func OptimizationStatus(log *slog.Logger, svc Optimizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.designs.OptimizationStatus"

		userID, id, ok := designParams(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		job, err := svc.OptimizeStatus(ctx, userID, id)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				http.Error(w, "Design not found", http.StatusNotFound)
			case errors.Is(err, studio.ErrNoJob):
				http.Error(w, "No optimization for this design", http.StatusNotFound)
			default:
				log.With(
					slog.String("op", op),
					slog.Int64("design_id", id),
					slog.String("error", err.Error()),
				).Error("Failed to get optimization status")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, r, job)
	}
}

func designParams(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid design id", http.StatusBadRequest)
		return "", 0, false
	}
	return userID, id, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
