package analyze

import (
	"errors"
	"image"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"doe-studio/internal/pattern"
)

// MaxUploadBytes ограничивает размер загружаемого изображения.
const MaxUploadBytes = 20 << 20

// AnalyzePattern обрабатывает загрузку своего паттерна (multipart, поле
// "file") или встроенный пресет (поле "preset").
func AnalyzePattern(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.pattern.AnalyzePattern"

		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
		if err := r.ParseMultipartForm(MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Warn("bad upload")
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}

		rs, err := resizeFromForm(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var img image.Image
		if preset := r.FormValue("preset"); preset != "" && preset != "none" {
			img, err = pattern.Preset(preset)
			if err != nil {
				http.Error(w, "unknown preset", http.StatusBadRequest)
				return
			}
		} else {
			file, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "missing file or preset", http.StatusBadRequest)
				return
			}
			defer file.Close()

			img, _, err = pattern.Decode(file)
			if err != nil {
				if errors.Is(err, pattern.ErrTooLarge) {
					http.Error(w, "image too large", http.StatusUnprocessableEntity)
					return
				}
				log.With(slog.String("op", op), slog.String("error", err.Error())).Warn("cannot decode pattern")
				http.Error(w, "unsupported or corrupt image", http.StatusUnprocessableEntity)
				return
			}
		}

		res, err := pattern.Analyze(img, rs)
		if err != nil {
			if errors.Is(err, pattern.ErrEmptyImage) {
				http.Error(w, "empty image", http.StatusUnprocessableEntity)
				return
			}
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to analyze pattern")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, res)
	}
}

func resizeFromForm(r *http.Request) (pattern.Resize, error) {
	rs := pattern.Resize{Mode: r.FormValue("resizeMode"), Percentage: 100}
	if rs.Mode == "" {
		rs.Mode = pattern.ResizePercentage
	}

	switch rs.Mode {
	case pattern.ResizePercentage:
		if v := r.FormValue("percentage"); v != "" {
			p, err := strconv.ParseFloat(v, 64)
			if err != nil || p <= 0 {
				return rs, errors.New("percentage must be a positive number")
			}
			rs.Percentage = p
		}
	case pattern.ResizePixels:
		w, errW := strconv.Atoi(r.FormValue("width"))
		h, errH := strconv.Atoi(r.FormValue("height"))
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			return rs, errors.New("width and height must be positive integers")
		}
		rs.Width, rs.Height = w, h
	default:
		return rs, errors.New("resizeMode must be percentage or pixels")
	}
	return rs, nil
}
