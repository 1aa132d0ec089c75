package geometry

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"doe-studio/internal/doe"
	"doe-studio/internal/optics"
	"doe-studio/internal/preview"
)

// LensResponse: подсказки рядом с полями линзы.
type LensResponse struct {
	Mode   doe.Mode        `json:"mode"`
	Hint   optics.LensHint `json:"hint"`
	Size   int             `json:"arraySize"`
	Issues []doe.Issue     `json:"issues,omitempty"`
}

// LensHint returns reference DOF and the max diffraction angle of a lens or
// lens array parameter set.
func LensHint(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.geometry.LensHint"

		raw, ok := decodeRaw(log, op, w, r)
		if !ok {
			return
		}

		params, _, issues := doe.Load(raw)

		var (
			opts doe.LensOptions
			size = 1
		)
		switch p := params.(type) {
		case doe.Lens:
			opts = p.LensOptions
		case doe.LensArray:
			opts = p.LensOptions
			size = p.Size
		default:
			http.Error(w, "mode must be lens or lens_array", http.StatusBadRequest)
			return
		}

		c := params.Base()
		hint, ok := optics.LensHintFor(c.WavelengthNm, c.DiameterMm, opts.FocalLengthMm, size)
		if !ok {
			http.Error(w, "degenerate lens geometry", http.StatusUnprocessableEntity)
			return
		}

		render.JSON(w, r, LensResponse{Mode: c.Mode, Hint: hint, Size: size, Issues: issues})
	}
}

// ToleranceResponse is the tolerance engine output for a parameter set.
type ToleranceResponse struct {
	optics.ToleranceHint
	FullAngleDeg     float64     `json:"fullAngleDeg"`
	AngularArraySize *int        `json:"angularArraySize,omitempty"`
	PixelArraySize   int         `json:"pixelArraySize"`
	Issues           []doe.Issue `json:"issues,omitempty"`
}

func ToleranceHint(log *slog.Logger, opts preview.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.geometry.ToleranceHint"

		raw, ok := decodeRaw(log, op, w, r)
		if !ok {
			return
		}

		params, _, issues := doe.Load(raw)
		hint := preview.Hint(params, opts)
		angles := preview.ResolveAngles(params)

		resp := ToleranceResponse{
			ToleranceHint:  hint,
			FullAngleDeg:   angles.FullDeg,
			PixelArraySize: optics.ArraySizeFromPixels(hint.MaxEffectivePixels),
			Issues:         issues,
		}
		c := params.Base()
		if n, ok := optics.AngularArraySize(c.WavelengthNm, c.DiameterMm, angles.FullDeg); ok && angles.OK {
			resp.AngularArraySize = &n
		}

		render.JSON(w, r, resp)
	}
}

func decodeRaw(log *slog.Logger, op string, w http.ResponseWriter, r *http.Request) (doe.Raw, bool) {
	var raw doe.Raw
	if err := render.DecodeJSON(r.Body, &raw); err != nil {
		log.With(slog.String("op", op), slog.String("error", err.Error())).Warn("bad request body")
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return nil, false
	}
	if raw == nil {
		raw = doe.Raw{}
	}
	return raw, true
}
