// Package preview собирает сводку по набору параметров ДОЭ: углы, шаг
// пикселя, бюджеты точек и предупреждения. Все функции чистые.
package preview

import (
	"fmt"
	"math"

	"doe-studio/internal/doe"
	"doe-studio/internal/optics"
)

const (
	WarnLargeAngle     = "Large diffraction angle (>45°) may result in reduced efficiency and increased aberrations."
	WarnTightTolerance = "Very tight tolerance (<0.5%) may require significantly longer optimization time."
	WarnLargeArray     = "Large array size may require extended computation time for optimization."
)

const (
	largeAngleDeg        = 45.0
	tightTolerancePct    = 0.5
	largeArraySpots      = 10000
	longComputationSpots = 5000

	estimatedEfficiency = "~75-85%"
	computeShort        = "~1-3 min"
	computeLong         = "~5-10 min"

	notApplicable = "N/A"
)

// Summary is the derived preview of one parameter set.
type Summary struct {
	DOEMode             doe.Mode `json:"doeMode"`
	TotalSpots          int      `json:"totalSpots"`
	PixelPitch          string   `json:"pixelPitch"`
	DiffractionAngle    string   `json:"diffractionAngle"`
	FullAngle           string   `json:"fullAngle"`
	EstimatedEfficiency string   `json:"estimatedEfficiency"`
	ComputationTime     string   `json:"computationTime"`
	EquivalentFullAngle string   `json:"equivalentFullAngle,omitempty"`
	ActualTolerance     string   `json:"actualTolerance,omitempty"`
	MinTolerancePercent float64  `json:"minTolerancePercent"`
	EffectivePixels     *int     `json:"effectivePixels,omitempty"`
	MaxSplits           *int     `json:"maxSplits,omitempty"`
	MaxArraySize        *int     `json:"maxArraySize,omitempty"`
	ReferenceDOF        string   `json:"referenceDof,omitempty"`
}

// Data is what the studio shows and stores next to the parameters.
type Data struct {
	IsValid  bool        `json:"isValid"`
	Summary  Summary     `json:"summary"`
	Warnings []string    `json:"warnings"`
	Issues   []doe.Issue `json:"issues,omitempty"`
}

// Options tune the calculation; the zero value uses the defaults.
type Options struct {
	PixelCeiling int
}

// FromRaw loads a raw parameter set and builds its preview. The normalized
// parameter set is returned so callers can persist the corrected form.
func FromRaw(raw doe.Raw, opts Options) (Data, doe.Raw) {
	params, normalized, issues := doe.Load(raw)
	data := Build(params, opts)
	data.Issues = issues
	data.IsValid = len(issues) == 0
	return data, normalized
}

// Angles are the resolved angles of a parameter set.
type Angles struct {
	FullDeg float64
	// OK is false when no angle can be derived (degenerate geometry).
	OK bool
	// Equivalent is set when the full angle came from a target size.
	Equivalent bool
}

// HalfDeg is the maximum diffraction half-angle.
func (a Angles) HalfDeg() float64 { return a.FullDeg / 2 }

// ResolveAngles returns the full diffraction angle of p. For size targets
// at a finite distance it is the equivalent angle of the target size.
func ResolveAngles(p doe.Params) Angles {
	c := p.Base()

	switch v := p.(type) {
	case doe.Lens:
		half, ok := optics.MaxDiffractionHalfAngle(c.DiameterMm, v.FocalLengthMm)
		return Angles{FullDeg: 2 * half, OK: ok}
	case doe.LensArray:
		half, ok := optics.LensArrayMaxDiffractionHalfAngle(c.DiameterMm, v.FocalLengthMm, v.Size)
		return Angles{FullDeg: 2 * half, OK: ok}
	case doe.Prism:
		return Angles{FullDeg: 2 * v.DeflectionAngleDeg, OK: v.DeflectionAngleDeg > 0}
	case doe.Targeted:
		t := v.TargetSpec()
		if sizeTarget(c, t) {
			if eq, ok := optics.EquivalentFullAngle(t.SizeMm, c.DistanceMm); ok {
				return Angles{FullDeg: eq, OK: true, Equivalent: true}
			}
		}
		return Angles{FullDeg: t.AngleDeg, OK: t.AngleDeg > 0}
	}
	return Angles{}
}

// sizeTarget reports whether the size side of t is authoritative.
func sizeTarget(c doe.Common, t doe.Target) bool {
	return t.Type == optics.TargetSize && !c.Infinite() && t.SizeMm > 0
}

// TolerancePercent is the user tolerance of p.
func TolerancePercent(p doe.Params) float64 {
	switch v := p.(type) {
	case doe.Lens:
		return v.TolerancePercent
	case doe.LensArray:
		return v.TolerancePercent
	case doe.Prism:
		return v.TolerancePercent
	case doe.Targeted:
		return v.TargetSpec().TolerancePercent
	}
	return 0
}

// Hint runs the tolerance engine for p.
func Hint(p doe.Params, opts Options) optics.ToleranceHint {
	c := p.Base()
	a := ResolveAngles(p)

	in := optics.ToleranceInput{
		WavelengthNm: c.WavelengthNm,
		DiameterMm:   c.DiameterMm,
		Type:         optics.TargetAngle,
		HalfAngleDeg: a.HalfDeg(),
		PixelCeiling: opts.PixelCeiling,
	}
	if t, ok := p.(doe.Targeted); ok && sizeTarget(c, t.TargetSpec()) {
		in.Type = optics.TargetSize
		in.TargetSizeMm = t.TargetSpec().SizeMm
	}
	if !a.OK {
		in.HalfAngleDeg = 0
	}
	return optics.MinTolerance(in)
}

// TotalSpots is rows×cols of the mode's grid, saturated at math.MaxInt.
func TotalSpots(p doe.Params) int {
	rows, cols := p.Grid()
	if rows <= 0 || cols <= 0 {
		return 0
	}
	if rows > math.MaxInt/cols {
		return math.MaxInt
	}
	return rows * cols
}

// Build computes the preview of already typed parameters.
func Build(p doe.Params, opts Options) Data {
	c := p.Base()
	rows, cols := p.Grid()
	a := ResolveAngles(p)
	tol := TolerancePercent(p)
	hint := Hint(p, opts)

	s := Summary{
		DOEMode:             c.Mode,
		TotalSpots:          TotalSpots(p),
		PixelPitch:          pixelPitch(c.DiameterMm, rows, cols),
		DiffractionAngle:    notApplicable,
		FullAngle:           notApplicable,
		EstimatedEfficiency: estimatedEfficiency,
		ComputationTime:     computeShort,
		MinTolerancePercent: hint.MinTolerancePercent,
	}

	if a.OK {
		s.DiffractionAngle = fmt.Sprintf("%.2f°", a.HalfDeg())
		s.FullAngle = fmt.Sprintf("%.2f°", a.FullDeg)
		s.ActualTolerance = fmt.Sprintf("%.3f°", tol/100*a.FullDeg)
	}
	if a.Equivalent {
		s.EquivalentFullAngle = s.FullAngle
	}
	if t, ok := p.(doe.Targeted); ok && sizeTarget(c, t.TargetSpec()) {
		s.ActualTolerance = fmt.Sprintf("%.3f mm", tol/100*t.TargetSpec().SizeMm)
	}

	switch v := p.(type) {
	case doe.Custom:
		s.EffectivePixels = intPtr(hint.MaxEffectivePixels)
	case doe.Splitter1D:
		s.MaxSplits = intPtr(hint.MaxEffectivePixels)
	case doe.SpotProjector2D:
		s.MaxArraySize = intPtr(optics.ArraySizeFromPixels(hint.MaxEffectivePixels))
	case doe.Lens:
		if dof, ok := optics.ReferenceDOF(c.WavelengthNm, c.DiameterMm, v.FocalLengthMm); ok {
			s.ReferenceDOF = fmt.Sprintf("%.4f mm", dof)
		}
	case doe.LensArray:
		if dof, ok := optics.LensArrayReferenceDOF(c.WavelengthNm, c.DiameterMm, v.FocalLengthMm, v.Size); ok {
			s.ReferenceDOF = fmt.Sprintf("%.4f mm", dof)
		}
	}

	if s.TotalSpots > longComputationSpots {
		s.ComputationTime = computeLong
	}

	w := make([]string, 0, 3)
	if a.OK && a.FullDeg > largeAngleDeg {
		w = append(w, WarnLargeAngle)
	}
	if tol < tightTolerancePct {
		w = append(w, WarnTightTolerance)
	}
	if s.TotalSpots > largeArraySpots {
		w = append(w, WarnLargeArray)
	}

	return Data{IsValid: true, Summary: s, Warnings: w}
}

func pixelPitch(diameterMm float64, rows, cols int) string {
	n := max(rows, cols)
	if n <= 0 || diameterMm <= 0 {
		return notApplicable
	}
	return fmt.Sprintf("%.3f mm", diameterMm/float64(n))
}

func intPtr(v int) *int { return &v }
