package optics

import "math"

// DefaultPixelCeiling caps every "max effective pixels" result.
const DefaultPixelCeiling = 3000

// FallbackMinTolerancePercent is returned together with the ceiling when
// the target specification is unusable.
const FallbackMinTolerancePercent = 0.1

// TargetType selects which target field is authoritative.
type TargetType string

const (
	TargetAngle TargetType = "angle"
	TargetSize  TargetType = "size"
)

// ToleranceHint is the diffraction-limited tolerance floor and the number
// of resolution elements that fit across the target.
type ToleranceHint struct {
	MinTolerancePercent float64 `json:"minTolerancePercent"`
	MaxEffectivePixels  int     `json:"maxEffectivePixels"`
}

// ToleranceInput describes one tolerance calculation. Only one of
// HalfAngleDeg / TargetSizeMm is used depending on Type.
type ToleranceInput struct {
	WavelengthNm float64
	DiameterMm   float64
	Type         TargetType
	HalfAngleDeg float64
	TargetSizeMm float64
	// PixelCeiling <= 0 means DefaultPixelCeiling.
	PixelCeiling int
}

func fallbackHint(ceiling int) ToleranceHint {
	return ToleranceHint{MinTolerancePercent: FallbackMinTolerancePercent, MaxEffectivePixels: ceiling}
}

// MinTolerance computes the tolerance hint.
//
// Angle mode: ratio = λ/D/cos(θ)/θ, maxPixels = floor(full/(ratio*full)).
// Size mode:  minRes = D/ceiling, ratio = minRes/S, maxPixels = floor(S/minRes).
//
// In angle mode the full angle cancels out, so maxPixels is floor(1/ratio);
// the unreduced expression is kept on purpose.
func MinTolerance(in ToleranceInput) ToleranceHint {
	ceiling := in.PixelCeiling
	if ceiling <= 0 {
		ceiling = DefaultPixelCeiling
	}

	lambdaMm := in.WavelengthNm / 1e6

	switch {
	case in.Type == TargetAngle && in.HalfAngleDeg > 0:
		if in.DiameterMm <= 0 || lambdaMm <= 0 {
			return fallbackHint(ceiling)
		}
		theta := degToRad(in.HalfAngleDeg)
		ratio := lambdaMm / in.DiameterMm / math.Cos(theta) / theta
		if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			return fallbackHint(ceiling)
		}
		full := 2 * theta
		pixels := math.Floor(full / (ratio * full))
		return ToleranceHint{
			MinTolerancePercent: ratio * 100,
			MaxEffectivePixels:  capPixels(pixels, ceiling),
		}

	case in.Type == TargetSize && in.TargetSizeMm > 0:
		if in.DiameterMm <= 0 {
			return fallbackHint(ceiling)
		}
		minRes := in.DiameterMm / float64(ceiling)
		pixels := math.Floor(in.TargetSizeMm / minRes)
		return ToleranceHint{
			MinTolerancePercent: (minRes / in.TargetSizeMm) * 100,
			MaxEffectivePixels:  capPixels(pixels, ceiling),
		}
	}

	return fallbackHint(ceiling)
}

func capPixels(pixels float64, ceiling int) int {
	if math.IsNaN(pixels) || pixels < 0 {
		return 0
	}
	if pixels > float64(ceiling) {
		return ceiling
	}
	return int(pixels)
}

// LegacyMinToleranceAngleDeg is the angular tolerance of the studio's
// spot-array estimate, kept exactly as the studio computes it: θ is the
// full angle and the diameter is divided by 1000 while the wavelength is
// divided by 1e6, so the units do not match. Do not use it for new figures;
// MinTolerance is the engine.
func LegacyMinToleranceAngleDeg(wavelengthNm, diameterMm, angleDeg float64) (float64, bool) {
	if wavelengthNm <= 0 || diameterMm <= 0 || angleDeg <= 0 {
		return 0, false
	}
	theta := degToRad(angleDeg)
	r := (wavelengthNm / 1e6) / (diameterMm / 1000) / math.Cos(theta) / theta
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, false
	}
	return radToDeg(r), true
}

// AngularArraySize is the studio's spot-array edge length:
// floor(sqrt(angle / LegacyMinToleranceAngleDeg(angle))). It is a separate
// estimate from floor(sqrt(MaxEffectivePixels)) and the two are not
// expected to agree. At 532nm, 12.7mm and 30° it gives 2.
func AngularArraySize(wavelengthNm, diameterMm, fullAngleDeg float64) (int, bool) {
	minTol, ok := LegacyMinToleranceAngleDeg(wavelengthNm, diameterMm, fullAngleDeg)
	if !ok {
		return 0, false
	}
	return int(math.Floor(math.Sqrt(fullAngleDeg / minTol))), true
}

// ArraySizeFromPixels turns a linear element count into an N×N edge length.
func ArraySizeFromPixels(pixels int) int {
	if pixels <= 0 {
		return 0
	}
	return int(math.Floor(math.Sqrt(float64(pixels))))
}
