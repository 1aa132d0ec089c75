// Package optics содержит расчёты геометрии ДОЭ и предела разрешения.
// Все функции чистые: вырожденные входы дают ok=false или фиксированный
// fallback, ошибок не возвращают.
package optics

import "math"

// DefaultLensArraySize is used when the lens array size is missing,
// unparseable or not positive.
const DefaultLensArraySize = 5

func radToDeg(r float64) float64 { return r * 180 / math.Pi }

func degToRad(d float64) float64 { return d * math.Pi / 180 }

// EquivalentFullAngle converts a target size at a working distance into the
// full angle in degrees: 2*atan((size/2)/distance). ok is false when the
// distance is infinite or not positive, or the size is not positive; the
// derived angle is then simply not shown.
func EquivalentFullAngle(sizeMm, distanceMm float64) (float64, bool) {
	if math.IsInf(distanceMm, 0) || math.IsNaN(distanceMm) || distanceMm <= 0 {
		return 0, false
	}
	if math.IsNaN(sizeMm) || sizeMm <= 0 {
		return 0, false
	}
	half := math.Atan((sizeMm / 2) / distanceMm)
	return radToDeg(2 * half), true
}

// NumericalAperture is (D/2)/f.
func NumericalAperture(diameterMm, focalLengthMm float64) (float64, bool) {
	if diameterMm <= 0 || focalLengthMm <= 0 {
		return 0, false
	}
	return (diameterMm / 2) / focalLengthMm, true
}

// ReferenceDOF returns the lens depth of focus λ/NA² in millimeters.
func ReferenceDOF(wavelengthNm, diameterMm, focalLengthMm float64) (float64, bool) {
	na, ok := NumericalAperture(diameterMm, focalLengthMm)
	if !ok || wavelengthNm <= 0 {
		return 0, false
	}
	lambdaMm := wavelengthNm / 1e6
	return lambdaMm / (na * na), true
}

// MaxDiffractionHalfAngle returns atan((D/2)/f) in degrees.
func MaxDiffractionHalfAngle(diameterMm, focalLengthMm float64) (float64, bool) {
	na, ok := NumericalAperture(diameterMm, focalLengthMm)
	if !ok {
		return 0, false
	}
	return radToDeg(math.Atan(na)), true
}

// LensletDiameter is the per-lenslet aperture of an N×N lens array.
func LensletDiameter(diameterMm float64, arraySize int) float64 {
	if arraySize < 1 {
		arraySize = DefaultLensArraySize
	}
	return diameterMm / float64(arraySize)
}

// LensArrayReferenceDOF is ReferenceDOF with the lenslet aperture.
func LensArrayReferenceDOF(wavelengthNm, diameterMm, focalLengthMm float64, arraySize int) (float64, bool) {
	return ReferenceDOF(wavelengthNm, LensletDiameter(diameterMm, arraySize), focalLengthMm)
}

// LensArrayMaxDiffractionHalfAngle is MaxDiffractionHalfAngle with the lenslet aperture.
func LensArrayMaxDiffractionHalfAngle(diameterMm, focalLengthMm float64, arraySize int) (float64, bool) {
	return MaxDiffractionHalfAngle(LensletDiameter(diameterMm, arraySize), focalLengthMm)
}

// LensHint bundles the lens-mode derived values shown next to the inputs.
type LensHint struct {
	NumericalAperture   float64 `json:"numericalAperture"`
	ReferenceDOFMm      float64 `json:"referenceDofMm"`
	MaxHalfAngleDeg     float64 `json:"maxHalfAngleDeg"`
	EffectiveDiameterMm float64 `json:"effectiveDiameterMm"`
}

// LensHintFor computes the hint for a single lens (arraySize == 1) or a
// lens array. ok is false for degenerate geometry.
func LensHintFor(wavelengthNm, diameterMm, focalLengthMm float64, arraySize int) (LensHint, bool) {
	d := LensletDiameter(diameterMm, arraySize)

	na, ok := NumericalAperture(d, focalLengthMm)
	if !ok {
		return LensHint{}, false
	}
	dof, ok := ReferenceDOF(wavelengthNm, d, focalLengthMm)
	if !ok {
		return LensHint{}, false
	}
	angle, _ := MaxDiffractionHalfAngle(d, focalLengthMm)

	return LensHint{
		NumericalAperture:   na,
		ReferenceDOFMm:      dof,
		MaxHalfAngleDeg:     angle,
		EffectiveDiameterMm: d,
	}, true
}
