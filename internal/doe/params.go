// Package doe описывает набор параметров ДОЭ: по одному типу на режим,
// заполнение значений по умолчанию и исправление несовместимых полей.
package doe

import (
	"math"

	"doe-studio/internal/optics"
)

// Mode is the DOE type discriminant.
type Mode string

const (
	ModeDiffuser        Mode = "diffuser"
	ModeSplitter1D      Mode = "1d_splitter"
	ModeSpotProjector2D Mode = "2d_spot_projector"
	ModeLens            Mode = "lens"
	ModeLensArray       Mode = "lens_array"
	ModePrism           Mode = "prism"
	ModeCustom          Mode = "custom"
)

// Modes lists every supported mode in UI order.
var Modes = []Mode{
	ModeDiffuser,
	ModeSplitter1D,
	ModeSpotProjector2D,
	ModeLens,
	ModeLensArray,
	ModePrism,
	ModeCustom,
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Shape of the device aperture or of the diffuser output.
type Shape string

const (
	ShapeCircular Shape = "circular"
	ShapeSquare   Shape = "square"
)

// LensType of lens and lens array modes.
type LensType string

const (
	LensNormal       LensType = "normal"
	LensCylindricalX LensType = "cylindrical_x"
	LensCylindricalY LensType = "cylindrical_y"
)

// SpecialFunction of lens and lens array modes.
type SpecialFunction string

const (
	SpecialNone            SpecialFunction = "none"
	SpecialExtendedDOF     SpecialFunction = "extended_dof"
	SpecialMultiWavelength SpecialFunction = "multi_wavelength"
)

// Common holds the fields every mode has, already converted to base units.
type Common struct {
	Mode            Mode
	WorkingDistance string
	// DistanceMm is +Inf for the infinite conjugate.
	DistanceMm         float64
	WavelengthNm       float64
	DiameterMm         float64
	Shape              Shape
	FabricationEnabled bool
	FabricationRecipe  string
}

// Infinite reports whether the device works at the infinite conjugate.
func (c Common) Infinite() bool {
	return math.IsInf(c.DistanceMm, 1)
}

// Target is the authoritative target specification of a mode.
type Target struct {
	Type optics.TargetType
	// AngleDeg is the full angle.
	AngleDeg         float64
	SizeMm           float64
	TolerancePercent float64
}

// Params is implemented by exactly one struct per mode.
type Params interface {
	Base() Common
	// Grid is the sampling grid used for spot counts and pixel pitch.
	Grid() (rows, cols int)
	isParams()
}

// Targeted is implemented by modes that carry a size/angle target.
type Targeted interface {
	Params
	TargetSpec() Target
}

type Diffuser struct {
	Common
	OutputShape Shape
	Target      Target
	Rows, Cols  int
}

type Splitter1D struct {
	Common
	Count  int
	Target Target
}

type SpotProjector2D struct {
	Common
	Rows, Cols int
	Target     Target
}

// LensOptions are shared by lens and lens array.
type LensOptions struct {
	FocalLengthMm   float64
	Type            LensType
	SpecialFunction SpecialFunction
	// ExtendedDOF и MultiWavelength хранятся как ввёл пользователь: "0.1, 0.2, 0.5"
	ExtendedDOF     string
	MultiWavelength string
}

type Lens struct {
	Common
	LensOptions
	TolerancePercent float64
}

type LensArray struct {
	Common
	LensOptions
	Size             int
	TolerancePercent float64
}

type Prism struct {
	Common
	DeflectionAngleDeg float64
	TolerancePercent   float64
}

// PatternInfo is the result of analyzing a custom pattern image.
type PatternInfo struct {
	MaxPixelValue     int     `json:"maxPixelValue"`
	BrightnessPercent float64 `json:"brightnessPercent"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
}

// PatternSource describes where a custom pattern comes from.
type PatternSource struct {
	Preset           string
	ResizeMode       string
	ResizePercentage float64
	ResizeWidth      int
	ResizeHeight     int
	Info             *PatternInfo
}

type Custom struct {
	Common
	Target     Target
	Rows, Cols int
	Pattern    PatternSource
}

func (p Diffuser) Base() Common        { return p.Common }
func (p Splitter1D) Base() Common      { return p.Common }
func (p SpotProjector2D) Base() Common { return p.Common }
func (p Lens) Base() Common            { return p.Common }
func (p LensArray) Base() Common       { return p.Common }
func (p Prism) Base() Common           { return p.Common }
func (p Custom) Base() Common          { return p.Common }

func (p Diffuser) Grid() (int, int)        { return p.Rows, p.Cols }
func (p Splitter1D) Grid() (int, int)      { return 1, p.Count }
func (p SpotProjector2D) Grid() (int, int) { return p.Rows, p.Cols }
func (p Lens) Grid() (int, int)            { return 1, 1 }
func (p LensArray) Grid() (int, int)       { return p.Size, p.Size }
func (p Prism) Grid() (int, int)           { return 1, 1 }

// Grid of a custom pattern follows the analyzed image when there is one.
func (p Custom) Grid() (int, int) {
	if p.Pattern.Info != nil && p.Pattern.Info.Width > 0 && p.Pattern.Info.Height > 0 {
		return p.Pattern.Info.Height, p.Pattern.Info.Width
	}
	return p.Rows, p.Cols
}

func (p Diffuser) TargetSpec() Target        { return p.Target }
func (p Splitter1D) TargetSpec() Target      { return p.Target }
func (p SpotProjector2D) TargetSpec() Target { return p.Target }
func (p Custom) TargetSpec() Target          { return p.Target }

func (Diffuser) isParams()        {}
func (Splitter1D) isParams()      {}
func (SpotProjector2D) isParams() {}
func (Lens) isParams()            {}
func (LensArray) isParams()       {}
func (Prism) isParams()           {}
func (Custom) isParams()          {}
