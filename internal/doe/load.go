package doe

import (
	"fmt"
	"strconv"

	"doe-studio/internal/optics"
	"doe-studio/internal/units"
)

// Значения по умолчанию, совпадают с тем, что показывает форма.
const (
	DefaultMode            = ModeSpotProjector2D
	DefaultWorkingDistance = "inf"
	DefaultWavelength      = "532nm"
	DefaultDiameter        = "12.7mm"
	DefaultShape           = ShapeCircular
	DefaultArrayRows       = "50"
	DefaultArrayCols       = "50"
	DefaultTargetType      = optics.TargetAngle
	DefaultTargetSize      = "100mm"
	DefaultTargetAngle     = "30deg"
	DefaultTolerance       = "1"
	DefaultFocalLength     = "50mm"
	DefaultLensArraySize   = "5"
	DefaultPrismDeflection = "10deg"
	DefaultSplitterCount   = "5"
	DefaultResizeMode      = "percentage"
	DefaultResizePercent   = "100"
	DefaultPatternPreset   = "none"
	DefaultRecipe          = "ideal"
)

var baseDefaults = Raw{
	FieldMode:               string(DefaultMode),
	FieldWorkingDistance:    DefaultWorkingDistance,
	FieldWavelength:         DefaultWavelength,
	FieldDeviceDiameter:     DefaultDiameter,
	FieldDeviceShape:        string(DefaultShape),
	FieldArrayRows:          DefaultArrayRows,
	FieldArrayCols:          DefaultArrayCols,
	FieldTargetType:         string(DefaultTargetType),
	FieldTargetSize:         DefaultTargetSize,
	FieldTargetAngle:        DefaultTargetAngle,
	FieldTolerance:          DefaultTolerance,
	FieldFabricationEnabled: false,
	FieldFabricationRecipe:  DefaultRecipe,
}

// Issue describes a field that was present but could not be used; the
// default was substituted for it.
type Issue struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Correction records an automatic fix made by Normalize.
type Correction struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// FillDefaults returns a copy of raw with every missing common field and
// every missing field of the selected mode set to its default. It is meant
// to run once where a parameter set enters the system (request decoding,
// loading from storage). Present values are never overwritten.
func FillDefaults(raw Raw) Raw {
	out := raw.Clone()

	for k, v := range baseDefaults {
		if !out.Has(k) {
			out[k] = v
		}
	}

	switch Mode(out.String(FieldMode)) {
	case ModeDiffuser:
		setIfMissing(out, FieldDiffuserShape, out.String(FieldDeviceShape))
		setIfMissing(out, FieldDiffuserTargetType, out.String(FieldTargetType))
		setIfMissing(out, FieldDiffuserAngle, out.String(FieldTargetAngle))
		setIfMissing(out, FieldDiffuserSize, out.String(FieldTargetSize))
		setIfMissing(out, FieldDiffuserTolerance, out.String(FieldTolerance))

	case ModeSplitter1D:
		// шаблоны задают сплиттер как массив 1×N
		if !out.Has(FieldSplitterCount) {
			count := DefaultSplitterCount
			if raw.Has(FieldArrayRows) || raw.Has(FieldArrayCols) {
				rows, okR := positiveInt(out.String(FieldArrayRows))
				cols, okC := positiveInt(out.String(FieldArrayCols))
				if okR && okC {
					count = strconv.Itoa(rows * cols)
				}
			}
			out[FieldSplitterCount] = count
		}
		setIfMissing(out, FieldSplitterTargetType, out.String(FieldTargetType))
		setIfMissing(out, FieldSplitterAngle, out.String(FieldTargetAngle))
		setIfMissing(out, FieldSplitterSize, out.String(FieldTargetSize))
		setIfMissing(out, FieldSplitterTolerance, out.String(FieldTolerance))

	case ModeLens:
		setIfMissing(out, FieldLensFocalLength, DefaultFocalLength)
		setIfMissing(out, FieldLensType, string(LensNormal))
		setIfMissing(out, FieldLensSpecialFunction, string(SpecialNone))

	case ModeLensArray:
		setIfMissing(out, FieldLensArraySize, DefaultLensArraySize)
		setIfMissing(out, FieldLensArrayFocalLength, DefaultFocalLength)
		setIfMissing(out, FieldLensArrayType, string(LensNormal))
		setIfMissing(out, FieldLensArraySpecialFunction, string(SpecialNone))

	case ModePrism:
		setIfMissing(out, FieldPrismDeflectionAngle, DefaultPrismDeflection)
		setIfMissing(out, FieldPrismTolerance, out.String(FieldTolerance))

	case ModeCustom:
		setIfMissing(out, FieldCustomPatternPreset, DefaultPatternPreset)
		setIfMissing(out, FieldCustomResizeMode, DefaultResizeMode)
		setIfMissing(out, FieldCustomResizePercentage, DefaultResizePercent)
		setIfMissing(out, FieldCustomTargetType, out.String(FieldTargetType))
		setIfMissing(out, FieldCustomAngle, out.String(FieldTargetAngle))
		setIfMissing(out, FieldCustomSize, out.String(FieldTargetSize))
		setIfMissing(out, FieldCustomTolerance, out.String(FieldTolerance))
	}

	return out
}

func setIfMissing(r Raw, key, value string) {
	if !r.Has(key) && value != "" {
		r[key] = value
	}
}

// Normalize enforces the working distance / target type coupling: at the
// infinite conjugate a target size is undefined, so every target-type
// field set to "size" is rewritten to "angle". The write is corrected, not
// rejected.
func Normalize(raw Raw) (Raw, []Correction) {
	out := raw.Clone()
	if !units.IsInfinite(out.String(FieldWorkingDistance)) {
		return out, nil
	}

	var fixes []Correction
	for _, f := range TargetTypeFields {
		if out.String(f) == string(optics.TargetSize) {
			out[f] = string(optics.TargetAngle)
			fixes = append(fixes, Correction{Field: f, From: string(optics.TargetSize), To: string(optics.TargetAngle)})
		}
	}
	return out, fixes
}

// Load is the single entry point from a stored or submitted parameter set
// to a typed one: FillDefaults, Normalize, then per-mode parsing. Fields
// that cannot be parsed are replaced by their defaults and reported as
// issues.
func Load(raw Raw) (Params, Raw, []Issue) {
	filled := FillDefaults(raw)

	// нечитаемое расстояние заменяется до Normalize, чтобы "inf" успел
	// перевести цель размера в угол
	var issues []Issue
	if d, ok := units.DistanceMm(filled.String(FieldWorkingDistance)); !ok || d <= 0 {
		issues = append(issues, Issue{
			Field:   FieldWorkingDistance,
			Value:   filled.String(FieldWorkingDistance),
			Message: "working distance must be a positive length or \"inf\"",
		})
		filled[FieldWorkingDistance] = DefaultWorkingDistance
	}
	normalized, _ := Normalize(filled)

	p := &parser{raw: normalized, issues: issues}
	params := p.params()
	return params, normalized, p.issues
}

type parser struct {
	raw    Raw
	issues []Issue
}

func (p *parser) issue(field, msg string) {
	p.issues = append(p.issues, Issue{Field: field, Value: p.raw.String(field), Message: msg})
}

func (p *parser) params() Params {
	mode := Mode(p.raw.String(FieldMode))
	if !mode.Valid() {
		p.issue(FieldMode, fmt.Sprintf("unknown mode, using %s", DefaultMode))
		mode = DefaultMode
	}

	c := p.common(mode)

	switch mode {
	case ModeDiffuser:
		rows, cols := p.grid()
		return Diffuser{
			Common:      c,
			OutputShape: p.shape(FieldDiffuserShape),
			Target:      p.target(c, FieldDiffuserTargetType, FieldDiffuserAngle, FieldDiffuserSize, FieldDiffuserTolerance),
			Rows:        rows,
			Cols:        cols,
		}

	case ModeSplitter1D:
		return Splitter1D{
			Common: c,
			Count:  p.positiveInt(FieldSplitterCount, DefaultSplitterCount),
			Target: p.target(c, FieldSplitterTargetType, FieldSplitterAngle, FieldSplitterSize, FieldSplitterTolerance),
		}

	case ModeLens:
		return Lens{
			Common:           c,
			LensOptions:      p.lensOptions(FieldLensFocalLength, FieldLensType, FieldLensSpecialFunction, FieldLensExtendedDOF, FieldLensMultiWavelength),
			TolerancePercent: p.tolerance(FieldTolerance),
		}

	case ModeLensArray:
		size, ok := positiveInt(p.raw.String(FieldLensArraySize))
		if !ok {
			p.issue(FieldLensArraySize, "lens array size must be a positive integer")
			size = optics.DefaultLensArraySize
		}
		return LensArray{
			Common:           c,
			LensOptions:      p.lensOptions(FieldLensArrayFocalLength, FieldLensArrayType, FieldLensArraySpecialFunction, FieldLensArrayExtendedDOF, FieldLensArrayMultiWavelength),
			Size:             size,
			TolerancePercent: p.tolerance(FieldTolerance),
		}

	case ModePrism:
		return Prism{
			Common:             c,
			DeflectionAngleDeg: p.angle(FieldPrismDeflectionAngle, DefaultPrismDeflection),
			TolerancePercent:   p.tolerance(FieldPrismTolerance),
		}

	case ModeCustom:
		rows, cols := p.grid()
		return Custom{
			Common:  c,
			Target:  p.target(c, FieldCustomTargetType, FieldCustomAngle, FieldCustomSize, FieldCustomTolerance),
			Rows:    rows,
			Cols:    cols,
			Pattern: p.pattern(),
		}

	default:
		rows, cols := p.grid()
		return SpotProjector2D{
			Common: c,
			Rows:   rows,
			Cols:   cols,
			Target: p.target(c, FieldTargetType, FieldTargetAngle, FieldTargetSize, FieldTolerance),
		}
	}
}

func (p *parser) common(mode Mode) Common {
	c := Common{
		Mode:               mode,
		WorkingDistance:    p.raw.String(FieldWorkingDistance),
		Shape:              p.shape(FieldDeviceShape),
		FabricationEnabled: p.raw.Bool(FieldFabricationEnabled),
		FabricationRecipe:  p.raw.String(FieldFabricationRecipe),
	}

	// Load уже заменил нечитаемое значение на "inf"
	c.DistanceMm, _ = units.DistanceMm(c.WorkingDistance)

	c.WavelengthNm = p.positiveQuantity(FieldWavelength, DefaultWavelength, units.ToNm)
	c.DiameterMm = p.positiveQuantity(FieldDeviceDiameter, DefaultDiameter, units.ToMm)

	return c
}

// positiveQuantity parses a quantity field and converts it; unparseable or
// non-positive input falls back to def.
func (p *parser) positiveQuantity(field, def string, conv func(units.Quantity) float64) float64 {
	q := units.Parse(p.raw.String(field))
	if q.Valid() {
		if v := conv(q); v > 0 {
			return v
		}
	}
	p.issue(field, fmt.Sprintf("expected a positive value with unit, using %s", def))
	return conv(units.Parse(def))
}

func (p *parser) angle(field, def string) float64 {
	return p.positiveQuantity(field, def, units.ToDegrees)
}

func (p *parser) length(field, def string) float64 {
	return p.positiveQuantity(field, def, units.ToMm)
}

func (p *parser) tolerance(field string) float64 {
	v, ok := units.ParseNumber(p.raw.String(field))
	if !ok || v <= 0 {
		p.issue(field, "tolerance must be a positive percentage, using "+DefaultTolerance)
		v, _ = units.ParseNumber(DefaultTolerance)
	}
	return v
}

func (p *parser) positiveInt(field, def string) int {
	v, ok := positiveInt(p.raw.String(field))
	if !ok {
		p.issue(field, fmt.Sprintf("expected a positive integer up to %d, using %s", MaxGridSize, def))
		v, _ = positiveInt(def)
	}
	return v
}

func (p *parser) grid() (int, int) {
	return p.positiveInt(FieldArrayRows, DefaultArrayRows), p.positiveInt(FieldArrayCols, DefaultArrayCols)
}

func (p *parser) shape(field string) Shape {
	switch s := Shape(p.raw.String(field)); s {
	case ShapeCircular, ShapeSquare:
		return s
	case "":
		return DefaultShape
	default:
		p.issue(field, "shape must be circular or square")
		return DefaultShape
	}
}

func (p *parser) target(c Common, typeField, angleField, sizeField, tolField string) Target {
	t := Target{Type: optics.TargetType(p.raw.String(typeField))}
	if t.Type != optics.TargetAngle && t.Type != optics.TargetSize {
		p.issue(typeField, "target type must be size or angle")
		t.Type = DefaultTargetType
	}

	// неавторитетную сторону разбираем молча: она нужна только для отображения
	if t.Type == optics.TargetSize {
		t.SizeMm = p.length(sizeField, DefaultTargetSize)
		if a := units.Parse(p.raw.String(angleField)); a.Valid() {
			t.AngleDeg = units.ToDegrees(a)
		}
	} else {
		t.AngleDeg = p.angle(angleField, DefaultTargetAngle)
		if s := units.Parse(p.raw.String(sizeField)); s.Valid() {
			t.SizeMm = units.ToMm(s)
		}
	}

	t.TolerancePercent = p.tolerance(tolField)
	return t
}

func (p *parser) lensOptions(focalField, typeField, fnField, dofField, wlField string) LensOptions {
	o := LensOptions{
		FocalLengthMm:   p.length(focalField, DefaultFocalLength),
		Type:            LensType(p.raw.String(typeField)),
		SpecialFunction: SpecialFunction(p.raw.String(fnField)),
		ExtendedDOF:     p.raw.String(dofField),
		MultiWavelength: p.raw.String(wlField),
	}

	switch o.Type {
	case LensNormal, LensCylindricalX, LensCylindricalY:
	default:
		p.issue(typeField, "unknown lens type")
		o.Type = LensNormal
	}

	switch o.SpecialFunction {
	case SpecialNone, SpecialExtendedDOF, SpecialMultiWavelength:
	default:
		p.issue(fnField, "unknown special function")
		o.SpecialFunction = SpecialNone
	}

	return o
}

func (p *parser) pattern() PatternSource {
	ps := PatternSource{
		Preset:     p.raw.String(FieldCustomPatternPreset),
		ResizeMode: p.raw.String(FieldCustomResizeMode),
	}

	if v, ok := units.ParseNumber(p.raw.String(FieldCustomResizePercentage)); ok && v > 0 {
		ps.ResizePercentage = v
	} else {
		ps.ResizePercentage = 100
	}
	ps.ResizeWidth, _ = positiveInt(p.raw.String(FieldCustomResizeWidth))
	ps.ResizeHeight, _ = positiveInt(p.raw.String(FieldCustomResizeHeight))

	if info, ok := p.raw[FieldCustomPatternInfo].(map[string]any); ok {
		pi := &PatternInfo{
			MaxPixelValue:     int(number(info["maxPixelValue"])),
			BrightnessPercent: number(info["brightnessPercent"]),
			Width:             int(number(info["width"])),
			Height:            int(number(info["height"])),
		}
		ps.Info = pi
	}

	return ps
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	}
	return 0
}

// MaxGridSize ограничивает любую целочисленную размерность (строки,
// столбцы, число пучков), чтобы rows*cols не переполнялся.
const MaxGridSize = 100_000

// positiveInt accepts "50" and "50.0" but not "0", "-3", "abc" or
// anything above MaxGridSize.
func positiveInt(s string) (int, bool) {
	v, ok := units.ParseNumber(s)
	if !ok || v < 1 || v > MaxGridSize {
		return 0, false
	}
	return int(v), true
}
