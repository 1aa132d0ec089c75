// Package units разбирает значения вида "<число><единица>" и приводит их
// к базовым единицам: миллиметры, нанометры, градусы.
package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Quantity is a parsed "<number><unit>" pair. A zero Quantity with an empty
// unit means the input could not be parsed.
type Quantity struct {
	Value float64
	Unit  string
}

// Valid reports whether the quantity came from a successful parse.
// Parse never returns an error, so callers must check this before
// trusting a conversion.
func (q Quantity) Valid() bool {
	return !(q.Value == 0 && q.Unit == "")
}

// число (опционально с множителем π) + необязательная единица
var quantityRe = regexp.MustCompile(`^((?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?)?\s*(π|pi)?\s*([a-zA-Zµμ°]+)?$`)

// Parse splits s into a numeric value and a unit token.
// "2.5cm" -> {2.5, "cm"}, "30°" -> {30, "°"}, "π rad" -> {π, "rad"}.
// Anything else yields the zero Quantity.
func Parse(s string) Quantity {
	s = strings.TrimSpace(s)
	if s == "" {
		return Quantity{}
	}

	m := quantityRe.FindStringSubmatch(s)
	if m == nil {
		return Quantity{}
	}

	numStr, piStr, unit := m[1], m[2], m[3]

	// одна единица без числа ("rad", "mm")
	if numStr == "" && piStr == "" {
		return Quantity{}
	}

	value := 1.0
	if numStr != "" {
		v, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return Quantity{}
		}
		value = v
	}
	if piStr != "" {
		value *= math.Pi
	}

	return Quantity{Value: value, Unit: unit}
}

// ParseNumber parses a value for which a unit is meaningless (row counts,
// tolerance percent). A trailing "%" is accepted.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func normalizeUnit(u string) string {
	u = strings.ToLower(u)
	u = strings.ReplaceAll(u, "μ", "µ")
	return u
}

// ToMm converts a length quantity to millimeters. Unknown units are
// treated as already being millimeters.
func ToMm(q Quantity) float64 {
	switch normalizeUnit(q.Unit) {
	case "m":
		return q.Value * 1000
	case "cm":
		return q.Value * 10
	case "mm":
		return q.Value
	case "um", "µm":
		return q.Value * 0.001
	case "in":
		return q.Value * 25.4
	case "ft":
		return q.Value * 304.8
	default:
		return q.Value
	}
}

// ToNm converts a wavelength quantity to nanometers.
func ToNm(q Quantity) float64 {
	switch normalizeUnit(q.Unit) {
	case "nm":
		return q.Value
	case "um", "µm":
		return q.Value * 1000
	case "mm":
		return q.Value * 1e6
	default:
		return q.Value
	}
}

// ToDegrees converts an angle quantity to degrees. Only "rad" is converted,
// everything else (deg, °, no unit) passes through.
func ToDegrees(q Quantity) float64 {
	if normalizeUnit(q.Unit) == "rad" {
		return q.Value * 180 / math.Pi
	}
	return q.Value
}

// ConvertToMm is Parse followed by ToMm.
func ConvertToMm(s string) float64 { return ToMm(Parse(s)) }

// ConvertToNm is Parse followed by ToNm.
func ConvertToNm(s string) float64 { return ToNm(Parse(s)) }

// ConvertToDegrees is Parse followed by ToDegrees.
func ConvertToDegrees(s string) float64 { return ToDegrees(Parse(s)) }

// IsInfinite reports whether a working distance string is the infinite
// conjugate sentinel ("inf" / "infinity", any case).
func IsInfinite(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inf", "infinity", "∞":
		return true
	}
	return false
}

// DistanceMm resolves a working distance. The infinite sentinel maps to
// +Inf and never goes through the length converter. ok is false when the
// string is neither the sentinel nor a parseable length.
func DistanceMm(s string) (mm float64, ok bool) {
	if IsInfinite(s) {
		return math.Inf(1), true
	}
	q := Parse(s)
	if !q.Valid() {
		return 0, false
	}
	return ToMm(q), true
}
