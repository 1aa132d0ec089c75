package doe

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Raw is a parameter set exactly as it is stored and sent by the UI:
// a flat map from field name to string, bool or number.
type Raw map[string]any

// Названия полей совпадают с JSON, который хранит фронтенд.
const (
	FieldMode                = "mode"
	FieldWorkingDistance     = "workingDistance"
	FieldWorkingDistanceUnit = "workingDistanceUnit"
	FieldWavelength          = "wavelength"
	FieldDeviceDiameter      = "deviceDiameter"
	FieldDeviceShape         = "deviceShape"

	FieldArrayRows   = "arrayRows"
	FieldArrayCols   = "arrayCols"
	FieldTargetType  = "targetType"
	FieldTargetSize  = "targetSize"
	FieldTargetAngle = "targetAngle"
	FieldTolerance   = "tolerance"

	FieldDiffuserShape      = "diffuserShape"
	FieldDiffuserAngle      = "diffuserAngle"
	FieldDiffuserSize       = "diffuserSize"
	FieldDiffuserTargetType = "diffuserTargetType"
	FieldDiffuserTolerance  = "diffuserTolerance"

	FieldSplitterCount      = "splitterCount"
	FieldSplitterAngle      = "splitterAngle"
	FieldSplitterSize       = "splitterSize"
	FieldSplitterTargetType = "splitterTargetType"
	FieldSplitterTolerance  = "splitterTolerance"

	FieldLensFocalLength     = "lensFocalLength"
	FieldLensSpecialFunction = "lensSpecialFunction"
	FieldLensExtendedDOF     = "lensExtendedDOF"
	FieldLensMultiWavelength = "lensMultiWavelength"
	FieldLensType            = "lensType"

	FieldLensArraySize            = "lensArraySize"
	FieldLensArrayFocalLength     = "lensArrayFocalLength"
	FieldLensArraySpecialFunction = "lensArraySpecialFunction"
	FieldLensArrayExtendedDOF     = "lensArrayExtendedDOF"
	FieldLensArrayMultiWavelength = "lensArrayMultiWavelength"
	FieldLensArrayType            = "lensArrayType"

	FieldPrismDeflectionAngle = "prismDeflectionAngle"
	FieldPrismTolerance       = "prismTolerance"

	FieldCustomPatternPreset    = "customPatternPreset"
	FieldCustomResizeMode       = "customResizeMode"
	FieldCustomResizePercentage = "customResizePercentage"
	FieldCustomResizeWidth      = "customResizeWidth"
	FieldCustomResizeHeight     = "customResizeHeight"
	FieldCustomPatternInfo      = "customPatternInfo"
	FieldCustomAngle            = "customAngle"
	FieldCustomSize             = "customSize"
	FieldCustomTargetType       = "customTargetType"
	FieldCustomTolerance        = "customTolerance"

	FieldFabricationEnabled = "fabricationEnabled"
	FieldFabricationRecipe  = "fabricationRecipe"
)

// TargetTypeFields lists every field that selects size vs angle.
var TargetTypeFields = []string{
	FieldTargetType,
	FieldDiffuserTargetType,
	FieldSplitterTargetType,
	FieldCustomTargetType,
}

// Clone returns a shallow copy; nested objects are shared.
func (r Raw) Clone() Raw {
	out := make(Raw, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the field is present and not an empty string.
func (r Raw) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns the field as a string. Numbers are formatted without
// trailing zeros, bools as "true"/"false".
func (r Raw) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Bool reads a boolean field; "true"/"1" strings are accepted.
func (r Raw) Bool(key string) bool {
	switch t := r[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	}
	return false
}

// StringOr returns the field or, when it is missing, the first present
// fallback field. Mode-specific fields fall back to the common ones this way.
func (r Raw) StringOr(key string, fallbacks ...string) string {
	if r.Has(key) {
		return r.String(key)
	}
	for _, f := range fallbacks {
		if r.Has(f) {
			return r.String(f)
		}
	}
	return ""
}
