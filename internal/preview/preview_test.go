package preview

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doe-studio/internal/doe"
)

func spotProjector(rows, cols, angle string) doe.Raw {
	return doe.Raw{
		"mode":            "2d_spot_projector",
		"wavelength":      "532nm",
		"deviceDiameter":  "12.7mm",
		"workingDistance": "inf",
		"targetType":      "angle",
		"targetAngle":     angle,
		"arrayRows":       rows,
		"arrayCols":       cols,
		"tolerance":       "1",
	}
}

func TestFromRaw_SpotProjector50x50(t *testing.T) {
	data, _ := FromRaw(spotProjector("50", "50", "30deg"), Options{})

	require.True(t, data.IsValid)
	s := data.Summary
	assert.Equal(t, 2500, s.TotalSpots)
	assert.Equal(t, "15.00°", s.DiffractionAngle)
	assert.Equal(t, "30.00°", s.FullAngle)
	assert.Equal(t, "0.254 mm", s.PixelPitch)
	assert.Equal(t, "0.300°", s.ActualTolerance)
	assert.Equal(t, "~75-85%", s.EstimatedEfficiency)
	assert.Equal(t, "~1-3 min", s.ComputationTime)
	require.NotNil(t, s.MaxArraySize)
	assert.Equal(t, 54, *s.MaxArraySize)
	assert.Nil(t, s.MaxSplits)
	assert.Empty(t, s.EquivalentFullAngle)
	assert.Empty(t, data.Warnings)
	assert.NotNil(t, data.Warnings)
}

func TestFromRaw_LargeArrayWarning(t *testing.T) {
	data, _ := FromRaw(spotProjector("150", "150", "30deg"), Options{})

	assert.Equal(t, 22500, data.Summary.TotalSpots)
	assert.Equal(t, "~5-10 min", data.Summary.ComputationTime)
	assert.Equal(t, []string{WarnLargeArray}, data.Warnings)
}

func TestFromRaw_LargeAngleWarning(t *testing.T) {
	data, _ := FromRaw(spotProjector("50", "50", "60deg"), Options{})

	assert.Equal(t, "30.00°", data.Summary.DiffractionAngle)
	assert.Equal(t, "60.00°", data.Summary.FullAngle)
	assert.Equal(t, []string{WarnLargeAngle}, data.Warnings)
}

func TestFromRaw_WarningOrder(t *testing.T) {
	raw := spotProjector("200", "200", "90deg")
	raw["tolerance"] = "0.2"

	data, _ := FromRaw(raw, Options{})

	assert.Equal(t, []string{WarnLargeAngle, WarnTightTolerance, WarnLargeArray}, data.Warnings)
}

func TestFromRaw_Idempotent(t *testing.T) {
	raw := spotProjector("64", "48", "42deg")

	first, _ := FromRaw(raw, Options{})
	second, _ := FromRaw(raw, Options{})

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestFromRaw_SizeTargetAtFiniteDistance(t *testing.T) {
	data, normalized := FromRaw(doe.Raw{
		"mode":               "diffuser",
		"workingDistance":    "100mm",
		"diffuserTargetType": "size",
		"diffuserSize":       "100mm",
		"diffuserTolerance":  "1",
	}, Options{})

	s := data.Summary
	assert.Equal(t, "53.13°", s.FullAngle)
	assert.Equal(t, "26.57°", s.DiffractionAngle)
	assert.Equal(t, "53.13°", s.EquivalentFullAngle)
	assert.Equal(t, "1.000 mm", s.ActualTolerance)
	assert.Equal(t, []string{WarnLargeAngle}, data.Warnings)
	assert.Equal(t, "size", normalized.String("diffuserTargetType"))
}

func TestFromRaw_SizeTargetAtInfinityIsCorrected(t *testing.T) {
	data, normalized := FromRaw(doe.Raw{
		"mode":             "custom",
		"workingDistance":  "inf",
		"customTargetType": "size",
		"customAngle":      "20deg",
	}, Options{})

	assert.Equal(t, "angle", normalized.String("customTargetType"))
	assert.Equal(t, "20.00°", data.Summary.FullAngle)
	assert.Empty(t, data.Summary.EquivalentFullAngle)
	require.NotNil(t, data.Summary.EffectivePixels)
	assert.Equal(t, 3000, *data.Summary.EffectivePixels)
}

func TestFromRaw_Splitter(t *testing.T) {
	data, _ := FromRaw(doe.Raw{
		"mode":      "1d_splitter",
		"arrayRows": "1",
		"arrayCols": "7",
	}, Options{})

	s := data.Summary
	assert.Equal(t, 7, s.TotalSpots)
	assert.Equal(t, "1.814 mm", s.PixelPitch)
	require.NotNil(t, s.MaxSplits)
	assert.Equal(t, 3000, *s.MaxSplits)
	assert.Nil(t, s.MaxArraySize)
}

func TestFromRaw_PixelCeilingOption(t *testing.T) {
	data, _ := FromRaw(doe.Raw{"mode": "1d_splitter"}, Options{PixelCeiling: 400})

	require.NotNil(t, data.Summary.MaxSplits)
	assert.Equal(t, 400, *data.Summary.MaxSplits)
}

func TestFromRaw_Lens(t *testing.T) {
	data, _ := FromRaw(doe.Raw{
		"mode":            "lens",
		"deviceDiameter":  "12.7mm",
		"lensFocalLength": "50mm",
	}, Options{})

	s := data.Summary
	assert.Equal(t, "7.24°", s.DiffractionAngle)
	assert.Equal(t, "14.48°", s.FullAngle)
	assert.Equal(t, "0.0330 mm", s.ReferenceDOF)
	assert.Equal(t, 1, s.TotalSpots)
	assert.Empty(t, data.Warnings)
}

func TestFromRaw_LensArrayUsesLenslet(t *testing.T) {
	data, _ := FromRaw(doe.Raw{
		"mode":                 "lens_array",
		"deviceDiameter":       "12.7mm",
		"lensArrayFocalLength": "50mm",
		"lensArraySize":        "5",
	}, Options{})

	assert.Equal(t, "2.91°", data.Summary.FullAngle)
	assert.Equal(t, 25, data.Summary.TotalSpots)
	assert.Equal(t, "2.540 mm", data.Summary.PixelPitch)
}

func TestFromRaw_Prism(t *testing.T) {
	data, _ := FromRaw(doe.Raw{
		"mode":                 "prism",
		"prismDeflectionAngle": "25deg",
		"prismTolerance":       "0.4",
	}, Options{})

	assert.Equal(t, "25.00°", data.Summary.DiffractionAngle)
	assert.Equal(t, "50.00°", data.Summary.FullAngle)
	assert.Equal(t, []string{WarnLargeAngle, WarnTightTolerance}, data.Warnings)
}

func TestFromRaw_InvalidFieldsStillProducePreview(t *testing.T) {
	raw := spotProjector("50", "50", "30deg")
	raw["deviceDiameter"] = "wide"

	data, _ := FromRaw(raw, Options{})

	assert.False(t, data.IsValid)
	require.Len(t, data.Issues, 1)
	assert.Equal(t, "deviceDiameter", data.Issues[0].Field)
	assert.Equal(t, "0.254 mm", data.Summary.PixelPitch)
	assert.Equal(t, 2500, data.Summary.TotalSpots)
}

func TestFromRaw_OversizedGridIsInvalid(t *testing.T) {
	data, normalized := FromRaw(spotProjector("4294967296", "4294967296", "30deg"), Options{})

	assert.False(t, data.IsValid)
	require.Len(t, data.Issues, 2)
	assert.Equal(t, 2500, data.Summary.TotalSpots)
	assert.Equal(t, "4294967296", normalized.String("arrayRows"))

	data, _ = FromRaw(spotProjector("1e10", "50", "30deg"), Options{})
	assert.False(t, data.IsValid)
	assert.Equal(t, 2500, data.Summary.TotalSpots)
}

func TestTotalSpots_Saturates(t *testing.T) {
	assert.Equal(t, math.MaxInt, TotalSpots(doe.SpotProjector2D{Rows: math.MaxInt / 2, Cols: 3}))
	assert.Equal(t, 6, TotalSpots(doe.SpotProjector2D{Rows: 2, Cols: 3}))
	assert.Equal(t, 0, TotalSpots(doe.SpotProjector2D{Rows: 0, Cols: 3}))
}
