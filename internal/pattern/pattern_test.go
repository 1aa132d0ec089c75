package pattern

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestTargetSize(t *testing.T) {
	cases := []struct {
		name   string
		w, h   int
		rs     Resize
		tw, th int
	}{
		{"no resize", 200, 100, Resize{}, 200, 100},
		{"half", 200, 100, Resize{Mode: ResizePercentage, Percentage: 50}, 100, 50},
		{"zero percent means 100", 200, 100, Resize{Mode: ResizePercentage}, 200, 100},
		{"pixels", 200, 100, Resize{Mode: ResizePixels, Width: 64, Height: 32}, 64, 32},
		{"pixels keep missing side", 200, 100, Resize{Mode: ResizePixels, Width: 64}, 64, 100},
		{"clamped", 5000, 4000, Resize{Mode: ResizePercentage, Percentage: 100}, 3000, 3000},
		{"clamped pixels", 10, 10, Resize{Mode: ResizePixels, Width: 9000, Height: 20}, 3000, 20},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tw, th := TargetSize(c.w, c.h, c.rs)
			assert.Equal(t, c.tw, tw)
			assert.Equal(t, c.th, th)
		})
	}
}

func TestAnalyze_PadsToBlackSquare(t *testing.T) {
	img := solid(20, 10, color.White)

	a, err := Analyze(img, Resize{Mode: ResizePercentage, Percentage: 50})
	require.NoError(t, err)

	assert.Equal(t, 10, a.Width)
	assert.Equal(t, 10, a.Height)
	assert.InDelta(t, 255, a.MaxPixelValue, 1)
	assert.InDelta(t, float64(a.MaxPixelValue)/255*100, a.BrightnessPercent, 1e-9)

	// изображение 10×5 по центру, верхняя строка это поле
	assert.Equal(t, uint8(0), a.Gray.GrayAt(5, 0).Y)
	assert.Greater(t, a.Gray.GrayAt(5, 5).Y, uint8(200))
	assert.True(t, strings.HasPrefix(a.PreviewURL, "data:image/png;base64,"))
}

func TestAnalyze_Luminance(t *testing.T) {
	a, err := Analyze(solid(4, 4, color.RGBA{R: 255, A: 255}), Resize{})
	require.NoError(t, err)

	// 0.299 * 255 = 76.2
	assert.InDelta(t, 76, a.MaxPixelValue, 1)
}

func TestAnalyze_Empty(t *testing.T) {
	_, err := Analyze(image.NewRGBA(image.Rect(0, 0, 0, 0)), Resize{})
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestDecode_Formats(t *testing.T) {
	img := solid(3, 3, color.White)

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	_, format, err := Decode(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, img))
	decoded, format, err := Decode(&bmpBuf)
	require.NoError(t, err)
	assert.Equal(t, "bmp", format)
	assert.Equal(t, 3, decoded.Bounds().Dx())

	_, _, err = Decode(strings.NewReader("not an image"))
	assert.Error(t, err)
}

// pngHeader returns a PNG signature and IHDR chunk declaring w×h RGB
// pixels, with no image data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 0, 17)
	ihdr = append(ihdr, "IHDR"...)
	ihdr = binary.BigEndian.AppendUint32(ihdr, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 2, 0, 0, 0)

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestDecode_RejectsOversizedHeader(t *testing.T) {
	_, _, err := Decode(bytes.NewReader(pngHeader(20000, 20000)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)

	// в пределах бюджета заголовок проходит, и ошибка уже от неполных данных
	_, _, err = Decode(bytes.NewReader(pngHeader(100, 100)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooLarge)
}

func TestPreset(t *testing.T) {
	for _, name := range Presets {
		t.Run(name, func(t *testing.T) {
			img, err := Preset(name)
			require.NoError(t, err)

			a, err := Analyze(img, Resize{})
			require.NoError(t, err)
			assert.Equal(t, presetSize, a.Width)
			assert.InDelta(t, 255, a.MaxPixelValue, 1)
		})
	}

	cross, _ := Preset("cross")
	g := cross.(*image.Gray)
	assert.Equal(t, uint8(255), g.GrayAt(32, 32).Y)
	assert.Equal(t, uint8(0), g.GrayAt(0, 0).Y)

	_, err := Preset("star")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}
