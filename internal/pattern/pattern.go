// Package pattern prepares custom target patterns: decode, resize, pad to
// a square and reduce to luminance.
package pattern

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxDimension bounds both sides of a resized pattern.
const MaxDimension = 3000

const (
	ResizePercentage = "percentage"
	ResizePixels     = "pixels"
)

// MaxDecodePixels bounds the declared width×height of an uploaded image;
// larger files are rejected before the pixels are allocated.
const MaxDecodePixels = (2 * MaxDimension) * (2 * MaxDimension)

var (
	ErrUnknownPreset = errors.New("unknown pattern preset")
	ErrEmptyImage    = errors.New("empty image")
	ErrTooLarge      = errors.New("image too large")
)

// Resize selects the output size of the pattern before padding.
type Resize struct {
	Mode       string
	Percentage float64
	Width      int
	Height     int
}

// Analysis is the grayscale square pattern and its figures.
type Analysis struct {
	MaxPixelValue     int     `json:"maxPixelValue"`
	BrightnessPercent float64 `json:"brightnessPercent"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	// PreviewURL is a PNG data URL of the processed pattern.
	PreviewURL string `json:"previewUrl"`

	Gray *image.Gray `json:"-"`
}

// Decode reads PNG, JPEG, GIF, BMP, TIFF or WebP. The header is checked
// against MaxDecodePixels first.
func Decode(r io.Reader) (image.Image, string, error) {
	const op = "pattern.Decode"

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%s: %w", op, ErrEmptyImage)
	}
	if cfg.Width > MaxDecodePixels/cfg.Height {
		return nil, "", fmt.Errorf("%s: %dx%d: %w", op, cfg.Width, cfg.Height, ErrTooLarge)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return img, format, nil
}

// TargetSize returns the resized size of a w×h image, clamped to MaxDimension.
func TargetSize(w, h int, rs Resize) (int, int) {
	tw, th := w, h
	switch rs.Mode {
	case ResizePercentage:
		pct := rs.Percentage
		if pct <= 0 {
			pct = 100
		}
		tw = int(math.Round(float64(w) * pct / 100))
		th = int(math.Round(float64(h) * pct / 100))
	case ResizePixels:
		if rs.Width > 0 {
			tw = rs.Width
		}
		if rs.Height > 0 {
			th = rs.Height
		}
	}
	tw = min(max(tw, 1), MaxDimension)
	th = min(max(th, 1), MaxDimension)
	return tw, th
}

// Analyze resizes img, centers it on a black square and converts it to
// luminance (0.299 R + 0.587 G + 0.114 B).
func Analyze(img image.Image, rs Resize) (*Analysis, error) {
	const op = "pattern.Analyze"

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyImage)
	}

	tw, th := TargetSize(b.Dx(), b.Dy(), rs)
	side := max(tw, th)

	canvas := image.NewRGBA(image.Rect(0, 0, side, side))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)

	ox, oy := (side-tw)/2, (side-th)/2
	dst := image.Rect(ox, oy, ox+tw, oy+th)
	xdraw.ApproxBiLinear.Scale(canvas, dst, img, b, xdraw.Over, nil)

	gray := image.NewGray(canvas.Bounds())
	maxValue := 0
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			c := canvas.RGBAAt(x, y)
			v := int(math.Round(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)))
			v = min(v, 255)
			gray.SetGray(x, y, color.Gray{Y: uint8(v)})
			maxValue = max(maxValue, v)
		}
	}

	url, err := dataURL(gray)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Analysis{
		MaxPixelValue:     maxValue,
		BrightnessPercent: float64(maxValue) / 255 * 100,
		Width:             side,
		Height:            side,
		PreviewURL:        url,
		Gray:              gray,
	}, nil
}

func dataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Presets are the built-in patterns, drawn white on black.
var Presets = []string{"cross", "ring", "grid"}

const presetSize = 64

// Preset draws a built-in pattern.
func Preset(name string) (image.Image, error) {
	img := image.NewGray(image.Rect(0, 0, presetSize, presetSize))
	white := color.Gray{Y: 255}
	c := presetSize / 2

	switch name {
	case "cross":
		for i := 0; i < presetSize; i++ {
			for d := -4; d < 4; d++ {
				img.SetGray(i, c+d, white)
				img.SetGray(c+d, i, white)
			}
		}
	case "ring":
		outer := float64(presetSize) / 2
		inner := outer - 4
		for y := 0; y < presetSize; y++ {
			for x := 0; x < presetSize; x++ {
				r := math.Hypot(float64(x)+0.5-outer, float64(y)+0.5-outer)
				if r <= outer && r >= inner {
					img.SetGray(x, y, white)
				}
			}
		}
	case "grid":
		// 4×4 квадрата с зазором 4 px
		const cells, gap = 4, 4
		cell := (presetSize - gap*(cells-1)) / cells
		for i := 0; i < cells; i++ {
			for j := 0; j < cells; j++ {
				x0, y0 := j*(cell+gap), i*(cell+gap)
				xdraw.Draw(img, image.Rect(x0, y0, x0+cell, y0+cell), image.NewUniform(white), image.Point{}, xdraw.Src)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}

	return img, nil
}
