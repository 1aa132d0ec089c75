// Package export выгружает сохранённый дизайн в PDF-отчёт, книгу Excel и
// DXF-чертёж апертуры.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"unicode"

	"doe-studio/internal/doe"
	"doe-studio/internal/optimize"
	"doe-studio/internal/preview"
	"doe-studio/internal/storage"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatDXF  Format = "dxf"
)

var contentTypes = map[Format]string{
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatDXF:  "application/dxf",
}

// ParseFormat accepts pdf, xlsx and dxf.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(s))
	_, ok := contentTypes[f]
	return f, ok
}

type DesignProvider interface {
	GetDesign(ctx context.Context, id int64, userID string) (*storage.Design, error)
}

type Service struct {
	storage   DesignProvider
	publicURL string
	opts      preview.Options
}

// NewExportService creates the service. publicURL is the studio address
// encoded into the PDF QR code; empty disables the code.
func NewExportService(storage DesignProvider, publicURL string, opts preview.Options) *Service {
	return &Service{
		storage:   storage,
		publicURL: strings.TrimRight(publicURL, "/"),
		opts:      opts,
	}
}

// File is a rendered export ready to be sent.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// snapshot is everything an export needs about one design.
type snapshot struct {
	design  *storage.Design
	raw     doe.Raw
	params  doe.Params
	preview preview.Data
	result  *optimize.Result
}

// Export renders the user's design in format f.
func (s *Service) Export(ctx context.Context, userID string, id int64, f Format) (*File, error) {
	const op = "service.export.Export"

	d, err := s.storage.GetDesign(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	snap, err := s.snapshot(d)
	if err != nil {
		return nil, fmt.Errorf("%s: design %d: %w", op, id, err)
	}

	var data []byte
	switch f {
	case FormatPDF:
		data, err = s.renderPDF(snap)
	case FormatXLSX:
		data, err = s.renderXLSX(ctx, snap)
	case FormatDXF:
		data, err = renderDXF(snap)
	default:
		return nil, fmt.Errorf("%s: unknown format %q", op, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: render %s: %w", op, f, err)
	}

	return &File{
		Name:        fmt.Sprintf("%s_%d.%s", fileStem(d.Name), d.ID, f),
		ContentType: contentTypes[f],
		Data:        data,
	}, nil
}

func (s *Service) snapshot(d *storage.Design) (*snapshot, error) {
	raw := doe.Raw{}
	if len(d.Parameters) > 0 {
		if err := json.Unmarshal(d.Parameters, &raw); err != nil {
			return nil, fmt.Errorf("parameters: %w", err)
		}
	}

	params, normalized, issues := doe.Load(raw)
	data := preview.Build(params, s.opts)
	data.Issues = issues
	data.IsValid = len(issues) == 0

	snap := &snapshot{design: d, raw: normalized, params: params, preview: data}

	if len(d.OptimizationResult) > 0 && string(d.OptimizationResult) != "null" {
		var res optimize.Result
		if err := json.Unmarshal(d.OptimizationResult, &res); err != nil {
			return nil, fmt.Errorf("optimization result: %w", err)
		}
		snap.result = &res
	}
	return snap, nil
}

// fileStem keeps letters, digits, '-' and '_' of a design name.
func fileStem(name string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		}
		return -1
	}, strings.TrimSpace(name))
	if stem == "" {
		return "design"
	}
	return stem
}

// phaseMapPNG renders a 0..255 phase map as a grayscale PNG.
func phaseMapPNG(m [][]int) ([]byte, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, fmt.Errorf("empty phase map")
	}

	img := image.NewGray(image.Rect(0, 0, len(m[0]), len(m)))
	for y, row := range m {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: uint8(min(max(v, 0), 255))})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
