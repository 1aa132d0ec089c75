package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// A4 книжная, мм
const (
	pdfMargin    = 15.0
	pdfWidth     = 210.0 - 2*pdfMargin
	pdfLine      = 6.0
	pdfKeyWidth  = 60.0
	pdfQRSize    = 30.0
	pdfPhaseSize = 90.0
)

func (s *Service) renderPDF(snap *snapshot) ([]byte, error) {
	d := snap.design

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(d.Name, true)
	// встроенные шрифты в cp1252, градусы и µ иначе ломаются
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pdfWidth-pdfQRSize, 10, tr(d.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pdfWidth-pdfQRSize, pdfLine,
		tr(fmt.Sprintf("Mode: %s | Status: %s | Updated: %s", d.Mode, d.Status, d.UpdatedAt.Format("2006-01-02 15:04"))),
		"", 1, "L", false, 0, "")

	if s.publicURL != "" {
		link := fmt.Sprintf("%s/designs/%d", s.publicURL, d.ID)
		qrPNG, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("qr code: %w", err)
		}
		pdf.RegisterImageOptionsReader("qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
		pdf.ImageOptions("qr", pdfMargin+pdfWidth-pdfQRSize, pdfMargin, pdfQRSize, pdfQRSize,
			false, fpdf.ImageOptions{ImageType: "PNG"}, 0, link)
	}

	pdf.SetY(pdfMargin + pdfQRSize + 5)

	section(pdf, tr, "Preview")
	for _, kv := range summaryRows(snap) {
		row(pdf, tr, kv[0], kv[1])
	}

	if len(snap.preview.Warnings) > 0 {
		section(pdf, tr, "Warnings")
		pdf.SetFont("Helvetica", "", 10)
		for _, w := range snap.preview.Warnings {
			pdf.MultiCell(pdfWidth, pdfLine, tr("- "+w), "", "L", false)
		}
	}
	if len(snap.preview.Issues) > 0 {
		section(pdf, tr, "Input issues")
		pdf.SetFont("Helvetica", "", 10)
		for _, is := range snap.preview.Issues {
			pdf.MultiCell(pdfWidth, pdfLine, tr(fmt.Sprintf("- %s: %s", is.Field, is.Message)), "", "L", false)
		}
	}

	section(pdf, tr, "Parameters")
	keys := make([]string, 0, len(snap.raw))
	for k := range snap.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := snap.raw.String(k)
		if v == "" {
			continue
		}
		row(pdf, tr, k, v)
	}

	if res := snap.result; res != nil {
		pdf.AddPage()
		section(pdf, tr, "Optimization result")
		row(pdf, tr, "Total efficiency", fmt.Sprintf("%.2f%%", res.Efficiency.TotalEfficiency*100))
		row(pdf, tr, "Uniformity error", fmt.Sprintf("%.2f%%", res.Efficiency.UniformityError*100))
		row(pdf, tr, "Zeroth order leakage", fmt.Sprintf("%.4f%%", res.Efficiency.ZerothOrderLeakage*100))
		row(pdf, tr, "Recipe", fmt.Sprintf("%s (%d levels)", res.Recipe, res.PhaseLevels))

		if len(res.PhaseMap) > 0 {
			img, err := phaseMapPNG(res.PhaseMap)
			if err != nil {
				return nil, fmt.Errorf("phase map: %w", err)
			}
			pdf.Ln(4)
			pdf.RegisterImageOptionsReader("phase", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(img))
			pdf.ImageOptions("phase", pdfMargin+(pdfWidth-pdfPhaseSize)/2, pdf.GetY(), pdfPhaseSize, pdfPhaseSize,
				true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(224, 224, 224)
	pdf.CellFormat(pdfWidth, 8, tr(title), "B", 1, "L", true, 0, "")
}

func row(pdf *fpdf.Fpdf, tr func(string) string, key, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(pdfKeyWidth, pdfLine, tr(key), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pdfWidth-pdfKeyWidth, pdfLine, tr(value), "", 1, "L", false, 0, "")
}

// summaryRows lists the preview figures shown in every export, skipping
// those the mode does not have.
func summaryRows(snap *snapshot) [][2]string {
	sum := snap.preview.Summary
	rows := [][2]string{
		{"DOE mode", string(sum.DOEMode)},
		{"Total spots", fmt.Sprint(sum.TotalSpots)},
		{"Pixel pitch", sum.PixelPitch},
		{"Diffraction angle", sum.DiffractionAngle},
		{"Full angle", sum.FullAngle},
	}
	optional := [][2]string{
		{"Equivalent full angle", sum.EquivalentFullAngle},
		{"Actual tolerance", sum.ActualTolerance},
		{"Reference DOF", sum.ReferenceDOF},
	}
	for _, kv := range optional {
		if kv[1] != "" {
			rows = append(rows, kv)
		}
	}
	rows = append(rows, [2]string{"Min tolerance", fmt.Sprintf("%.4f%%", sum.MinTolerancePercent)})

	counts := []struct {
		name string
		v    *int
	}{
		{"Effective pixels", sum.EffectivePixels},
		{"Max splits", sum.MaxSplits},
		{"Max array size", sum.MaxArraySize},
	}
	for _, c := range counts {
		if c.v != nil {
			rows = append(rows, [2]string{c.name, fmt.Sprint(*c.v)})
		}
	}

	return append(rows,
		[2]string{"Estimated efficiency", sum.EstimatedEfficiency},
		[2]string{"Computation time", sum.ComputationTime},
	)
}
