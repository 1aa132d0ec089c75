package export

import (
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"doe-studio/internal/doe"
	"doe-studio/internal/preview"
)

const (
	sheetSummary = "Summary"
	sheetParams  = "Parameters"
	sheetOrders  = "Orders"
	sheetSweep   = "Wavelength sweep"
)

// SweepWavelengths are the common laser lines the design is re-evaluated at.
var SweepWavelengths = []string{"405nm", "450nm", "532nm", "633nm", "780nm", "850nm", "940nm", "1064nm", "1550nm"}

type sweepRow struct {
	wavelength string
	data       preview.Data
}

// sweep recomputes the preview of the design at every sweep wavelength.
func (s *Service) sweep(ctx context.Context, raw doe.Raw) ([]sweepRow, error) {
	rows := make([]sweepRow, len(SweepWavelengths))

	g, gCtx := errgroup.WithContext(ctx)
	for i, wl := range SweepWavelengths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			r := raw.Clone()
			r[doe.FieldWavelength] = wl
			data, _ := preview.FromRaw(r, s.opts)
			rows[i] = sweepRow{wavelength: wl, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) renderXLSX(ctx context.Context, snap *snapshot) ([]byte, error) {
	sweep, err := s.sweep(ctx, snap.raw)
	if err != nil {
		return nil, fmt.Errorf("wavelength sweep: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetParams, sheetOrders, sheetSweep} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	// шапка как в отчётах ПЭО
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, err
	}

	// Summary
	d := snap.design
	summary := [][2]string{
		{"Name", d.Name},
		{"Status", d.Status},
		{"Updated", d.UpdatedAt.Format("2006-01-02 15:04:05")},
	}
	summary = append(summary, summaryRows(snap)...)
	for i, w := range snap.preview.Warnings {
		summary = append(summary, [2]string{fmt.Sprintf("Warning %d", i+1), w})
	}
	if snap.result != nil {
		eff := snap.result.Efficiency
		summary = append(summary,
			[2]string{"Total efficiency", fmt.Sprintf("%.4f", eff.TotalEfficiency)},
			[2]string{"Uniformity error", fmt.Sprintf("%.4f", eff.UniformityError)},
			[2]string{"Zeroth order leakage", fmt.Sprintf("%.6f", eff.ZerothOrderLeakage)},
		)
	}
	if err := writeTable(f, sheetSummary, []string{"Field", "Value"}, headerStyle, len(summary), func(i int) []any {
		return []any{summary[i][0], summary[i][1]}
	}); err != nil {
		return nil, err
	}
	f.SetColWidth(sheetSummary, "A", "A", 26)
	f.SetColWidth(sheetSummary, "B", "B", 60)

	// Parameters
	keys := make([]string, 0, len(snap.raw))
	for k := range snap.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if err := writeTable(f, sheetParams, []string{"Parameter", "Value"}, headerStyle, len(keys), func(i int) []any {
		return []any{keys[i], snap.raw.String(keys[i])}
	}); err != nil {
		return nil, err
	}
	f.SetColWidth(sheetParams, "A", "B", 28)

	// Orders
	var energies []float64
	if snap.result != nil {
		energies = snap.result.OrderEnergies
	}
	center := len(energies) / 2
	if err := writeTable(f, sheetOrders, []string{"Order", "Relative energy"}, headerStyle, len(energies), func(i int) []any {
		return []any{i - center, energies[i]}
	}); err != nil {
		return nil, err
	}

	// Wavelength sweep
	if err := writeTable(f, sheetSweep,
		[]string{"Wavelength", "Full angle", "Half angle", "Pixel pitch", "Min tolerance, %", "Warnings"},
		headerStyle, len(sweep), func(i int) []any {
			sum := sweep[i].data.Summary
			return []any{sweep[i].wavelength, sum.FullAngle, sum.DiffractionAngle, sum.PixelPitch,
				sum.MinTolerancePercent, len(sweep[i].data.Warnings)}
		}); err != nil {
		return nil, err
	}
	f.SetColWidth(sheetSweep, "A", "F", 16)

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTable writes a styled header and n rows produced by rowAt, then
// freezes the header row.
func writeTable(f *excelize.File, sheet string, header []string, style, n int, rowAt func(i int) []any) error {
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return err
	}
	lastCol, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol, style); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := rowAt(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
