package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"doe-studio/internal/doe"
	"doe-studio/internal/optics"
)

const (
	layerAperture = "APERTURE"
	layerLenslets = "LENSLETS"
	layerAxes     = "AXES"
	layerLabel    = "LABEL"
)

// renderDXF draws the device outline in millimetres centred on the origin.
// Lens arrays also get one circle per lenslet.
func renderDXF(snap *snapshot) ([]byte, error) {
	c := snap.params.Base()
	if c.DiameterMm <= 0 {
		return nil, fmt.Errorf("device diameter must be positive")
	}
	r := c.DiameterMm / 2

	d := dxf.NewDrawing()

	if _, err := d.AddLayer(layerAxes, color.Cyan, dxf.DefaultLineType, true); err != nil {
		return nil, err
	}
	if _, err := d.Line(-r*1.2, 0, 0, r*1.2, 0, 0); err != nil {
		return nil, err
	}
	if _, err := d.Line(0, -r*1.2, 0, 0, r*1.2, 0); err != nil {
		return nil, err
	}

	if _, err := d.AddLayer(layerAperture, color.Red, dxf.DefaultLineType, true); err != nil {
		return nil, err
	}
	if err := outline(d, c.Shape, 0, 0, r); err != nil {
		return nil, err
	}

	if la, ok := snap.params.(doe.LensArray); ok && la.Size > 0 {
		if _, err := d.AddLayer(layerLenslets, color.Green, dxf.DefaultLineType, true); err != nil {
			return nil, err
		}
		pitch := optics.LensletDiameter(c.DiameterMm, la.Size)
		start := -r + pitch/2
		for i := 0; i < la.Size; i++ {
			for j := 0; j < la.Size; j++ {
				if err := outline(d, doe.ShapeCircular, start+float64(j)*pitch, start+float64(i)*pitch, pitch/2); err != nil {
					return nil, err
				}
			}
		}
	}

	if _, err := d.AddLayer(layerLabel, dxf.DefaultColor, dxf.DefaultLineType, true); err != nil {
		return nil, err
	}
	label := fmt.Sprintf("%s (%s) D=%.3fmm", snap.design.Name, c.Mode, c.DiameterMm)
	if _, err := d.Text(label, -r, -r*1.2-3, 0, 2.5); err != nil {
		return nil, err
	}

	// dxf пишет только в файл
	dir, err := os.MkdirTemp("", "doe-dxf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "design.dxf")
	if err := d.SaveAs(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func outline(d *drawing.Drawing, shape doe.Shape, cx, cy, r float64) error {
	if shape == doe.ShapeSquare {
		corners := [][2]float64{{cx - r, cy - r}, {cx + r, cy - r}, {cx + r, cy + r}, {cx - r, cy + r}}
		for i, a := range corners {
			b := corners[(i+1)%len(corners)]
			if _, err := d.Line(a[0], a[1], 0, b[0], b[1], 0); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := d.Circle(cx, cy, 0, r)
	return err
}
