package optimize

import (
	"context"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"doe-studio/internal/doe"
)

const (
	DefaultPhaseMapSize = 256
	// сетка интенсивностей для отображения не больше 32×32
	maxDisplayOrders = 32
	orderCount       = 11
)

// Stub is a deterministic stand-in for a real phase retrieval solver. It
// builds an analytic radial phase pattern, propagates it to the far field
// with a 2D FFT and samples the diffraction orders of the target grid.
type Stub struct {
	Size int
}

// NewStub returns a stub producing size×size phase maps.
func NewStub(size int) *Stub {
	if size <= 0 {
		size = DefaultPhaseMapSize
	}
	return &Stub{Size: size}
}

func (s *Stub) Optimize(ctx context.Context, p doe.Params) (*Result, error) {
	n := s.Size
	if n <= 0 {
		n = DefaultPhaseMapSize
	}
	c := p.Base()
	levels := PhaseLevels(c)

	phase, err := phaseMap(ctx, n, levels)
	if err != nil {
		return nil, err
	}

	field := make([][]complex128, n)
	for y := range field {
		field[y] = make([]complex128, n)
		for x := range field[y] {
			if c.Shape == doe.ShapeCircular && !insideCircle(x, y, n) {
				continue
			}
			field[y][x] = cmplx.Rect(1, float64(phase[y][x])/256*2*math.Pi)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fft2(field)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	intensity := normalizedIntensity(field)

	rows, cols := p.Grid()
	rows, cols = min(rows, maxDisplayOrders), min(cols, maxDisplayOrders)

	target := make([][]float64, rows)
	actual := make([][]float64, rows)
	sampled := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		target[i] = make([]float64, cols)
		actual[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			target[i][j] = 1 / float64(rows*cols)
			v := intensity[wrap(i-rows/2, n)][wrap(j-cols/2, n)]
			actual[i][j] = v
			sampled = append(sampled, v)
		}
	}

	orders := make([]float64, orderCount)
	for k := range orders {
		orders[k] = intensity[0][wrap(k-orderCount/2, n)]
	}

	eff := Efficiency{
		TotalEfficiency:    floats.Sum(sampled),
		ZerothOrderLeakage: intensity[0][0],
	}
	if mean := stat.Mean(sampled, nil); mean > 0 && len(sampled) > 1 {
		eff.UniformityError = stat.StdDev(sampled, nil) / mean
	}

	return &Result{
		PhaseMap:        phase,
		TargetIntensity: target,
		ActualIntensity: actual,
		OrderEnergies:   orders,
		Efficiency:      eff,
		Recipe:          c.FabricationRecipe,
		PhaseLevels:     levels,
	}, nil
}

// phaseMap builds floor((sin(20r + 3θ) + 1) * 127.5) over a unit disk grid,
// quantized to the given number of levels.
func phaseMap(ctx context.Context, n, levels int) ([][]int, error) {
	half := float64(n) / 2
	out := make([][]int, n)
	for y := 0; y < n; y++ {
		if y%32 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[y] = make([]int, n)
		for x := 0; x < n; x++ {
			dx := (float64(x) - half) / half
			dy := (float64(y) - half) / half
			r := math.Hypot(dx, dy)
			theta := math.Atan2(dy, dx)
			v := int(math.Floor((math.Sin(r*20+theta*3) + 1) * 127.5))
			out[y][x] = quantize(min(v, 255), levels)
		}
	}
	return out, nil
}

// quantize maps v in 0..255 to one of levels equally spaced values.
func quantize(v, levels int) int {
	if levels < 2 || levels >= 256 {
		return v
	}
	step := v * levels / 256
	return step * 255 / (levels - 1)
}

func insideCircle(x, y, n int) bool {
	half := float64(n) / 2
	dx := float64(x) + 0.5 - half
	dy := float64(y) + 0.5 - half
	return dx*dx+dy*dy <= half*half
}

func fft2(a [][]complex128) {
	h, w := len(a), len(a[0])
	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	for y := 0; y < h; y++ {
		rowFFT.Coefficients(a[y], a[y])
	}

	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = a[y][x]
		}
		colFFT.Coefficients(col, col)
		for y := 0; y < h; y++ {
			a[y][x] = col[y]
		}
	}
}

// normalizedIntensity returns |F|² scaled to unit total energy.
func normalizedIntensity(f [][]complex128) [][]float64 {
	out := make([][]float64, len(f))
	var total float64
	for y := range f {
		out[y] = make([]float64, len(f[y]))
		for x, v := range f[y] {
			p := real(v)*real(v) + imag(v)*imag(v)
			out[y][x] = p
			total += p
		}
	}
	if total == 0 {
		return out
	}
	for y := range out {
		floats.Scale(1/total, out[y])
	}
	return out
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
