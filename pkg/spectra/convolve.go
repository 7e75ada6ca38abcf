package spectra

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// Convolve reduces r to one value per kernel: the response-weighted mean of
// r over each kernel's wavelength grid. Every kernel must carry Response
// units; r is interpolated onto the kernel grid with edge clamping.
func (r *Record) Convolve(kernels ...*Record) ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	for _, k := range kernels {
		if k == nil {
			return nil, fmt.Errorf("nil kernel: %w", ErrNotResponse)
		}
		if k.ValueUnits != Response {
			return nil, fmt.Errorf("%s has units %q: %w", k.SourceID, k.ValueUnits, ErrNotResponse)
		}
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("kernel %s: %w", k.SourceID, err)
		}
	}

	out := make([]float64, len(kernels))
	for i, k := range kernels {
		v, err := r.convolveOne(k)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *Record) convolveOne(k *Record) (float64, error) {
	weighted := Interpolate(k.Wavelengths, r.Wavelengths, r.Values)
	vecmath.MulBlockInPlace(weighted, k.Values)

	norm := Trapezoid(k.Values, k.Wavelengths)
	if norm == 0 {
		return 0, fmt.Errorf("kernel %s: %w", k.SourceID, ErrZeroResponse)
	}
	return Trapezoid(weighted, k.Wavelengths) / norm, nil
}

// Trapezoid integrates y over x with the trapezoidal rule.
func Trapezoid(y, x []float64) float64 {
	var sum float64
	for i := 1; i < len(x) && i < len(y); i++ {
		sum += 0.5 * (x[i] - x[i-1]) * (y[i] + y[i-1])
	}
	return sum
}
