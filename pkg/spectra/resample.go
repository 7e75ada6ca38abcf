package spectra

import (
	"fmt"
	"sort"
)

// Resample linearly interpolates r onto wavelengths and replaces r's samples
// in place. Points outside the current range take the nearest edge value.
// r is left untouched when the grid is rejected.
func (r *Record) Resample(wavelengths []float64) error {
	if len(wavelengths) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidGrid)
	}
	if err := checkIncreasing(wavelengths); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	if err := r.Validate(); err != nil {
		return err
	}

	grid := make([]float64, len(wavelengths))
	copy(grid, wavelengths)
	r.Values = Interpolate(grid, r.Wavelengths, r.Values)
	r.Wavelengths = grid
	return nil
}

// Interpolate evaluates the piecewise linear function through (xp, fp) at
// each x. xp must be increasing. Values left of xp[0] return fp[0] and values
// right of xp[len-1] return fp[len-1].
func Interpolate(x, xp, fp []float64) []float64 {
	out := make([]float64, len(x))
	n := len(xp)
	if n == 0 {
		return out
	}
	for i, xi := range x {
		switch {
		case xi <= xp[0]:
			out[i] = fp[0]
		case xi >= xp[n-1]:
			out[i] = fp[n-1]
		default:
			// xp[j-1] < xi <= xp[j]
			j := sort.SearchFloat64s(xp, xi)
			if xp[j] == xi {
				out[i] = fp[j]
				continue
			}
			x0, x1 := xp[j-1], xp[j]
			y0, y1 := fp[j-1], fp[j]
			out[i] = y0 + (xi-x0)*(y1-y0)/(x1-x0)
		}
	}
	return out
}
