// Package spectra holds the normalized spectral measurement produced by every
// format reader, together with the numeric operations defined on it.
package spectra

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// WavelengthUnit is the unit of Record.Wavelengths.
type WavelengthUnit string

const (
	Nanometers  WavelengthUnit = "nm"
	Micrometers WavelengthUnit = "um"
)

// ValueUnit describes what Record.Values measure.
type ValueUnit string

const (
	Reflectance   ValueUnit = "reflectance"
	DigitalNumber ValueUnit = "DN"
	Response      ValueUnit = "response"
)

var (
	ErrEmpty             = errors.New("spectrum has no samples")
	ErrLengthMismatch    = errors.New("wavelengths and values differ in length")
	ErrNotIncreasing     = errors.New("wavelengths are not strictly increasing")
	ErrNotResponse       = errors.New("kernel value units are not response")
	ErrZeroResponse      = errors.New("kernel response integrates to zero")
	ErrNoAcquisitionTime = errors.New("acquisition time is not set")
	ErrInvalidGrid       = errors.New("invalid wavelength grid")
)

// Record is a single spectrum: index-aligned wavelengths and values plus
// whatever acquisition metadata the source format carried.
type Record struct {
	SourceID    string
	Wavelengths []float64
	Values      []float64

	// Image coordinates, only set for spectra extracted from an image.
	Pixel *int
	Line  *int

	Latitude        *float64
	Longitude       *float64
	AcquisitionTime *time.Time

	WavelengthUnits WavelengthUnit
	ValueUnits      ValueUnit
	// ValueScaleFactor is stored, never applied.
	ValueScaleFactor float64

	IntegrationTime *float64 // seconds
	ScansAveraged   int

	Metadata Metadata
}

// New validates the sample arrays and returns a Record with default units
// (nanometers, reflectance), a scale factor of 1 and one scan averaged.
func New(sourceID string, wavelengths, values []float64) (*Record, error) {
	if err := validate(wavelengths, values); err != nil {
		return nil, err
	}
	return &Record{
		SourceID:         sourceID,
		Wavelengths:      wavelengths,
		Values:           values,
		WavelengthUnits:  Nanometers,
		ValueUnits:       Reflectance,
		ValueScaleFactor: 1,
		ScansAveraged:    1,
	}, nil
}

// Validate reports whether the Record satisfies the sample invariants.
func (r *Record) Validate() error {
	return validate(r.Wavelengths, r.Values)
}

// Len returns the number of samples.
func (r *Record) Len() int {
	return len(r.Wavelengths)
}

// TimeDifference returns r's acquisition time minus other's, in seconds.
func (r *Record) TimeDifference(other *Record) (float64, error) {
	if r.AcquisitionTime == nil {
		return 0, fmt.Errorf("%s: %w", r.SourceID, ErrNoAcquisitionTime)
	}
	if other == nil || other.AcquisitionTime == nil {
		id := ""
		if other != nil {
			id = other.SourceID
		}
		return 0, fmt.Errorf("%s: %w", id, ErrNoAcquisitionTime)
	}
	return r.AcquisitionTime.Sub(*other.AcquisitionTime).Seconds(), nil
}

func validate(wavelengths, values []float64) error {
	if len(wavelengths) == 0 {
		return ErrEmpty
	}
	if len(wavelengths) != len(values) {
		return fmt.Errorf("%w: %d wavelengths, %d values", ErrLengthMismatch, len(wavelengths), len(values))
	}
	return checkIncreasing(wavelengths)
}

func checkIncreasing(xs []float64) error {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite wavelength at index %d", ErrNotIncreasing, i)
		}
		if i > 0 && x <= xs[i-1] {
			return fmt.Errorf("%w: %g follows %g at index %d", ErrNotIncreasing, x, xs[i-1], i)
		}
	}
	return nil
}
