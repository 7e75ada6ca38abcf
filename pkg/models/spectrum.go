package models

import (
	"math"
	"time"

	"github.com/RMahshie/spectra/pkg/spectra"
)

// MetadataEntry is one ordered key/value pair from a file header.
type MetadataEntry struct {
	Key   string `json:"key" doc:"Header field name"`
	Value string `json:"value" doc:"Header field value"`
}

// Spectrum is the JSON form of a spectra.Record. JSON has no NaN or Inf, so
// missing, saturated and non-finite samples are encoded as null.
type Spectrum struct {
	SourceID         string          `json:"source_id" doc:"File path or URL the spectrum was read from"`
	Wavelengths      []float64       `json:"wavelengths" doc:"Strictly increasing wavelengths"`
	Values           []*float64      `json:"values" doc:"Measured values; null marks a missing or saturated sample"`
	Pixel            *int            `json:"pixel,omitempty" doc:"Image column for spectra taken from an image"`
	Line             *int            `json:"line,omitempty" doc:"Image row for spectra taken from an image"`
	Latitude         *float64        `json:"latitude,omitempty" doc:"Decimal degrees, south negative"`
	Longitude        *float64        `json:"longitude,omitempty" doc:"Decimal degrees, west negative"`
	AcquisitionTime  *time.Time      `json:"acquisition_time,omitempty" doc:"Acquisition time in UTC"`
	WavelengthUnits  string          `json:"wavelength_units" enum:"nm,um" doc:"Unit of wavelengths"`
	ValueUnits       string          `json:"value_units" enum:"reflectance,DN,response" doc:"Unit of values"`
	ValueScaleFactor float64         `json:"value_scale_factor" doc:"Declared scale factor, not applied to values"`
	IntegrationTime  *float64        `json:"integration_time,omitempty" doc:"Detector integration time in seconds"`
	ScansAveraged    int             `json:"scans_averaged" doc:"Number of scans averaged into each value"`
	Metadata         []MetadataEntry `json:"metadata" doc:"Remaining header fields in file order"`
}

// FromRecord converts a record to its JSON form
func FromRecord(r *spectra.Record) *Spectrum {
	s := &Spectrum{
		SourceID:         r.SourceID,
		Wavelengths:      append([]float64(nil), r.Wavelengths...),
		Values:           NullableFloats(r.Values),
		Pixel:            r.Pixel,
		Line:             r.Line,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		AcquisitionTime:  r.AcquisitionTime,
		WavelengthUnits:  string(r.WavelengthUnits),
		ValueUnits:       string(r.ValueUnits),
		ValueScaleFactor: r.ValueScaleFactor,
		IntegrationTime:  r.IntegrationTime,
		ScansAveraged:    r.ScansAveraged,
		Metadata:         make([]MetadataEntry, 0, r.Metadata.Len()),
	}
	r.Metadata.Each(func(k, v string) {
		s.Metadata = append(s.Metadata, MetadataEntry{Key: k, Value: v})
	})
	return s
}

// ToRecord rebuilds the record, turning null values back into NaN
func (s *Spectrum) ToRecord() (*spectra.Record, error) {
	values := make([]float64, len(s.Values))
	for i, v := range s.Values {
		if v == nil {
			values[i] = math.NaN()
		} else {
			values[i] = *v
		}
	}

	r, err := spectra.New(s.SourceID, append([]float64(nil), s.Wavelengths...), values)
	if err != nil {
		return nil, err
	}
	r.Pixel = s.Pixel
	r.Line = s.Line
	r.Latitude = s.Latitude
	r.Longitude = s.Longitude
	r.AcquisitionTime = s.AcquisitionTime
	if s.WavelengthUnits != "" {
		r.WavelengthUnits = spectra.WavelengthUnit(s.WavelengthUnits)
	}
	if s.ValueUnits != "" {
		r.ValueUnits = spectra.ValueUnit(s.ValueUnits)
	}
	if s.ValueScaleFactor != 0 {
		r.ValueScaleFactor = s.ValueScaleFactor
	}
	r.IntegrationTime = s.IntegrationTime
	if s.ScansAveraged > 0 {
		r.ScansAveraged = s.ScansAveraged
	}
	for _, m := range s.Metadata {
		r.Metadata.Set(m.Key, m.Value)
	}
	return r, nil
}

// NullableFloats maps NaN and ±Inf to nil so the slice survives JSON
// encoding.
func NullableFloats(xs []float64) []*float64 {
	out := make([]*float64, len(xs))
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		v := x
		out[i] = &v
	}
	return out
}
