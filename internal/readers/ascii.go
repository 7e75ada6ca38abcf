package readers

import (
	"context"
	"fmt"

	"github.com/RMahshie/spectra/pkg/spectra"
)

// ASCIIReader extracts two columns from delimited text. Rows are assumed to
// form a single increasing wavelength run.
type ASCIIReader struct {
	WavelengthColumn int
	ValueColumn      int
	// Delimiter separates columns; empty means any run of whitespace.
	Delimiter string
	// SkipRows header rows are ignored before the data.
	SkipRows int
	// ValueScale divides every value, e.g. 100 for percent reflectance.
	ValueScale      float64
	WavelengthUnits spectra.WavelengthUnit
}

// NewASCIIReader returns a reader for whitespace separated wavelength/value
// columns with no header rows.
func NewASCIIReader() *ASCIIReader {
	return &ASCIIReader{
		WavelengthColumn: 0,
		ValueColumn:      1,
		ValueScale:       1,
		WavelengthUnits:  spectra.Nanometers,
	}
}

func (r *ASCIIReader) Read(_ context.Context, path string) (*spectra.Record, error) {
	if r.WavelengthColumn < 0 || r.ValueColumn < 0 {
		return nil, fmt.Errorf("negative column index")
	}
	if r.SkipRows < 0 {
		return nil, fmt.Errorf("negative skip rows %d", r.SkipRows)
	}
	if r.ValueScale == 0 {
		return nil, fmt.Errorf("value scale must be non-zero")
	}

	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	if r.SkipRows > len(lines) {
		return nil, formatErrf(path, "data", "file has %d lines, cannot skip %d", len(lines), r.SkipRows)
	}

	var rows []string
	var firstRow int
	for i, line := range lines[r.SkipRows:] {
		if !isDataLine(line) {
			continue
		}
		if rows == nil {
			firstRow = r.SkipRows + i
		}
		rows = append(rows, line)
	}
	if len(rows) == 0 {
		return nil, formatErrf(path, "data", "no data rows")
	}

	wavelengths, values, err := twoColumns(path, rows, r.Delimiter, r.WavelengthColumn, r.ValueColumn, firstRow)
	if err != nil {
		return nil, err
	}
	divideAll(values, r.ValueScale)

	rec, err := newRecord(path, wavelengths, values)
	if err != nil {
		return nil, err
	}
	if r.WavelengthUnits != "" {
		rec.WavelengthUnits = r.WavelengthUnits
	}
	return rec, nil
}
