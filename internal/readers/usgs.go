package readers

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/RMahshie/spectra/pkg/spectra"
)

const (
	// usgsPreambleLines precede the data table in USGS library ASCII files.
	usgsPreambleLines = 16
	// USGSFillValue marks missing samples in USGS library files.
	USGSFillValue = -1.23e34
)

// USGSReader reads a USGS spectral library ASCII file from disk or, when the
// source is an http(s) URL, through Fetcher. Wavelengths are micrometers.
type USGSReader struct {
	Fetcher Fetcher
}

func NewUSGSReader(fetcher Fetcher) *USGSReader {
	return &USGSReader{Fetcher: fetcher}
}

func (r *USGSReader) Read(ctx context.Context, source string) (*spectra.Record, error) {
	var lines []string
	if isRemote(source) {
		if r.Fetcher == nil {
			return nil, fmt.Errorf("%s: no fetcher configured for remote sources", source)
		}
		data, err := r.Fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		if lines, err = scanLines(bytes.NewReader(data)); err != nil {
			return nil, formatErr(source, "", err)
		}
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if lines, err = scanLines(f); err != nil {
			return nil, formatErr(source, "", err)
		}
	}

	if len(lines) <= usgsPreambleLines {
		return nil, formatErrf(source, "data", "expected more than %d lines, got %d", usgsPreambleLines, len(lines))
	}
	var rows []string
	for _, line := range lines[usgsPreambleLines:] {
		if isDataLine(line) {
			rows = append(rows, line)
		}
	}
	if len(rows) == 0 {
		return nil, formatErrf(source, "data", "no data rows")
	}

	wavelengths, values, err := twoColumns(source, rows, "", 0, 1, usgsPreambleLines)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v == USGSFillValue {
			values[i] = math.NaN()
		}
	}

	rec, err := newRecord(source, wavelengths, values)
	if err != nil {
		return nil, err
	}
	rec.WavelengthUnits = spectra.Micrometers
	return rec, nil
}

func isRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
