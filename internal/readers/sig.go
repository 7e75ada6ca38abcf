package readers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/spectra/pkg/spectra"
)

// sigColumnSep separates the fixed-width numeric columns of a .sig file.
const sigColumnSep = "  "

// sigRow is one numeric row of a .sig file: wavelength and reflectance in
// percent. The reference and target radiance channels are dropped.
type sigRow struct {
	wavelength  float32
	reflectance float32
}

// SigReader reads the text format written by portable field spectrometers
// (.sig): "key = value" header lines followed by double-space separated rows
// of wavelength, reference radiance, target radiance and reflectance (%).
type SigReader struct{}

func NewSigReader() *SigReader {
	return &SigReader{}
}

func (r *SigReader) Read(_ context.Context, path string) (*spectra.Record, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	header := make(map[string]string)
	var order []string
	var rows []sigRow
	for i, line := range lines {
		switch {
		case strings.Contains(line, "="):
			key, value, _ := strings.Cut(line, "=")
			// Anything after a second '=' is not part of the value.
			value, _, _ = strings.Cut(value, "=")
			key = strings.TrimSpace(key)
			if _, ok := header[key]; !ok {
				order = append(order, key)
			}
			header[key] = strings.TrimSpace(value)
		case line != "" && unicode.IsDigit(rune(line[0])):
			row, err := parseSigRow(line)
			if err != nil {
				return nil, formatErr(path, "line "+strconv.Itoa(i+1), err)
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, formatErrf(path, "data", "no numeric rows")
	}

	trimmed, err := removeOverlap(rows)
	if err != nil {
		return nil, formatErr(path, "data", err)
	}
	if len(trimmed) != len(rows) {
		log.Debug().Str("path", path).Int("rows", len(rows)).Int("kept", len(trimmed)).Msg("Removed sig overlap region")
	}

	wavelengths := make([]float64, len(trimmed))
	values := make([]float64, len(trimmed))
	for i, row := range trimmed {
		wavelengths[i] = float64(row.wavelength)
		values[i] = float64(row.reflectance / 100)
	}

	lon, err := parseSigPosition(header["longitude"], 3, 'W')
	if err != nil {
		return nil, formatErr(path, "longitude", err)
	}
	lat, err := parseSigPosition(header["latitude"], 2, 'S')
	if err != nil {
		return nil, formatErr(path, "latitude", err)
	}

	rec, err := newRecord(path, wavelengths, values)
	if err != nil {
		return nil, err
	}
	rec.Longitude = &lon
	rec.Latitude = &lat
	for _, k := range order {
		if k == "latitude" || k == "longitude" {
			continue
		}
		rec.Metadata.Set(k, header[k])
	}
	return rec, nil
}

func parseSigRow(line string) (sigRow, error) {
	var cols []string
	for _, c := range strings.Split(strings.TrimRight(line, " \t"), sigColumnSep) {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	if len(cols) < 4 {
		return sigRow{}, fmt.Errorf("expected 4 columns, got %d", len(cols))
	}
	wl, err := parseFloat32(cols[0])
	if err != nil {
		return sigRow{}, err
	}
	refl, err := parseFloat32(cols[3])
	if err != nil {
		return sigRow{}, err
	}
	return sigRow{wavelength: wl, reflectance: refl}, nil
}

// removeOverlap drops the span that an instrument scans twice when it
// restarts a lower sub-range. The break-point is the row whose wavelength is
// smaller than its predecessor; rows before it that lie above the break-point
// wavelength are removed together with the row preceding them. Input without
// a break-point is returned unchanged.
func removeOverlap(rows []sigRow) ([]sigRow, error) {
	point := 0
	breaks := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].wavelength < rows[i-1].wavelength {
			point = i
			breaks++
		}
	}
	if breaks == 0 {
		return rows, nil
	}
	if breaks > 1 {
		return nil, fmt.Errorf("%w: %d wavelength restarts", ErrMultipleOverlaps, breaks)
	}

	// rows[point-1] is always above the break-point, so first is found.
	cutoff := rows[point].wavelength
	first := point - 1
	for i := 0; i < point; i++ {
		if rows[i].wavelength > cutoff {
			first = i
			break
		}
	}

	head := max(first-1, 0)
	out := make([]sigRow, 0, head+len(rows)-point)
	out = append(out, rows[:head]...)
	out = append(out, rows[point:]...)
	return out, nil
}

// parseSigPosition converts "DDDMM.MMMMH" (degreeDigits wide degrees) to
// decimal degrees. Only the first of a "start , end" pair is used.
func parseSigPosition(field string, degreeDigits int, negative byte) (float64, error) {
	start, _, _ := strings.Cut(field, ",")
	start = strings.TrimSpace(start)
	if len(start) < degreeDigits+2 {
		return 0, fmt.Errorf("malformed position %q", field)
	}
	deg, err := strconv.Atoi(start[:degreeDigits])
	if err != nil {
		return 0, fmt.Errorf("malformed position %q: %w", field, err)
	}
	minutes, err := strconv.ParseFloat(start[degreeDigits:len(start)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed position %q: %w", field, err)
	}
	hemisphere := unicode.ToUpper(rune(start[len(start)-1]))
	if !strings.ContainsRune("NSEW", hemisphere) {
		return 0, fmt.Errorf("malformed position %q: missing hemisphere", field)
	}
	pos := float64(deg) + minutes/60
	if hemisphere == rune(negative) {
		pos = -pos
	}
	return pos, nil
}
