package readers

import (
	"context"
	"strings"

	"github.com/RMahshie/spectra/pkg/spectra"
)

const dartCommentMarker = "*"

// DARTReader reads the reflectance table written by the DART radiative
// transfer model. The table has ten columns (wavelength, reflectance in
// percent, then eight optical quantities that are ignored) and is interleaved
// with comment blocks opened and closed by lines containing '*'.
type DARTReader struct{}

func NewDARTReader() *DARTReader {
	return &DARTReader{}
}

func (r *DARTReader) Read(_ context.Context, path string) (*spectra.Record, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	rows := stripDARTComments(lines)
	if len(rows) == 0 {
		return nil, formatErrf(path, "data", "no data rows")
	}

	wavelengths, values, err := twoColumns(path, rows, "", 0, 1, 0)
	if err != nil {
		return nil, err
	}
	divideAll(values, 100)

	return newRecord(path, wavelengths, values)
}

// stripDARTComments drops blank lines and every line from an opening marker
// line through its closing marker line.
func stripDARTComments(lines []string) []string {
	var out []string
	inComment := false
	for _, line := range lines {
		if strings.Contains(line, dartCommentMarker) {
			inComment = !inComment
			continue
		}
		if inComment || strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
