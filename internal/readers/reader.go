// Package readers parses ground-truth spectroscopy files into spectra.Record
// values. Each supported file format has its own Reader; Registry picks one
// from an explicit format name or the file extension.
package readers

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/RMahshie/spectra/pkg/spectra"
)

// Reader parses one source (a local path, or a URL for readers that support
// remote fetch) into a fully populated Record.
type Reader interface {
	Read(ctx context.Context, source string) (*spectra.Record, error)
}

// Fetcher supplies the raw bytes behind a remote source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

const maxLineBytes = 1 << 20

// readLines returns every line of path with trailing CR/LF removed.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines, err := scanLines(f)
	if err != nil {
		return nil, formatErr(path, "", err)
	}
	return lines, nil
}

func scanLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// splitColumns splits on delim, or on runs of whitespace when delim is empty.
func splitColumns(line, delim string) []string {
	if delim == "" || strings.TrimSpace(delim) == "" {
		return strings.Fields(line)
	}
	parts := strings.Split(line, delim)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseFloat32 parses s at single precision, the precision the instrument
// software writes.
func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(v), err
}

// twoColumns parses the wavelength and value columns of each row.
func twoColumns(path string, rows []string, delim string, wlCol, valCol int, startLine int) ([]float64, []float64, error) {
	need := max(wlCol, valCol) + 1
	wavelengths := make([]float64, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for i, row := range rows {
		cols := splitColumns(row, delim)
		if len(cols) < need {
			return nil, nil, formatErrf(path, "line "+strconv.Itoa(startLine+i+1),
				"expected at least %d columns, got %d", need, len(cols))
		}
		wl, err := parseFloat(cols[wlCol])
		if err != nil {
			return nil, nil, formatErr(path, "line "+strconv.Itoa(startLine+i+1), err)
		}
		v, err := parseFloat(cols[valCol])
		if err != nil {
			return nil, nil, formatErr(path, "line "+strconv.Itoa(startLine+i+1), err)
		}
		wavelengths = append(wavelengths, wl)
		values = append(values, v)
	}
	return wavelengths, values, nil
}

// isDataLine reports whether a text row carries samples rather than being
// blank or a comment.
func isDataLine(line string) bool {
	t := strings.TrimSpace(line)
	return t != "" && !strings.HasPrefix(t, "#")
}

func newRecord(path string, wavelengths, values []float64) (*spectra.Record, error) {
	rec, err := spectra.New(path, wavelengths, values)
	if err != nil {
		return nil, formatErr(path, "data", err)
	}
	return rec, nil
}

func divideAll(values []float64, divisor float64) {
	for i := range values {
		values[i] /= divisor
	}
}
