package readers

import (
	"context"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/spectra/pkg/spectra"
)

// SaturationValue is the digital number at which the detector clips.
const SaturationValue = 16383

const dataColumnsHeader = "Wavelengths\tIntensities"

// Dialect names the header fields one Ocean Optics software package writes.
type Dialect struct {
	Name string
	// IntegrationPrefix precedes the integration time; multiplying the value
	// by IntegrationScale gives seconds.
	IntegrationPrefix string
	IntegrationScale  float64
	ScansPrefix       string
	SmoothingPrefix   string
	// EndOfHeader, when set, is the line after which samples begin.
	EndOfHeader string
}

var (
	// DialectSDK is the dump written by the spectrometer SDK. Integration
	// time is in microseconds.
	DialectSDK = Dialect{
		Name:              "sdk",
		IntegrationPrefix: "Integration time: ",
		IntegrationScale:  1e-6,
		ScansPrefix:       "Scans to average: ",
		SmoothingPrefix:   "Boxcar smoothing: ",
	}

	// DialectOceanView is the export written by the OceanView desktop
	// application.
	DialectOceanView = Dialect{
		Name:              "oceanview",
		IntegrationPrefix: "Integration Time (sec): ",
		IntegrationScale:  1,
		ScansPrefix:       "Scans to average: ",
		SmoothingPrefix:   "Boxcar width: ",
		EndOfHeader:       ">>>>>Begin Spectral Data<<<<<",
	}
)

// OceanOpticsReader reads ASCII spectra saved by Ocean Optics miniature
// spectrometers. Values are raw digital numbers; saturated readings become
// NaN.
type OceanOpticsReader struct {
	Dialect Dialect
	// PreferFileTimestamp ignores any Date header and uses the file's
	// timestamps instead.
	PreferFileTimestamp bool
}

func NewOceanOpticsReader(d Dialect) *OceanOpticsReader {
	return &OceanOpticsReader{Dialect: d}
}

// ooHeader accumulates header fields during the metadata scan.
type ooHeader struct {
	acquired    *time.Time
	integration *float64
	scans       int
	meta        spectra.Metadata
	dataStart   int
}

func (r *OceanOpticsReader) Read(_ context.Context, path string) (*spectra.Record, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	hdr, err := r.scanHeader(path, lines)
	if err != nil {
		return nil, err
	}

	if hdr.acquired == nil || r.PreferFileTimestamp {
		t, err := fileTimestamp(path)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", path).Time("time", t).Msg("Using file timestamp as acquisition time")
		hdr.acquired = &t
	}

	var rows []string
	for _, line := range lines[hdr.dataStart:] {
		if isDataLine(line) {
			rows = append(rows, line)
		}
	}
	if len(rows) == 0 {
		return nil, formatErrf(path, "data", "no data rows")
	}
	wavelengths, values, err := twoColumns(path, rows, "", 0, 1, hdr.dataStart)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v >= SaturationValue {
			values[i] = math.NaN()
		}
	}

	rec, err := newRecord(path, wavelengths, values)
	if err != nil {
		return nil, err
	}
	rec.ValueUnits = spectra.DigitalNumber
	rec.AcquisitionTime = hdr.acquired
	rec.IntegrationTime = hdr.integration
	rec.ScansAveraged = hdr.scans
	rec.Metadata = hdr.meta
	return rec, nil
}

// scanHeader reads metadata until the first sample row (or the dialect's end
// of header marker) and records where samples start.
func (r *OceanOpticsReader) scanHeader(path string, lines []string) (*ooHeader, error) {
	d := r.Dialect
	hdr := &ooHeader{scans: 1, dataStart: -1}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case d.EndOfHeader != "" && line == d.EndOfHeader:
			hdr.dataStart = i + 1
		case strings.HasPrefix(line, "Date"):
			t, err := ParseInstrumentTime(line)
			if err != nil {
				return nil, formatErr(path, "Date", err)
			}
			hdr.acquired = &t
		case d.IntegrationPrefix != "" && strings.HasPrefix(line, d.IntegrationPrefix):
			v, err := parseFloat(strings.TrimPrefix(line, d.IntegrationPrefix))
			if err != nil {
				return nil, formatErr(path, strings.TrimSuffix(d.IntegrationPrefix, ": "), err)
			}
			v *= d.IntegrationScale
			hdr.integration = &v
		case d.ScansPrefix != "" && strings.HasPrefix(line, d.ScansPrefix):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, d.ScansPrefix)))
			if err != nil {
				return nil, formatErr(path, strings.TrimSuffix(d.ScansPrefix, ": "), err)
			}
			hdr.scans = n
		case d.SmoothingPrefix != "" && strings.HasPrefix(line, d.SmoothingPrefix):
			key := strings.TrimSuffix(d.SmoothingPrefix, ": ")
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, d.SmoothingPrefix)))
			if err != nil {
				return nil, formatErr(path, key, err)
			}
			hdr.meta.Set(key, strconv.Itoa(n))
		case strings.Count(line, ":") == 1:
			k, v, _ := strings.Cut(line, ":")
			hdr.meta.Set(strings.TrimSpace(k), strings.TrimSpace(v))
		case strings.Contains(line, "\t") && isSampleRow(line):
			hdr.dataStart = i
		}
		if hdr.dataStart >= 0 {
			return hdr, nil
		}
	}
	return nil, formatErrf(path, "data", "no sample rows found")
}

// isSampleRow reports whether a tab separated line holds two numbers.
func isSampleRow(line string) bool {
	if line == dataColumnsHeader {
		return false
	}
	cols := strings.Split(line, "\t")
	if len(cols) != 2 {
		return false
	}
	if _, err := parseFloat(cols[0]); err != nil {
		return false
	}
	_, err := parseFloat(cols[1])
	return err == nil
}

// fileTimestamp returns the earlier of the file's status-change and
// modification times, truncated to whole seconds, in UTC.
func fileTimestamp(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	t := fi.ModTime()
	if ct, ok := changeTime(fi); ok && ct.Before(t) {
		t = ct
	}
	return t.Truncate(time.Second).UTC(), nil
}
