package readers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RMahshie/spectra/pkg/spectra"
)

// Canonical format names.
const (
	FormatSig        = "sig"
	FormatText       = "txt"
	FormatCSV        = "csv"
	FormatENVI       = "envi"
	FormatUSGS       = "usgs"
	FormatDART       = "dart"
	FormatOceanOptic = "oceanoptics"
	FormatOceanView  = "oceanview"
)

var formatAliases = map[string]string{
	"sig":         FormatSig,
	"txt":         FormatText,
	"ascii":       FormatText,
	"csv":         FormatCSV,
	"envi":        FormatENVI,
	"sli":         FormatENVI,
	"usgs":        FormatUSGS,
	"dart":        FormatDART,
	"oceanoptics": FormatOceanOptic,
	"sts":         FormatOceanOptic,
	"oceanview":   FormatOceanView,
}

var extensionFormats = map[string]string{
	".sig": FormatSig,
	".txt": FormatText,
	".csv": FormatCSV,
	".sli": FormatENVI,
}

// Options tunes a Registry read. Zero values select reader defaults.
type Options struct {
	// Format overrides extension based detection (case-insensitive).
	Format string
	// SpectrumIndex selects the spectrum in an ENVI library, from 1.
	SpectrumIndex int
	// PreferFileTimestamp makes Ocean Optics reads use file timestamps.
	PreferFileTimestamp bool
}

// Registry selects and runs the reader for a source.
type Registry struct {
	fetcher Fetcher
}

// NewRegistry returns a Registry whose USGS reader fetches remote sources
// through fetcher. fetcher may be nil when only local files are read.
func NewRegistry(fetcher Fetcher) *Registry {
	return &Registry{fetcher: fetcher}
}

// ResolveFormat returns the canonical format for source. An explicit format
// wins over the file extension.
func ResolveFormat(source, format string) (string, error) {
	if format = strings.TrimSpace(format); format != "" {
		if f, ok := formatAliases[strings.ToLower(format)]; ok {
			return f, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	ext := strings.ToLower(filepath.Ext(source))
	if f, ok := extensionFormats[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: cannot infer format of %q", ErrUnsupportedFormat, source)
}

// Formats lists the accepted format names and aliases.
func Formats() []string {
	out := make([]string, 0, len(formatAliases))
	for k := range formatAliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ReaderFor builds the reader that handles source.
func (g *Registry) ReaderFor(source string, opts Options) (Reader, error) {
	format, err := ResolveFormat(source, opts.Format)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatSig:
		return NewSigReader(), nil
	case FormatText:
		r := NewASCIIReader()
		r.Delimiter = ";"
		r.SkipRows = 1
		return r, nil
	case FormatCSV:
		r := NewASCIIReader()
		r.Delimiter = ","
		r.SkipRows = 1
		return r, nil
	case FormatENVI:
		r := NewENVIReader()
		if opts.SpectrumIndex > 0 {
			r.SpectrumIndex = opts.SpectrumIndex
		}
		return r, nil
	case FormatUSGS:
		return NewUSGSReader(g.fetcher), nil
	case FormatDART:
		return NewDARTReader(), nil
	case FormatOceanOptic:
		r := NewOceanOpticsReader(DialectSDK)
		r.PreferFileTimestamp = opts.PreferFileTimestamp
		return r, nil
	case FormatOceanView:
		r := NewOceanOpticsReader(DialectOceanView)
		r.PreferFileTimestamp = opts.PreferFileTimestamp
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Read parses source with the reader selected by opts.
func (g *Registry) Read(ctx context.Context, source string, opts Options) (*spectra.Record, error) {
	r, err := g.ReaderFor(source, opts)
	if err != nil {
		return nil, err
	}
	return r.Read(ctx, source)
}
