package readers

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/spectra/pkg/spectra"
)

const headerSuffix = ".hdr"

// enviElement describes how one ENVI data-type code is laid out on disk.
type enviElement struct {
	size   int
	decode func(b []byte, order binary.ByteOrder) float64
}

// enviDataTypes maps the ENVI "data type" code to its element layout.
// Complex types decode to their real part.
var enviDataTypes = map[int]enviElement{
	1:  {1, func(b []byte, _ binary.ByteOrder) float64 { return float64(b[0]) }},
	2:  {2, func(b []byte, o binary.ByteOrder) float64 { return float64(int16(o.Uint16(b))) }},
	3:  {4, func(b []byte, o binary.ByteOrder) float64 { return float64(int32(o.Uint32(b))) }},
	4:  {4, func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b))) }},
	5:  {8, func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) }},
	6:  {8, func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b[:4]))) }},
	9:  {16, func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b[:8])) }},
	12: {2, func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint16(b)) }},
	13: {4, func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint32(b)) }},
	14: {8, func(b []byte, o binary.ByteOrder) float64 { return float64(int64(o.Uint64(b))) }},
	15: {8, func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint64(b)) }},
}

// ENVIReader reads one spectrum from an ENVI spectral library: a flat binary
// array of lines x samples next to a text header (.hdr).
type ENVIReader struct {
	// SpectrumIndex selects the library row, counting from 1.
	SpectrumIndex int
}

func NewENVIReader() *ENVIReader {
	return &ENVIReader{SpectrumIndex: 1}
}

// SpectrumName is one entry of a library's "spectra names" list.
type SpectrumName struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func (n SpectrumName) String() string {
	return fmt.Sprintf("%03d: %s", n.Index, n.Name)
}

func (r *ENVIReader) Read(_ context.Context, path string) (*spectra.Record, error) {
	hdr, err := ReadENVIHeader(path)
	if err != nil {
		return nil, err
	}

	lines, err := hdr.requireInt(path, "lines")
	if err != nil {
		return nil, err
	}
	samples, err := hdr.requireInt(path, "samples")
	if err != nil {
		return nil, err
	}
	code, err := hdr.requireInt(path, "data type")
	if err != nil {
		return nil, err
	}
	elem, ok := enviDataTypes[code]
	if !ok {
		return nil, formatErrf(path, "data type", "unknown code %d", code)
	}
	byteOrder, err := hdr.requireInt(path, "byte order")
	if err != nil {
		return nil, err
	}
	if byteOrder != 0 && byteOrder != 1 {
		return nil, formatErrf(path, "byte order", "expected 0 or 1, got %d", byteOrder)
	}
	wlField, ok := hdr.Get("wavelength")
	if !ok {
		return nil, formatErrf(path, "wavelength", "missing key")
	}
	wavelengths, err := parseFloatList(wlField)
	if err != nil {
		return nil, formatErr(path, "wavelength", err)
	}
	if len(wavelengths) != samples {
		return nil, formatErrf(path, "wavelength", "%d wavelengths for %d samples", len(wavelengths), samples)
	}
	if r.SpectrumIndex < 1 || r.SpectrumIndex > lines {
		return nil, fmt.Errorf("%s: spectrum index %d out of range 1..%d", path, r.SpectrumIndex, lines)
	}
	offset := 0
	if v, ok := hdr.Get("header offset"); ok {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return nil, formatErrf(path, "header offset", "invalid value %q", v)
		}
	}

	var scale float64 = 1
	if v, ok := hdr.Get("reflectance scale factor"); ok {
		if scale, err = parseFloat(v); err != nil {
			return nil, formatErr(path, "reflectance scale factor", err)
		}
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if offset > len(payload) {
		return nil, formatErrf(path, "header offset", "offset %d beyond %d byte file", offset, len(payload))
	}
	payload = payload[offset:]
	if want := lines * samples * elem.size; len(payload) != want {
		return nil, formatErrf(path, "data", "expected %d bytes for %dx%d elements, got %d", want, lines, samples, len(payload))
	}

	order := nativeOrder()
	if byteOrder == 1 {
		order = swappedOrder()
	}
	rowBytes := samples * elem.size
	row := payload[(r.SpectrumIndex-1)*rowBytes : r.SpectrumIndex*rowBytes]
	values := make([]float64, samples)
	for i := range values {
		values[i] = elem.decode(row[i*elem.size:(i+1)*elem.size], order)
	}

	rec, err := newRecord(path, wavelengths, values)
	if err != nil {
		return nil, err
	}
	if units, _ := hdr.Get("wavelength units"); strings.EqualFold(strings.TrimSpace(units), "micrometers") {
		rec.WavelengthUnits = spectra.Micrometers
	}
	rec.ValueScaleFactor = scale
	if names, err := hdr.SpectraNames(); err == nil && r.SpectrumIndex <= len(names) {
		rec.Metadata.Set("spectrum name", names[r.SpectrumIndex-1].Name)
	}
	return rec, nil
}

// ListSpectra returns the names of all spectra in the library at path,
// numbered from 1 for use as SpectrumIndex.
func (r *ENVIReader) ListSpectra(path string) ([]SpectrumName, error) {
	hdr, err := ReadENVIHeader(path)
	if err != nil {
		return nil, err
	}
	names, err := hdr.SpectraNames()
	if err != nil {
		return nil, formatErr(path, "spectra names", err)
	}
	return names, nil
}

// ENVIHeader is the key/value content of a .hdr file. Keys are lower case.
type ENVIHeader struct {
	Path   string
	keys   []string
	values map[string]string
}

func (h *ENVIHeader) Get(key string) (string, bool) {
	v, ok := h.values[strings.ToLower(key)]
	return v, ok
}

// Keys returns header keys in file order.
func (h *ENVIHeader) Keys() []string {
	return append([]string(nil), h.keys...)
}

func (h *ENVIHeader) SpectraNames() ([]SpectrumName, error) {
	field, ok := h.Get("spectra names")
	if !ok {
		return nil, errors.New("missing key")
	}
	var names []SpectrumName
	for i, n := range strings.Split(field, ",") {
		names = append(names, SpectrumName{Index: i + 1, Name: strings.TrimSpace(n)})
	}
	return names, nil
}

func (h *ENVIHeader) requireInt(path, key string) (int, error) {
	v, ok := h.Get(key)
	if !ok {
		return 0, formatErrf(path, key, "missing key")
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, formatErr(path, key, err)
	}
	return n, nil
}

// FindENVIHeader locates the header for a library data file, trying
// "<name without extension>.hdr" then "<name>.hdr".
func FindENVIHeader(dataPath string) (string, error) {
	dir := filepath.Dir(dataPath)
	base := filepath.Base(dataPath)
	candidates := []string{
		filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+headerSuffix),
		filepath.Join(dir, base+headerSuffix),
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, nil
		}
	}
	return "", formatErrf(dataPath, "header", "no header file found (tried %s)", strings.Join(candidates, ", "))
}

// HeaderCandidates returns the header names FindENVIHeader tries for a data
// file name, without touching the filesystem.
func HeaderCandidates(name string) []string {
	return []string{
		strings.TrimSuffix(name, filepath.Ext(name)) + headerSuffix,
		name + headerSuffix,
	}
}

// ReadENVIHeader finds and parses the header belonging to dataPath.
func ReadENVIHeader(dataPath string) (*ENVIHeader, error) {
	hdrPath, err := FindENVIHeader(dataPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(hdrPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdr, err := parseENVIHeader(f)
	if err != nil {
		return nil, formatErr(hdrPath, "", err)
	}
	hdr.Path = hdrPath
	log.Debug().Str("data", dataPath).Str("header", hdrPath).Int("keys", len(hdr.keys)).Msg("Resolved ENVI header")
	return hdr, nil
}

// parseENVIHeader reads "key = value" lines. A value opening with '{' runs
// until a line ending in '}'; its lines are concatenated verbatim.
func parseENVIHeader(r io.Reader) (*ENVIHeader, error) {
	lines, err := scanLines(r)
	if err != nil {
		return nil, err
	}

	hdr := &ENVIHeader{values: make(map[string]string)}
	set := func(key, value string) {
		if _, ok := hdr.values[key]; !ok {
			hdr.keys = append(hdr.keys, key)
		}
		hdr.values[key] = value
	}

	inBlock := false
	var key string
	for _, line := range lines {
		if inBlock {
			value := strings.TrimSpace(line)
			if strings.HasSuffix(value, "}") {
				inBlock = false
				value = strings.TrimSpace(strings.TrimSuffix(value, "}"))
			}
			hdr.values[key] += value
			continue
		}

		k, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(k))
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, "{") {
			inBlock = true
			value = strings.TrimPrefix(value, "{")
			if strings.HasSuffix(value, "}") {
				inBlock = false
				value = strings.TrimSuffix(value, "}")
			}
		}
		set(key, strings.TrimSpace(value))
	}
	if inBlock {
		return nil, fmt.Errorf("unterminated block for key %q", key)
	}
	return hdr, nil
}

func parseFloatList(field string) ([]float64, error) {
	parts := strings.Split(field, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		v, err := parseFloat(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func nativeOrder() binary.ByteOrder {
	return binary.NativeEndian
}

func swappedOrder() binary.ByteOrder {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 1)
	if probe[0] == 1 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
