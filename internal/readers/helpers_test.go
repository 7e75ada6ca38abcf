package readers

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/spectra/pkg/spectra"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// requireWellFormed checks the invariants every reader guarantees.
func requireWellFormed(t *testing.T, rec *spectra.Record) {
	t.Helper()
	require.NotNil(t, rec)
	require.NotEmpty(t, rec.Wavelengths)
	require.Len(t, rec.Values, len(rec.Wavelengths))
	for i := 1; i < len(rec.Wavelengths); i++ {
		require.Greater(t, rec.Wavelengths[i], rec.Wavelengths[i-1], "index %d", i)
	}
}

func assertNaNAt(t *testing.T, values []float64, idx ...int) {
	t.Helper()
	nan := make(map[int]bool, len(idx))
	for _, i := range idx {
		nan[i] = true
	}
	for i, v := range values {
		assert.Equal(t, nan[i], math.IsNaN(v), "index %d value %v", i, v)
	}
}
