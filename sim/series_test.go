package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tint-sim/tint/sim/internal/testutil"
)

func TestReadColumns_SkipsCommentsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avg.dat")
	content := "# Time-averaged data for fix avg\n# TimeStep v_lx v_ly v_lz v_press\n\n100 1 2 3 4.5\n200 1 2 3 -1e3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadColumns(path, averageColumns)

	require.NoError(t, err)
	assert.Equal(t, [][]float64{{100, 1, 2, 3, 4.5}, {200, 1, 2, 3, -1000}}, rows)
}

func TestReadColumns_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"too few columns", "1 2\n", "expected at least 3 columns"},
		{"not a number", "1 2 x\n", "column 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := ReadColumns(path, 3)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := ReadColumns(filepath.Join(dir, "missing"), 1)
	assert.True(t, os.IsNotExist(err))
}

func TestReadDataHeader_FromLatticeFixture(t *testing.T) {
	// GIVEN a 2×2×2 FCC data file
	dir := t.TempDir()
	pos, l := testutil.FCCLattice(3.6, 2)
	path := testutil.WriteDataFile(t, dir, "conf.data", pos, l)

	h, err := ReadDataHeader(path)
	require.NoError(t, err)

	assert.Equal(t, 32, h.Atoms)
	assert.Equal(t, 1, h.AtomTypes)
	assert.Equal(t, []int{32}, h.TypeCounts)
	assert.InDelta(t, 7.2, h.Box.Lx, 1e-12)
	assert.InDelta(t, 7.2, h.Box.Lz, 1e-12)
	assert.Equal(t, []float64{1}, h.Concentration())
}

func TestReadDataHeader_AlloyConcentration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alloy.data")
	content := `alloy written by hand

4 atoms
2 atom types

0.0 4.0 xlo xhi
-1.0 3.0 ylo yhi
0.0 5.0 zlo zhi

Masses

1 63.546
2 58.69

Atoms # atomic

1 1 0 0 0
2 2 1 1 1
3 1 2 2 2
4 1 3 3 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	h, err := ReadDataHeader(path)
	require.NoError(t, err)

	assert.Equal(t, Box{Lx: 4, Ly: 4, Lz: 5}, h.Box)
	assert.Equal(t, []int{3, 1}, h.TypeCounts)
	assert.Equal(t, []float64{0.75, 0.25}, h.Concentration())
}

func TestReadDataHeader_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"no atom count", "title\n\n1 atom types\n"},
		{"type out of range", "title\n\n1 atoms\n1 atom types\n\nAtoms # atomic\n\n1 2 0 0 0\n"},
		{"bad bounds", "title\n\n1 atoms\n0 x xlo xhi\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.data")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := ReadDataHeader(path)
			assert.Error(t, err)
		})
	}
}

func TestDataHeader_ConcentrationWithoutAtoms(t *testing.T) {
	assert.Equal(t, []float64{0, 0}, DataHeader{TypeCounts: []int{0, 0}}.Concentration())
}

func TestReadColumns_NonFiniteIsBackendFailure(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"nan", "0.1 0\nnan 0.5\n", ":2: column 1 is nan"},
		{"negative nan", "0.1 0\n0.2 -nan\n", ":2: column 2 is -nan"},
		{"inf", "inf 0\n", ":1: column 1 is inf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := ReadColumns(path, 2)

			require.Error(t, err)
			var bf *BackendFailure
			require.ErrorAs(t, err, &bf)
			assert.Contains(t, bf.Diagnostic, path+tt.want)
		})
	}
}
