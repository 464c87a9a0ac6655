// Package testutil provides shared test infrastructure for the tint engine.
// It consolidates fixture writers and assertion helpers used across sim/ and
// its sub-package tests. It must not import sim so package sim's own tests
// can use it.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// WriteColumns writes rows as a whitespace separated file in dir and
// returns its path. Header lines are written first, prefixed with '#'.
func WriteColumns(t *testing.T, dir, name string, rows [][]float64, header ...string) string {
	t.Helper()
	var b strings.Builder
	for _, h := range header {
		fmt.Fprintf(&b, "# %s\n", h)
	}
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = fmt.Sprintf("%.10g", v)
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// FCCLattice returns the positions of an n×n×n face-centred cubic crystal
// with lattice constant a, and the edge length of the cubic cell.
func FCCLattice(a float64, n int) ([][3]float64, float64) {
	basis := [4][3]float64{{0, 0, 0}, {0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5}}
	pos := make([][3]float64, 0, 4*n*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				for _, b := range basis {
					pos = append(pos, [3]float64{
						(float64(i) + b[0]) * a,
						(float64(j) + b[1]) * a,
						(float64(k) + b[2]) * a,
					})
				}
			}
		}
	}
	return pos, a * float64(n)
}

// WriteXYZ writes pos as an XYZ file with every atom named symbol.
func WriteXYZ(t *testing.T, dir, name, symbol string, pos [][3]float64) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", len(pos))
	b.WriteString("Atoms. Timestep: 0\n")
	for _, p := range pos {
		fmt.Fprintf(&b, "%s %.8f %.8f %.8f\n", symbol, p[0], p[1], p[2])
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// WriteDataFile writes a minimal atomic LAMMPS data file for a cubic cell
// of edge l with every atom of type 1.
func WriteDataFile(t *testing.T, dir, name string, pos [][3]float64, l float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("LAMMPS data file via write_data\n\n")
	fmt.Fprintf(&b, "%d atoms\n1 atom types\n\n", len(pos))
	fmt.Fprintf(&b, "0 %.8f xlo xhi\n0 %.8f ylo yhi\n0 %.8f zlo zhi\n\n", l, l, l)
	b.WriteString("Masses\n\n1 63.546\n\nAtoms # atomic\n\n")
	for i, p := range pos {
		fmt.Fprintf(&b, "%d 1 %.8f %.8f %.8f 0 0 0\n", i+1, p[0], p[1], p[2])
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
