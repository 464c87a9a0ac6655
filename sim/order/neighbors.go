package order

import (
	"math"

	"github.com/tint-sim/tint/sim"
)

// minimumImage returns b - a under periodic boundary conditions.
func minimumImage(a, b [3]float64, box sim.Box) [3]float64 {
	l := [3]float64{box.Lx, box.Ly, box.Lz}
	var d [3]float64
	for k := 0; k < 3; k++ {
		d[k] = b[k] - a[k]
		d[k] -= l[k] * math.Round(d[k]/l[k])
	}
	return d
}

// Neighbors lists, for every atom, the atoms closer than cutoff.
func Neighbors(pos [][3]float64, box sim.Box, cutoff float64) [][]int {
	c2 := cutoff * cutoff
	out := make([][]int, len(pos))
	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			d := minimumImage(pos[i], pos[j], box)
			if d[0]*d[0]+d[1]*d[1]+d[2]*d[2] < c2 {
				out[i] = append(out[i], j)
				out[j] = append(out[j], i)
			}
		}
	}
	return out
}
