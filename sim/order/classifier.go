// Package order classifies atoms as solid- or liquid-like with Steinhardt
// bond-orientational order parameters.
package order

import (
	"context"
	"fmt"
	"math"

	chem "github.com/rmera/gochem"

	"github.com/tint-sim/tint/sim"
)

const l6 = 6

// Classifier implements sim.PhaseClassifier with the q6·q6 bond criterion:
// a bond between neighbours is solid when their normalised q6 vectors
// overlap by more than BondThreshold, and an atom is solid when at least
// SolidBondFraction of its bonds are solid.
type Classifier struct {
	CutoffFactor      float64 // cutoff = CutoffFactor·(V/N)^(1/3)
	BondThreshold     float64
	SolidBondFraction float64
	MinNeighbors      int
}

// NewClassifier returns a classifier with the standard thresholds.
func NewClassifier() *Classifier {
	return &Classifier{
		CutoffFactor:      1.5,
		BondThreshold:     0.5,
		SolidBondFraction: 0.5,
		MinNeighbors:      4,
	}
}

// SolidFraction reads an XYZ snapshot and classifies it.
func (c *Classifier) SolidFraction(ctx context.Context, snap sim.Snapshot) (float64, error) {
	mol, err := chem.XYZFileRead(snap.Path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", snap.Path, err)
	}
	n := mol.Len()
	if n == 0 {
		return 0, fmt.Errorf("%s contains no atoms", snap.Path)
	}
	coords := mol.Coords[0]
	pos := make([][3]float64, n)
	for i := range pos {
		pos[i] = [3]float64{coords.At(i, 0), coords.At(i, 1), coords.At(i, 2)}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.Fraction(pos, snap.Box)
}

// Fraction classifies atoms at pos in the periodic cell box.
func (c *Classifier) Fraction(pos [][3]float64, box sim.Box) (float64, error) {
	n := len(pos)
	if n == 0 {
		return 0, fmt.Errorf("no atoms to classify")
	}
	if box.Volume() <= 0 {
		return 0, fmt.Errorf("invalid cell %+v", box)
	}
	neigh := Neighbors(pos, box, c.CutoffFactor*math.Cbrt(box.Volume()/float64(n)))
	q := bondOrder(pos, box, neigh)

	solid := 0
	for i := range pos {
		if len(neigh[i]) < c.MinNeighbors || q[i] == nil {
			continue
		}
		bonds := 0
		for _, j := range neigh[i] {
			if q[j] != nil && dot(q[i], q[j]) > c.BondThreshold {
				bonds++
			}
		}
		if float64(bonds) >= c.SolidBondFraction*float64(len(neigh[i])) {
			solid++
		}
	}
	return float64(solid) / float64(n), nil
}

// Q6 returns the rotationally invariant Steinhardt q6 of every atom.
func Q6(pos [][3]float64, box sim.Box, cutoff float64) []float64 {
	neigh := Neighbors(pos, box, cutoff)
	out := make([]float64, len(pos))
	for i, qi := range rawBondOrder(pos, box, neigh) {
		if qi == nil {
			continue
		}
		var sum float64
		for _, v := range qi {
			sum += v * v
		}
		out[i] = math.Sqrt(4 * math.Pi / float64(2*l6+1) * sum)
	}
	return out
}

// rawBondOrder returns the neighbour-averaged real q6m vector of every atom,
// nil for atoms without neighbours.
func rawBondOrder(pos [][3]float64, box sim.Box, neigh [][]int) [][]float64 {
	norms := harmonicNorms(l6)
	ylm := make([]float64, 2*l6+1)
	out := make([][]float64, len(pos))
	for i := range pos {
		if len(neigh[i]) == 0 {
			continue
		}
		q := make([]float64, 2*l6+1)
		for _, j := range neigh[i] {
			d := minimumImage(pos[i], pos[j], box)
			realHarmonics(l6, norms, d[0], d[1], d[2], ylm)
			for m := range q {
				q[m] += ylm[m]
			}
		}
		for m := range q {
			q[m] /= float64(len(neigh[i]))
		}
		out[i] = q
	}
	return out
}

// bondOrder returns unit-normalised q6m vectors.
func bondOrder(pos [][3]float64, box sim.Box, neigh [][]int) [][]float64 {
	q := rawBondOrder(pos, box, neigh)
	for i, v := range q {
		if v == nil {
			continue
		}
		norm := math.Sqrt(dot(v, v))
		if norm == 0 {
			q[i] = nil
			continue
		}
		for m := range v {
			v[m] /= norm
		}
	}
	return q
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
