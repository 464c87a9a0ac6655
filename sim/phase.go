package sim

import "context"

// Snapshot is an atomic configuration written by the engine together with
// the periodic cell it was taken in.
type Snapshot struct {
	Path string
	Box  Box
}

// PhaseClassifier estimates the fraction of solid-like atoms in a snapshot.
type PhaseClassifier interface {
	SolidFraction(ctx context.Context, snap Snapshot) (float64, error)
}

// PhaseGate applies the phase gate to a measured solid fraction. A solid
// must keep at least SolidFrac of its atoms crystalline; a liquid must have
// at most LiquidFrac.
func PhaseGate(phase Phase, fraction float64, tol Tolerances) error {
	switch phase {
	case PhaseSolid:
		if fraction < tol.SolidFrac {
			return &PhaseGateFailure{Melted: true, Fraction: fraction, Threshold: tol.SolidFrac}
		}
	case PhaseLiquid:
		if fraction > tol.LiquidFrac {
			return &PhaseGateFailure{Melted: false, Fraction: fraction, Threshold: tol.LiquidFrac}
		}
	}
	return nil
}
