// register.go wires the q6 classifier into the sim package's registration
// variable (NewPhaseClassifierFunc). This init() runs when any package
// imports sim/order, breaking the import cycle between sim/ (interface
// owner) and sim/order/ (implementation).
package order

import "github.com/tint-sim/tint/sim"

func init() {
	sim.NewPhaseClassifierFunc = func() sim.PhaseClassifier { return NewClassifier() }
}
