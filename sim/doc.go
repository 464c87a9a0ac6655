// Package sim provides the thermodynamic-integration workflow engine.
//
// # Reading Guide
//
// Start with these files to understand a calculation:
//   - spec.go: CalculationSpec, the immutable description of one calculation
//   - sequencer.go: the stage machine (equilibrate → phase check → switch → integrate)
//   - directive.go: the typed instructions sent to the simulation engine
//
// # Architecture
//
// The sim package owns the workflow and the numerics; engine and structure
// analysis live in sub-packages:
//   - sim/lammps/: Driver that renders directives as LAMMPS input
//   - sim/order/: Steinhardt q6 solid-fraction classifier
//   - sim/config/: YAML input parsing, defaults and validation
//   - sim/batch/: local, SLURM and SGE job submission
//   - sim/store/: SQLite index of finished reports
//   - sim/trace/: stage history recording
//
// sim/order registers its classifier via init() by setting
// NewPhaseClassifierFunc, which breaks the sim ↔ sim/order import cycle.
//
// # Numerics
//
//   - convergence.go: per-cycle pressure statistics and production cell
//   - work.go: trapezoidal switching work, (W_f - W_b)/2 per repeat
//   - reference.go: ideal gas and Uhlenbeck-Ford free energies
//   - rscale.go: reversible-scaling temperature sweep
package sim
