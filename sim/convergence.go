package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Column layout of the averaging file: step lx ly lz press.
const (
	colLx = iota + 1
	colLy
	colLz
	colPress
	averageColumns
)

// CycleStats summarises the samples of one equilibration cycle.
type CycleStats struct {
	Cycle         int
	Samples       int
	Mean          float64 // mean pressure
	Std           float64
	Box           Box // mean cell of the cycle
	VolumePerAtom float64
}

// ConvergenceMonitor decides when the pressure of an NPT equilibration has
// settled. Each call to Observe consumes the samples written during one
// cycle. A target pressure of exactly zero switches the monitor to a fixed
// number of cycles without a convergence test.
type ConvergenceMonitor struct {
	target float64
	tol    Tolerances
	natoms int
	cycles []CycleStats
	done   bool
}

// NewConvergenceMonitor creates a monitor for the given target pressure.
func NewConvergenceMonitor(target float64, tol Tolerances, natoms int) *ConvergenceMonitor {
	if tol.BoxWindow < 1 {
		tol.BoxWindow = 1
	}
	if tol.FixedCycles < 1 {
		tol.FixedCycles = 1
	}
	return &ConvergenceMonitor{target: target, tol: tol, natoms: natoms}
}

// FixedDuration reports whether the monitor skips the convergence test.
func (m *ConvergenceMonitor) FixedDuration() bool { return m.target == 0 }

// Cycles returns the statistics observed so far.
func (m *ConvergenceMonitor) Cycles() []CycleStats { return m.cycles }

// Observe records one cycle and reports whether equilibration is complete.
func (m *ConvergenceMonitor) Observe(rows [][]float64) (CycleStats, bool, error) {
	if m.done {
		return CycleStats{}, true, fmt.Errorf("convergence monitor already finished")
	}
	if len(rows) == 0 {
		return CycleStats{}, false, fmt.Errorf("cycle %d produced no samples", len(m.cycles)+1)
	}
	for i, row := range rows {
		if len(row) < averageColumns {
			return CycleStats{}, false, fmt.Errorf("sample %d has %d columns, want %d", i, len(row), averageColumns)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return CycleStats{}, false, &BackendFailure{Diagnostic: fmt.Sprintf("cycle %d sample %d: column %d is %g", len(m.cycles)+1, i, j+1, v)}
			}
		}
	}
	press := column(rows, colPress)
	lx, ly, lz := column(rows, colLx), column(rows, colLy), column(rows, colLz)
	vol := make([]float64, len(rows))
	for i := range rows {
		vol[i] = lx[i] * ly[i] * lz[i] / float64(m.natoms)
	}
	mean, std := stat.PopMeanStdDev(press, nil)
	cs := CycleStats{
		Cycle:         len(m.cycles) + 1,
		Samples:       len(rows),
		Mean:          mean,
		Std:           std,
		Box:           Box{Lx: stat.Mean(lx, nil), Ly: stat.Mean(ly, nil), Lz: stat.Mean(lz, nil)},
		VolumePerAtom: stat.Mean(vol, nil),
	}
	m.cycles = append(m.cycles, cs)

	if m.FixedDuration() {
		m.done = len(m.cycles) >= m.tol.FixedCycles
	} else {
		m.done = math.Abs(mean-m.target) < m.tol.Pressure
	}
	return cs, m.done, nil
}

// Converged reports whether the last observed cycle finished equilibration.
func (m *ConvergenceMonitor) Converged() bool { return m.done }

// Result returns the production cell and volume per atom, averaged over the
// trailing window of cycles, together with the mean pressure of the last
// cycle. Only meaningful once Converged is true.
func (m *ConvergenceMonitor) Result() (Box, float64, float64) {
	if len(m.cycles) == 0 {
		return Box{}, 0, 0
	}
	window := m.tol.BoxWindow
	if window > len(m.cycles) {
		window = len(m.cycles)
	}
	tail := m.cycles[len(m.cycles)-window:]
	var box Box
	var vol float64
	for _, c := range tail {
		box.Lx += c.Box.Lx
		box.Ly += c.Box.Ly
		box.Lz += c.Box.Lz
		vol += c.VolumePerAtom
	}
	w := float64(window)
	box = Box{Lx: box.Lx / w, Ly: box.Ly / w, Lz: box.Lz / w}
	return box, vol / w, m.cycles[len(m.cycles)-1].Mean
}

// Failure describes why the monitor never converged.
func (m *ConvergenceMonitor) Failure() *ConvergenceFailure {
	f := &ConvergenceFailure{Cycles: len(m.cycles), Target: m.target, Tolerance: m.tol.Pressure}
	if len(m.cycles) > 0 {
		f.Last = m.cycles[len(m.cycles)-1].Mean
	}
	return f
}
