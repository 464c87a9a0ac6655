package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cycleRows returns n averaging rows with a cubic cell of edge l and the
// given pressure.
func cycleRows(n int, l, p float64) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i), l, l, l, p}
	}
	return rows
}

var testTolerances = Tolerances{Pressure: 0.5, FixedCycles: 2, BoxWindow: 1}

func TestConvergenceMonitor_ConvergesAtFirstCycleInsideTolerance(t *testing.T) {
	// GIVEN a target of 10 bar and cycles approaching it
	m := NewConvergenceMonitor(10, testTolerances, 4)
	pressures := []float64{40, 18, 10.3, 10.1}

	var converged int
	for i, p := range pressures {
		cs, done, err := m.Observe(cycleRows(5, 2, p))
		require.NoError(t, err)
		assert.Equal(t, i+1, cs.Cycle)
		if done {
			converged = cs.Cycle
			break
		}
	}

	// THEN the monitor stops at cycle 3, the first with |mean - target| < tol
	assert.Equal(t, 3, converged)
	assert.True(t, m.Converged())
	_, _, press := m.Result()
	assert.InDelta(t, 10.3, press, 1e-12)
}

func TestConvergenceMonitor_CycleStatistics(t *testing.T) {
	m := NewConvergenceMonitor(100, testTolerances, 2)
	rows := [][]float64{{0, 1, 2, 3, 4}, {10, 3, 2, 1, 8}}

	cs, done, err := m.Observe(rows)
	require.NoError(t, err)

	assert.False(t, done)
	assert.Equal(t, 2, cs.Samples)
	assert.InDelta(t, 6, cs.Mean, 1e-12)
	assert.InDelta(t, 2, cs.Std, 1e-12) // population std
	assert.Equal(t, Box{Lx: 2, Ly: 2, Lz: 2}, cs.Box)
	assert.InDelta(t, 3, cs.VolumePerAtom, 1e-12)
}

func TestConvergenceMonitor_ZeroTargetRunsFixedCycles(t *testing.T) {
	// GIVEN a zero target pressure far from the observed mean
	m := NewConvergenceMonitor(0, testTolerances, 4)
	require.True(t, m.FixedDuration())

	_, done, err := m.Observe(cycleRows(3, 2, 500))
	require.NoError(t, err)
	assert.False(t, done)

	_, done, err = m.Observe(cycleRows(3, 2, 500))
	require.NoError(t, err)

	// THEN it finishes after the fixed number of cycles regardless
	assert.True(t, done)
}

func TestConvergenceMonitor_BoxWindowAveragesTrailingCycles(t *testing.T) {
	tol := Tolerances{Pressure: 0.5, FixedCycles: 3, BoxWindow: 2}
	m := NewConvergenceMonitor(0, tol, 1)
	for _, l := range []float64{1, 2, 4} {
		_, _, err := m.Observe(cycleRows(2, l, 0))
		require.NoError(t, err)
	}
	require.True(t, m.Converged())

	box, vpa, _ := m.Result()

	assert.Equal(t, Box{Lx: 3, Ly: 3, Lz: 3}, box)
	assert.InDelta(t, (8+64)/2.0, vpa, 1e-12)
}

func TestConvergenceMonitor_Failure(t *testing.T) {
	m := NewConvergenceMonitor(10, testTolerances, 4)
	for i := 0; i < 3; i++ {
		_, done, err := m.Observe(cycleRows(2, 2, 50))
		require.NoError(t, err)
		require.False(t, done)
	}

	f := m.Failure()

	assert.Equal(t, 3, f.Cycles)
	assert.Equal(t, 50.0, f.Last)
	assert.Equal(t, 10.0, f.Target)
	assert.True(t, errors.Is(f, ErrConvergence))
}

func TestConvergenceMonitor_Errors(t *testing.T) {
	m := NewConvergenceMonitor(1, testTolerances, 4)

	_, _, err := m.Observe(nil)
	assert.Error(t, err, "empty cycle")

	_, _, err = m.Observe([][]float64{{0, 1, 1}})
	assert.Error(t, err, "short row")

	_, done, err := m.Observe(cycleRows(1, 1, 1))
	require.NoError(t, err)
	require.True(t, done)
	_, _, err = m.Observe(cycleRows(1, 1, 1))
	assert.Error(t, err, "observe after convergence")
}

func TestConvergenceMonitor_ResultBeforeObserve(t *testing.T) {
	box, vpa, p := NewConvergenceMonitor(1, testTolerances, 4).Result()
	assert.Equal(t, Box{}, box)
	assert.Zero(t, vpa)
	assert.Zero(t, p)
}

func TestConvergenceMonitor_NonFinitePressureIsBackendFailure(t *testing.T) {
	// GIVEN a cycle whose second sample has a NaN pressure
	m := NewConvergenceMonitor(1, testTolerances, 4)
	rows := cycleRows(3, 1, 1)
	rows[1][colPress] = math.NaN()

	// WHEN it is observed
	_, done, err := m.Observe(rows)

	// THEN the engine is blamed instead of the tolerance
	require.Error(t, err)
	assert.False(t, done)
	assert.True(t, errors.Is(err, ErrBackend))
	assert.False(t, errors.Is(err, ErrConvergence))
	assert.Contains(t, err.Error(), "sample 1: column 4")
	assert.Empty(t, m.Cycles())
}
