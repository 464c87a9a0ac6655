package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tint-sim/tint/sim/internal/testutil"
)

// fakeEngine emulates the files an engine writes in response to
// directives: averaged cell/pressure rows, snapshots and switching traces.
type fakeEngine struct {
	t        *testing.T
	lattice  float64 // FCC lattice constant of the dumped structure
	cells    int     // FCC cells per edge
	pressure []float64
	// switchForce is dU written by pair-difference traces.
	switchForce float64
	// energy is the unscaled energy per atom of scaling traces.
	energy float64
	failOn func(Directive) error

	mu         sync.Mutex
	sessions   int
	directives []Directive
	cycle      int
}

func newFakeEngine(t *testing.T) *fakeEngine {
	return &fakeEngine{t: t, lattice: 3.6, cells: 3, pressure: []float64{0}, switchForce: 0.3, energy: -3}
}

func (e *fakeEngine) Open(ctx context.Context, workDir string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions++
	return &fakeSession{e: e, dir: workDir}, nil
}

// count returns how many recorded directives satisfy match.
func (e *fakeEngine) count(match func(Directive) bool) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, d := range e.directives {
		if match(d) {
			n++
		}
	}
	return n
}

type tracedSeries struct {
	WriteSeries
	lambda *Ramp
}

type fakeSession struct {
	e        *fakeEngine
	dir      string
	avg      *WriteSeries
	trace    *tracedSeries
	ramp     *Ramp
	quantity Quantity
	closed   bool
}

func (s *fakeSession) Execute(ctx context.Context, ds ...Directive) error {
	if s.closed {
		return fmt.Errorf("closed")
	}
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	for _, d := range ds {
		s.e.directives = append(s.e.directives, d)
		if s.e.failOn != nil {
			if err := s.e.failOn(d); err != nil {
				return err
			}
		}
		switch d := d.(type) {
		case Compute:
			if d.Quantity == QuantityEnergyPerAtom || d.Quantity == QuantityPairDifference {
				s.quantity = d.Quantity
			}
		case WriteSeries:
			if d.Average {
				s.avg = &d
				continue
			}
			s.trace = &tracedSeries{WriteSeries: d, lambda: s.ramp}
		case Ramp:
			s.ramp = &d
		case Unfix:
			switch {
			case s.avg != nil && d.ID == s.avg.ID:
				s.avg = nil
			case s.trace != nil && d.ID == s.trace.ID:
				s.trace = nil
			case s.ramp != nil && d.ID == s.ramp.ID:
				s.ramp = nil
			}
		case Run:
			s.run(d.Steps)
		case Dump:
			s.dump(d)
		}
	}
	return nil
}

func (s *fakeSession) path(name string) string { return filepath.Join(s.dir, name) }

func (s *fakeSession) appendRows(name string, rows [][]float64) {
	f, err := os.OpenFile(s.path(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.e.t.Fatalf("opening %s: %v", name, err)
	}
	defer f.Close()
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = fmt.Sprintf("%.12g", v)
		}
		fmt.Fprintln(f, strings.Join(parts, " "))
	}
}

func (s *fakeSession) run(steps int) {
	l := s.e.lattice * float64(s.e.cells)
	if s.avg != nil {
		p := s.e.pressure[min(s.e.cycle, len(s.e.pressure)-1)]
		s.e.cycle++
		n := steps / (s.avg.Every * s.avg.Repeat)
		rows := make([][]float64, n)
		for i := range rows {
			rows[i] = []float64{float64(i), l, l, l, p}
		}
		s.appendRows(s.avg.File, rows)
	}
	if s.trace != nil && s.trace.lambda != nil && steps > 0 {
		r := s.trace.lambda
		rows := make([][]float64, steps+1)
		for k := range rows {
			lambda := r.From + (r.To-r.From)*float64(k)/float64(steps)
			du := s.e.switchForce
			if s.quantity == QuantityEnergyPerAtom {
				du = lambda * s.e.energy
			}
			rows[k] = []float64{du, lambda}
		}
		s.appendRows(s.trace.File, rows)
	}
}

func (s *fakeSession) dump(d Dump) {
	pos, l := testutil.FCCLattice(s.e.lattice, s.e.cells)
	switch d.Format {
	case DumpXYZ:
		testutil.WriteXYZ(s.e.t, s.dir, d.File, d.Elements[0], pos)
	case DumpData:
		testutil.WriteDataFile(s.e.t, s.dir, d.File, pos, l)
	}
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeClassifier reports a fixed solid fraction.
type fakeClassifier struct {
	fraction float64
	calls    int
}

func (c *fakeClassifier) SolidFraction(ctx context.Context, snap Snapshot) (float64, error) {
	c.calls++
	if _, err := os.Stat(snap.Path); err != nil {
		return 0, err
	}
	return c.fraction, nil
}

// testSpec is a small valid calculation of 108 FCC atoms.
func testSpec(mode Mode, phase Phase) CalculationSpec {
	return CalculationSpec{
		ID:              Identifier(mode, "FCC", 1000, 0),
		Mode:            mode,
		Phase:           phase,
		Temperature:     1000,
		TemperatureStop: 1000,
		THigh:           2000,
		Pressure:        0,
		Iso:             true,
		Lattice:         "FCC",
		LatticeConstant: 3.6,
		Repeat:          [3]int{3, 3, 3},
		NAtoms:          108,
		Elements:        []string{"Cu"},
		Masses:          []float64{63.546},
		Concentration:   []float64{1},
		Pairs:           []PairPotential{{Style: "eam/alloy", Coeff: "* * Cu.eam.alloy Cu"}},
		NSims: 2,
		MD: MDParams{
			Timestep: 0.001, NSmall: 100, NEvery: 10, NRepeat: 1, NCycles: 5,
			TDamp: 0.1, PDamp: 0.1, TEquil: 10, TSwitch: 20,
		},
		Tol:       Tolerances{Pressure: 0.5, SolidFrac: 0.7, LiquidFrac: 0.5, FixedCycles: 2, BoxWindow: 1},
		Reference: UFReference{P: 50, Sigma: 1.5, Cutoff: 7.5, Coefficients: []float64{6.2, 1.8}, Exponents: []float64{1, 2.5}, MaxX: 1},
		Seed:      1,
	}
}

// alchemySpec switches between two embedded-atom parameterisations.
func alchemySpec() CalculationSpec {
	spec := testSpec(ModeAlchemy, PhaseSolid)
	spec.Pairs = append(spec.Pairs, PairPotential{Style: "eam/fs", Coeff: "* * Cu.eam.fs Cu"})
	return spec
}
