package sim

import (
	"fmt"
	"strings"
)

// Mode selects the switching protocol of a calculation.
type Mode string

const (
	// ModeFreeEnergy switches a liquid between the potential and the
	// Uhlenbeck-Ford reference and adds the analytic reference free energy.
	ModeFreeEnergy Mode = "fe"
	// ModeAlchemy switches between two interatomic potentials. F = w.
	ModeAlchemy Mode = "alchemy"
	// ModeScaling performs reversible scaling of one potential to sweep
	// the free energy over a temperature range.
	ModeScaling Mode = "ts"
)

var validModes = map[Mode]bool{
	ModeFreeEnergy: true,
	ModeAlchemy:    true,
	ModeScaling:    true,
}

// IsValidMode reports whether name is a recognised calculation mode.
func IsValidMode(name string) bool { return validModes[Mode(name)] }

// Phase is the thermodynamic phase a calculation expects to stay in.
type Phase string

const (
	PhaseSolid  Phase = "solid"
	PhaseLiquid Phase = "liquid"
)

var validPhases = map[Phase]bool{PhaseSolid: true, PhaseLiquid: true}

// IsValidPhase reports whether name is a recognised phase.
func IsValidPhase(name string) bool { return validPhases[Phase(name)] }

// PairPotential is one pair_style / pair_coeff combination.
// Coeff is the full pair_coeff argument string, e.g. "* * Cu.eam.alloy Cu".
type PairPotential struct {
	Style string
	Coeff string
}

// MDParams holds the molecular-dynamics run lengths and coupling constants.
// Step counts are in engine steps, damping constants in time units.
type MDParams struct {
	Timestep float64
	NSmall   int // steps per equilibration cycle
	NEvery   int
	NRepeat  int
	NCycles  int // maximum number of convergence cycles
	TDamp    float64
	PDamp    float64
	TEquil   int // steps at an endpoint before each switch
	TSwitch  int // steps of one switch
}

// SampleInterval is the number of steps between rows of the averaging file.
func (p MDParams) SampleInterval() int { return p.NEvery * p.NRepeat }

// Tolerances bundles the convergence and phase gate thresholds.
type Tolerances struct {
	Pressure    float64 // |mean - target| below this means converged
	SolidFrac   float64 // solid runs fail below this solid fraction
	LiquidFrac  float64 // liquid runs fail above this solid fraction
	FixedCycles int     // averaging cycles when the target pressure is zero
	BoxWindow   int     // trailing cycles averaged for the production box
}

// UFReference parameterises the Uhlenbeck-Ford reference fluid.
// Coefficients alone are reduced virial coefficients B̃2, B̃3, ... and
// override the values computed from P. With Exponents they are a fitted
// free energy Σ cₙ x^{αₙ}/αₙ.
type UFReference struct {
	P            float64
	Sigma        float64
	Cutoff       float64
	Coefficients []float64
	Exponents    []float64
	SeriesTol    float64
	MaxX         float64
}

// CalculationSpec is the fully resolved, immutable description of one
// free-energy calculation. It is built once from configuration and never
// modified afterwards.
type CalculationSpec struct {
	ID              string
	Mode            Mode
	Phase           Phase
	Temperature     float64
	TemperatureStop float64
	THigh           float64
	Pressure        float64
	Iso             bool

	// Either Lattice names a lattice keyword (fcc, bcc, ...) with
	// LatticeConstant, or DataFile points at a LAMMPS data file.
	Lattice         string
	LatticeConstant float64
	Repeat          [3]int
	DataFile        string

	NAtoms        int
	Elements      []string
	Masses        []float64
	Concentration []float64

	Pairs     []PairPotential
	NSims     int
	MD        MDParams
	Tol       Tolerances
	Reference UFReference

	// F0 is the known free energy per atom at Temperature, used by
	// reversible scaling when no reference switching run is requested.
	F0   *float64
	Seed int64
}

// Identifier builds the canonical directory name mode-lattice-T-P.
func Identifier(mode Mode, lattice string, temperature, pressure float64) string {
	l := lattice
	if i := strings.LastIndexAny(l, "/\\"); i >= 0 {
		l = l[i+1:]
	}
	l = strings.TrimSuffix(l, ".data")
	return fmt.Sprintf("%s-%s-%d-%d", mode, l, int(temperature), int(pressure))
}

// ScalingFactor returns λ_f = T0/Tf for reversible scaling.
func (c CalculationSpec) ScalingFactor() float64 {
	return c.Temperature / c.TemperatureStop
}

// NeedsReferenceSwitch reports whether a UF reference switching run is part
// of the calculation. Liquid free energies and liquid scaling runs without
// a known F0 need one.
func (c CalculationSpec) NeedsReferenceSwitch() bool {
	switch c.Mode {
	case ModeFreeEnergy:
		return true
	case ModeScaling:
		return c.Phase == PhaseLiquid && c.F0 == nil
	}
	return false
}

// Validate checks the invariants the sequencer relies on. The config
// package performs the user-facing validation; this guards programmatic use.
func (c CalculationSpec) Validate() error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if !validModes[c.Mode] {
		add("unknown mode %q", c.Mode)
	}
	if !validPhases[c.Phase] {
		add("unknown phase %q", c.Phase)
	}
	if c.Temperature <= 0 {
		add("temperature must be positive, got %g", c.Temperature)
	}
	if c.NAtoms <= 0 {
		add("number of atoms must be positive, got %d", c.NAtoms)
	}
	if len(c.Elements) == 0 || len(c.Elements) != len(c.Masses) {
		add("element and mass lists must be non-empty and of equal length (%d vs %d)", len(c.Elements), len(c.Masses))
	}
	if len(c.Concentration) != len(c.Elements) {
		add("concentration has %d entries for %d elements", len(c.Concentration), len(c.Elements))
	}
	if c.NSims < 1 {
		add("nsims must be at least 1, got %d", c.NSims)
	}
	if c.MD.NSmall <= 0 || c.MD.SampleInterval() <= 0 || c.MD.NSmall%c.MD.SampleInterval() != 0 {
		add("nsmall (%d) must be a positive multiple of nevery*nrepeat (%d)", c.MD.NSmall, c.MD.SampleInterval())
	}
	if c.MD.NCycles < 1 {
		add("ncycles must be at least 1, got %d", c.MD.NCycles)
	}
	if c.Tol.BoxWindow < 1 {
		add("box window must be at least 1, got %d", c.Tol.BoxWindow)
	}
	switch c.Mode {
	case ModeAlchemy:
		if len(c.Pairs) != 2 {
			add("alchemy needs exactly two pair styles, got %d", len(c.Pairs))
		}
	case ModeFreeEnergy:
		if c.Phase != PhaseLiquid {
			add("mode fe supports only liquids; solid references are not available")
		}
		if len(c.Pairs) != 1 {
			add("mode fe needs exactly one pair style, got %d", len(c.Pairs))
		}
	case ModeScaling:
		if len(c.Pairs) != 1 {
			add("mode ts needs exactly one pair style, got %d", len(c.Pairs))
		}
		if c.TemperatureStop <= 0 || c.TemperatureStop == c.Temperature {
			add("mode ts needs a distinct positive stop temperature, got %g", c.TemperatureStop)
		}
		if c.Phase == PhaseSolid && c.F0 == nil {
			add("solid reversible scaling needs f0")
		}
	}
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
