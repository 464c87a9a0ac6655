package config

import (
	"fmt"
	"strings"

	"github.com/tint-sim/tint/sim"
	"github.com/tint-sim/tint/sim/batch"
)

// atomsPerCell is the number of atoms in the conventional cell of each
// supported lattice keyword.
var atomsPerCell = map[string]int{
	"BCC": 2,
	"FCC": 4,
	"HCP": 4,
	"DIA": 8,
	"SC":  1,
}

// isLatticeKeyword reports whether name is a lattice keyword rather than a
// data-file path.
func isLatticeKeyword(name string) bool {
	_, ok := atomsPerCell[strings.ToUpper(name)]
	return ok
}

// Validate checks the whole input and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if len(c.Element) == 0 {
		add("element is required")
	}
	if len(c.Element) != len(c.Mass) {
		add("element and mass must have the same length (%d vs %d)", len(c.Element), len(c.Mass))
	}
	for i, m := range c.Mass {
		if m <= 0 {
			add("mass[%d] must be positive, got %g", i, m)
		}
	}
	if len(c.MD.PairStyle) == 0 {
		add("md.pair_style is required")
	}
	if len(c.MD.PairStyle) != len(c.MD.PairCoeff) {
		add("md.pair_style and md.pair_coeff must have the same length (%d vs %d)", len(c.MD.PairStyle), len(c.MD.PairCoeff))
	}
	if c.MD.Timestep <= 0 {
		add("md.timestep must be positive, got %g", c.MD.Timestep)
	}
	if si := c.MD.NEvery * c.MD.NRepeat; si <= 0 || c.MD.NSmall <= 0 || c.MD.NSmall%si != 0 {
		add("md.nsmall (%d) must be a positive multiple of nevery*nrepeat (%d)", c.MD.NSmall, si)
	}
	if c.MD.NCycles < 1 {
		add("md.ncycles must be at least 1, got %d", c.MD.NCycles)
	}
	if c.MD.TE < 0 || c.MD.TS <= 0 {
		add("md.te must be non-negative and md.ts positive, got %d and %d", c.MD.TE, c.MD.TS)
	}
	if c.Conv.PTol <= 0 {
		add("conv.p_tol must be positive, got %g", c.Conv.PTol)
	}
	if c.Conv.SolidFrac < 0 || c.Conv.SolidFrac > 1 || c.Conv.LiquidFrac < 0 || c.Conv.LiquidFrac > 1 {
		add("conv.solid_frac and conv.liquid_frac must lie in [0, 1]")
	}
	if c.Conv.FixedCycles < 1 || c.Conv.BoxWindow < 1 {
		add("conv.fixed_cycles and conv.box_window must be at least 1")
	}
	if !batch.IsValidScheduler(c.Queue.Scheduler) {
		add("unknown queue.scheduler %q; valid: %s", c.Queue.Scheduler, strings.Join(batch.ValidSchedulerNames(), ", "))
	}
	if c.Queue.Cores < 1 {
		add("queue.cores must be at least 1, got %d", c.Queue.Cores)
	}
	if c.Reference.P <= 0 || c.Reference.Sigma <= 0 || c.Reference.Cutoff <= 0 || c.Reference.MaxX <= 0 {
		add("reference p, sigma, cutoff and max_x must be positive")
	}
	if c.Reference.SeriesTol <= 0 {
		add("reference.series_tol must be positive, got %g", c.Reference.SeriesTol)
	}
	if n := len(c.Reference.Exponents); n > 0 {
		if len(c.Reference.Coefficients) != n {
			add("reference.exponents needs one coefficient each (%d coefficients for %d exponents)", len(c.Reference.Coefficients), n)
		}
		for i, a := range c.Reference.Exponents {
			if a <= 0 {
				add("reference.exponents[%d] must be positive, got %g", i, a)
			}
		}
	}
	if c.Engine.Command == "" {
		add("engine.command is required")
	}
	if len(c.CalculationBlocks) == 0 {
		add("at least one calculation is required")
	}
	for i := range c.CalculationBlocks {
		c.validateCalculation(i, &c.CalculationBlocks[i], add)
	}
	if len(problems) > 0 {
		return &sim.ConfigurationError{Problems: problems}
	}
	return nil
}

func (c *Config) validateCalculation(i int, calc *Calculation, add func(string, ...any)) {
	prefix := fmt.Sprintf("calculations[%d]", i)
	if !sim.IsValidMode(calc.Mode) {
		add("%s: unknown mode %q; valid: fe, alchemy, ts", prefix, calc.Mode)
	}
	n := len(calc.Lattice)
	if n == 0 {
		add("%s: lattice is required", prefix)
	}
	if !calc.State.fits(n) {
		add("%s: state needs one value or one per lattice (%d)", prefix, n)
	}
	for _, s := range calc.State {
		if !sim.IsValidPhase(s) {
			add("%s: unknown state %q; valid: solid, liquid", prefix, s)
		}
	}
	if len(calc.LatticeConstant) > 0 && !calc.LatticeConstant.fits(n) {
		add("%s: lattice_constant needs one value or one per lattice (%d)", prefix, n)
	}
	if len(calc.Iso) > 0 && !calc.Iso.fits(n) {
		add("%s: iso needs one value or one per lattice (%d)", prefix, n)
	}
	if len(calc.Temperature) == 0 {
		add("%s: temperature is required", prefix)
	}
	for _, t := range calc.Temperature {
		if t <= 0 {
			add("%s: temperature must be positive, got %g", prefix, t)
		}
	}
	if len(calc.Pressure) == 0 {
		add("%s: pressure is required", prefix)
	}
	if calc.Mode == string(sim.ModeScaling) && len(calc.Temperature) != 2 {
		add("%s: mode ts needs exactly two temperatures, got %d", prefix, len(calc.Temperature))
	}
	if calc.Mode == string(sim.ModeAlchemy) && len(c.MD.PairStyle) != 2 {
		add("%s: mode alchemy needs two pair styles, got %d", prefix, len(c.MD.PairStyle))
	}
	if calc.F0 != nil && calc.Mode != string(sim.ModeScaling) {
		add("%s: f0 is only used by mode ts", prefix)
	}
	if calc.Repeat != nil {
		if len(calc.Repeat) != 3 || calc.Repeat[0] < 1 {
			add("%s: repeat must be three positive integers", prefix)
		} else if calc.Repeat[0] != calc.Repeat[1] || calc.Repeat[1] != calc.Repeat[2] {
			add("%s: repeat must be uniform (nx = ny = nz), got %v", prefix, calc.Repeat)
		}
	}
	if calc.NSims < 0 || calc.THigh < 0 {
		add("%s: nsims and thigh must not be negative", prefix)
	}
	for j, lat := range calc.Lattice {
		if isLatticeKeyword(lat) {
			if len(c.Element) > 1 {
				add("%s: lattice %s supports one element; use a data file for alloys", prefix, lat)
			}
			if len(calc.LatticeConstant) == 0 || calc.LatticeConstant.at(j) <= 0 {
				add("%s: lattice %s needs a positive lattice_constant", prefix, lat)
			}
			continue
		}
		h, err := sim.ReadDataHeader(c.resolve(lat))
		if err != nil {
			add("%s: lattice %q is neither BCC, FCC, HCP, DIA, SC nor a readable data file: %v", prefix, lat, err)
			continue
		}
		if h.AtomTypes != len(c.Element) {
			add("%s: data file %s has %d atom types for %d elements", prefix, lat, h.AtomTypes, len(c.Element))
		}
	}
}
