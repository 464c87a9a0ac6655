package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tint-sim/tint/sim"
)

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

// structure is the resolved starting configuration of a lattice entry.
type structure struct {
	lattice       string
	dataFile      string
	natoms        int
	concentration []float64
}

func (c *Config) structureFor(lat string, repeat [3]int) (structure, error) {
	if isLatticeKeyword(lat) {
		up := strings.ToUpper(lat)
		return structure{
			lattice:       up,
			natoms:        atomsPerCell[up] * repeat[0] * repeat[1] * repeat[2],
			concentration: []float64{1},
		}, nil
	}
	path := c.resolve(lat)
	h, err := sim.ReadDataHeader(path)
	if err != nil {
		return structure{}, err
	}
	return structure{lattice: lat, dataFile: path, natoms: h.Atoms, concentration: h.Concentration()}, nil
}

func (c *Config) pairs(mode sim.Mode) []sim.PairPotential {
	n := 1
	if mode == sim.ModeAlchemy {
		n = 2
	}
	out := make([]sim.PairPotential, 0, n)
	for i := 0; i < n && i < len(c.MD.PairStyle); i++ {
		out = append(out, sim.PairPotential{Style: c.MD.PairStyle[i], Coeff: c.MD.PairCoeff[i]})
	}
	return out
}

// Calculations validates the input and expands it into one spec per
// lattice, pressure and temperature. Reversible scaling consumes the two
// temperatures of its block as start and stop.
func (c *Config) Calculations() ([]sim.CalculationSpec, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	md := sim.MDParams{
		Timestep: c.MD.Timestep,
		NSmall:   c.MD.NSmall,
		NEvery:   c.MD.NEvery,
		NRepeat:  c.MD.NRepeat,
		NCycles:  c.MD.NCycles,
		TDamp:    c.MD.TDamp,
		PDamp:    c.MD.PDamp,
		TEquil:   c.MD.TE,
		TSwitch:  c.MD.TS,
	}
	tol := sim.Tolerances{
		Pressure:    c.Conv.PTol,
		SolidFrac:   c.Conv.SolidFrac,
		LiquidFrac:  c.Conv.LiquidFrac,
		FixedCycles: c.Conv.FixedCycles,
		BoxWindow:   c.Conv.BoxWindow,
	}
	ref := sim.UFReference{
		P:            c.Reference.P,
		Sigma:        c.Reference.Sigma,
		Cutoff:       c.Reference.Cutoff,
		Coefficients: c.Reference.Coefficients,
		Exponents:    c.Reference.Exponents,
		SeriesTol:    c.Reference.SeriesTol,
		MaxX:         c.Reference.MaxX,
	}

	var specs []sim.CalculationSpec
	for _, calc := range c.CalculationBlocks {
		mode := sim.Mode(calc.Mode)
		repeat := [3]int{1, 1, 1}
		if calc.Repeat != nil {
			repeat = [3]int{calc.Repeat[0], calc.Repeat[1], calc.Repeat[2]}
		}
		nsims := calc.NSims
		if nsims == 0 {
			nsims = 1
		}
		temps := [][2]float64{}
		if mode == sim.ModeScaling {
			temps = append(temps, [2]float64{calc.Temperature[0], calc.Temperature[1]})
		} else {
			for _, t := range calc.Temperature {
				temps = append(temps, [2]float64{t, t})
			}
		}
		for i, lat := range calc.Lattice {
			st, err := c.structureFor(lat, repeat)
			if err != nil {
				return nil, sim.NewConfigurationError("lattice %q: %v", lat, err)
			}
			var alat float64
			if len(calc.LatticeConstant) > 0 {
				alat = calc.LatticeConstant.at(i)
			}
			iso := true
			if len(calc.Iso) > 0 {
				iso = calc.Iso.at(i)
			}
			for _, p := range calc.Pressure {
				for _, t := range temps {
					thigh := calc.THigh
					if thigh == 0 {
						thigh = 2 * t[1]
					}
					spec := sim.CalculationSpec{
						ID:              sim.Identifier(mode, st.lattice, t[0], p),
						Mode:            mode,
						Phase:           sim.Phase(calc.State.at(i)),
						Temperature:     t[0],
						TemperatureStop: t[1],
						THigh:           thigh,
						Pressure:        p,
						Iso:             iso,
						Lattice:         st.lattice,
						LatticeConstant: alat,
						Repeat:          repeat,
						DataFile:        st.dataFile,
						NAtoms:          st.natoms,
						Elements:        append([]string(nil), c.Element...),
						Masses:          append([]float64(nil), c.Mass...),
						Concentration:   st.concentration,
						Pairs:           c.pairs(mode),
						NSims:           nsims,
						MD:              md,
						Tol:             tol,
						Reference:       ref,
						F0:              calc.F0,
						Seed:            c.Seed,
					}
					if err := spec.Validate(); err != nil {
						return nil, fmt.Errorf("calculation %s: %w", spec.ID, err)
					}
					specs = append(specs, spec)
				}
			}
		}
	}
	if err := sim.CheckUniqueIDs(specs); err != nil {
		return nil, err
	}
	return specs, nil
}
