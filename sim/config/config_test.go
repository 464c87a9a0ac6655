package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tint-sim/tint/sim"
	"github.com/tint-sim/tint/sim/internal/testutil"
)

const baseInput = `
element: Cu
mass: 63.546
md:
  pair_style: eam/alloy
  pair_coeff: "* * Cu.eam.alloy Cu"
`

func parse(t *testing.T, extra string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(baseInput+extra), t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg := parse(t, "calculations: []\n")
	assert.Equal(t, List[string]{"Cu"}, cfg.Element)
	assert.Equal(t, 0.001, cfg.MD.Timestep)
	assert.Equal(t, 25000, cfg.MD.TE)
	assert.Equal(t, 0.7, cfg.Conv.SolidFrac)
	assert.Equal(t, 0.5, cfg.Conv.LiquidFrac)
	assert.Equal(t, "local", cfg.Queue.Scheduler)
	assert.Equal(t, 50.0, cfg.Reference.P)
	assert.Equal(t, 0.01, cfg.Reference.SeriesTol)
	assert.Equal(t, "lmp", cfg.Engine.Command)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(baseInput+"md_typo: 1\n"), t.TempDir())
	assert.Error(t, err)

	_, err = Parse([]byte(baseInput+"conv:\n  p_toll: 1\n"), t.TempDir())
	assert.Error(t, err)
}

func TestParse_ScalarOrList(t *testing.T) {
	cfg := parse(t, `
calculations:
  - mode: alchemy
    state: solid
    lattice: [FCC, BCC]
    lattice_constant: [3.61, 2.87]
    temperature: 500
    pressure: [0, 10000]
`)
	calc := cfg.CalculationBlocks[0]
	assert.Equal(t, List[string]{"solid"}, calc.State)
	assert.Equal(t, List[string]{"FCC", "BCC"}, calc.Lattice)
	assert.Equal(t, List[float64]{500}, calc.Temperature)
	assert.Equal(t, List[float64]{0, 10000}, calc.Pressure)
}

func TestCalculations_CrossProduct(t *testing.T) {
	// GIVEN one liquid fe block over two pressures and three temperatures
	cfg := parse(t, `
calculations:
  - mode: fe
    state: liquid
    lattice: FCC
    lattice_constant: 3.61
    temperature: [1400, 1500, 1600]
    pressure: [0, 1000]
    repeat: [5, 5, 5]
    nsims: 3
`)

	// WHEN it is expanded
	specs, err := cfg.Calculations()
	require.NoError(t, err)

	// THEN every combination is a calculation with defaults resolved
	require.Len(t, specs, 6)
	first := specs[0]
	assert.Equal(t, "fe-FCC-1400-0", first.ID)
	assert.Equal(t, 500, first.NAtoms)
	assert.Equal(t, 3, first.NSims)
	assert.Equal(t, 2800.0, first.THigh)
	assert.Equal(t, []float64{1}, first.Concentration)
	assert.Len(t, first.Pairs, 1)
	assert.True(t, first.Iso)
	assert.Equal(t, "fe-FCC-1600-1000", specs[5].ID)
}

func TestCalculations_ScalingUsesTemperatureRange(t *testing.T) {
	cfg := parse(t, `
calculations:
  - mode: ts
    state: solid
    lattice: FCC
    lattice_constant: 3.61
    temperature: [600, 1200]
    pressure: 0
    f0: -3.52
`)
	specs, err := cfg.Calculations()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, 600.0, specs[0].Temperature)
	assert.Equal(t, 1200.0, specs[0].TemperatureStop)
	assert.Equal(t, 2400.0, specs[0].THigh)
	assert.Equal(t, 1, specs[0].NSims)
	require.NotNil(t, specs[0].F0)
	assert.Equal(t, -3.52, *specs[0].F0)
}

func TestCalculations_DataFileLattice(t *testing.T) {
	// GIVEN a data file next to the input file
	dir := t.TempDir()
	pos, l := testutil.FCCLattice(3.61, 2)
	testutil.WriteDataFile(t, dir, "cu.data", pos, l)
	input := filepath.Join(dir, "input.yaml")
	require.NoError(t, os.WriteFile(input, []byte(baseInput+`
calculations:
  - mode: alchemy
    state: solid
    lattice: cu.data
    temperature: 300
    pressure: 0
`), 0o644))
	cfg, err := Load(input)
	require.NoError(t, err)
	cfg.MD.PairStyle = List[string]{"eam/alloy", "eam/fs"}
	cfg.MD.PairCoeff = List[string]{"* * a Cu", "* * b Cu"}

	// WHEN it is expanded
	specs, err := cfg.Calculations()

	// THEN atoms and concentration come from the file
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, filepath.Join(dir, "cu.data"), specs[0].DataFile)
	assert.Equal(t, 32, specs[0].NAtoms)
	assert.Equal(t, []float64{1}, specs[0].Concentration)
	assert.Equal(t, "alchemy-cu-300-0", specs[0].ID)
	assert.Len(t, specs[0].Pairs, 2)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg, err := Parse([]byte(`
element: Cu
mass: [63.5, 58.7]
md:
  pair_style: eam/alloy
  pair_coeff: "* * Cu.eam.alloy Cu"
calculations:
  - mode: fe
    state: gas
    lattice: FCC
    temperature: 1000
    pressure: 0
    repeat: [4, 4, 5]
`), t.TempDir())
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrConfiguration))

	var ce *sim.ConfigurationError
	require.True(t, errors.As(err, &ce))
	joined := ce.Error()
	for _, want := range []string{"same length", "unknown state", "uniform", "lattice_constant"} {
		assert.Contains(t, joined, want)
	}
}

func TestValidate_ModeRules(t *testing.T) {
	tests := []struct {
		name  string
		calc  string
		wants string
	}{
		{"alchemy needs two styles", "mode: alchemy\n    state: solid", "two pair styles"},
		{"ts needs two temperatures", "mode: ts\n    state: liquid", "exactly two temperatures"},
		{"unknown mode", "mode: einstein\n    state: solid", "unknown mode"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := parse(t, `
calculations:
  - `+tc.calc+`
    lattice: FCC
    lattice_constant: 3.61
    temperature: 1000
    pressure: 0
`)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wants)
		})
	}
}

func TestCalculations_SolidFreeEnergyIsRejected(t *testing.T) {
	cfg := parse(t, `
calculations:
  - mode: fe
    state: solid
    lattice: FCC
    lattice_constant: 3.61
    temperature: 1000
    pressure: 0
`)
	_, err := cfg.Calculations()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrConfiguration))
}

func TestCalculations_DuplicateIdentifiers(t *testing.T) {
	cfg := parse(t, `
calculations:
  - mode: fe
    state: liquid
    lattice: [FCC, fcc]
    lattice_constant: 3.61
    temperature: 1000
    pressure: 0
`)
	_, err := cfg.Calculations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share identifier")
}

func TestCalculations_FittedReference(t *testing.T) {
	// GIVEN a fitted UF free energy in the reference block
	cfg := parse(t, `
reference:
  coefficients: [6.2, 1.8]
  exponents: [1, 2.5]
calculations:
  - mode: fe
    state: liquid
    lattice: FCC
    lattice_constant: 3.61
    temperature: 1400
    pressure: 0
`)

	specs, err := cfg.Calculations()

	// THEN it reaches every calculation alongside the defaults
	require.NoError(t, err)
	require.Len(t, specs, 1)
	ref := specs[0].Reference
	assert.Equal(t, []float64{6.2, 1.8}, ref.Coefficients)
	assert.Equal(t, []float64{1, 2.5}, ref.Exponents)
	assert.Equal(t, 50.0, ref.P)
	assert.Equal(t, 0.01, ref.SeriesTol)
	assert.True(t, sim.NewUFModel(ref).Fitted())
}

func TestValidate_ReferenceFit(t *testing.T) {
	tests := []struct {
		name  string
		ref   string
		wants string
	}{
		{"exponents without coefficients", "  exponents: [1, 2]\n", "one coefficient each"},
		{"non-positive exponent", "  coefficients: [1, 2]\n  exponents: [1, 0]\n", "exponents[1] must be positive"},
		{"negative series tolerance", "  series_tol: -1\n", "series_tol must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := parse(t, "reference:\n"+tc.ref+`calculations:
  - mode: fe
    state: liquid
    lattice: FCC
    lattice_constant: 3.61
    temperature: 1000
    pressure: 0
`)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wants)
		})
	}
}
