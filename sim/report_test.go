package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ReportFile)
	fig, fuf, e := -1.2, 0.4, 0.002
	r := &FreeEnergyReport{
		RunID:   "run-1",
		Input:   ReportInput{ID: "fe-FCC-1000-0", Mode: ModeFreeEnergy, State: PhaseLiquid, Temperature: 1000, Element: "Cu", Concentration: "1", NSims: 3},
		Average: ReportAverage{VolumePerAtom: 12.5, Density: 0.08, Lx: 10, Ly: 10, Lz: 10},
		Results: ReportResults{FreeEnergy: -3.9, Error: &e, Work: 3.1, IdealGas: &fig, UhlenbeckFord: &fuf},
	}

	require.NoError(t, WriteReport(path, r))
	got, err := ReadReport(path)
	require.NoError(t, err)

	assert.Equal(t, r, got)
}

func TestWriteReport_UndefinedErrorIsNull(t *testing.T) {
	// GIVEN a single-repeat result
	dir := t.TempDir()
	path := filepath.Join(dir, ReportFile)
	r := &FreeEnergyReport{Results: ReportResults{FreeEnergy: 0.3, LowConfidence: true}}

	require.NoError(t, WriteReport(path, r))

	// THEN the error is written as an explicit null and omitted fields are absent
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "error: null")
	assert.Contains(t, string(data), "low_confidence: true")
	assert.Contains(t, string(data), "vol/atom:")
	assert.NotContains(t, string(data), "ideal_gas")
	assert.NotContains(t, string(data), "temperature_stop")
}

func TestNewReport_ScalingEchoesStopTemperature(t *testing.T) {
	spec := testSpec(ModeScaling, PhaseLiquid)
	spec.TemperatureStop = 1500
	state := &SimulationState{VolumePerAtom: 12.5, Box: Box{Lx: 1, Ly: 2, Lz: 3}, SolidFraction: 0.1}

	r := newReport("run", spec, state)

	assert.Equal(t, 1500.0, r.Input.TemperatureStop)
	assert.Equal(t, "FCC", r.Input.Lattice)
	assert.Equal(t, "Cu", r.Input.Element)
	assert.Equal(t, "1", r.Input.Concentration)
	assert.InDelta(t, 0.08, r.Average.Density, 1e-12)
}

func TestNewReport_DataFileLattice(t *testing.T) {
	spec := testSpec(ModeAlchemy, PhaseSolid)
	spec.DataFile = "/inputs/cuni.data"
	spec.Elements = []string{"Cu", "Ni"}
	spec.Concentration = []float64{0.25, 0.75}

	r := newReport("run", spec, &SimulationState{})

	assert.Equal(t, "/inputs/cuni.data", r.Input.Lattice)
	assert.Equal(t, "Cu Ni", r.Input.Element)
	assert.Equal(t, "0.25 0.75", r.Input.Concentration)
	assert.Zero(t, r.Input.TemperatureStop)
	assert.Zero(t, r.Average.Density)
}

func TestReadReport_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadReport(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("results: [unclosed"), 0o644))
	_, err = ReadReport(bad)
	assert.Error(t, err)
}
