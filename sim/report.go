package sim

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FreeEnergyReport is the final result of a calculation, written once as
// report.yaml.
type FreeEnergyReport struct {
	RunID   string        `yaml:"run_id"`
	Input   ReportInput   `yaml:"input"`
	Average ReportAverage `yaml:"average"`
	Results ReportResults `yaml:"results"`
}

// ReportInput echoes the calculation that produced the report.
type ReportInput struct {
	ID              string  `yaml:"id"`
	Mode            Mode    `yaml:"mode"`
	State           Phase   `yaml:"state"`
	Temperature     float64 `yaml:"temperature"`
	TemperatureStop float64 `yaml:"temperature_stop,omitempty"`
	Pressure        float64 `yaml:"pressure"`
	Lattice         string  `yaml:"lattice"`
	Element         string  `yaml:"element"`
	Concentration   string  `yaml:"concentration"`
	NSims           int     `yaml:"nsims"`
}

// ReportAverage holds the equilibrium averages.
type ReportAverage struct {
	VolumePerAtom float64 `yaml:"vol/atom"`
	Density       float64 `yaml:"density"`
	Lx            float64 `yaml:"lx"`
	Ly            float64 `yaml:"ly"`
	Lz            float64 `yaml:"lz"`
	Pressure      float64 `yaml:"pressure"`
	SolidFraction float64 `yaml:"solid_fraction"`
}

// ReportResults holds the free energy and its ingredients, in eV/atom.
// Error is null when it cannot be estimated from a single repeat.
type ReportResults struct {
	FreeEnergy    float64  `yaml:"free_energy"`
	Error         *float64 `yaml:"error"`
	LowConfidence bool     `yaml:"low_confidence"`
	Work          float64  `yaml:"work"`
	Dissipation   float64  `yaml:"dissipation"`
	IdealGas      *float64 `yaml:"ideal_gas,omitempty"`
	UhlenbeckFord *float64 `yaml:"uhlenbeck_ford,omitempty"`
	SweepFile     string   `yaml:"sweep_file,omitempty"`
	FreeEnergyEnd *float64 `yaml:"free_energy_stop,omitempty"`
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%g", x)
	}
	return strings.Join(parts, " ")
}

// newReport fills the input and average sections from spec and state.
func newReport(runID string, spec CalculationSpec, state *SimulationState) *FreeEnergyReport {
	lattice := spec.Lattice
	if spec.DataFile != "" {
		lattice = spec.DataFile
	}
	r := &FreeEnergyReport{
		RunID: runID,
		Input: ReportInput{
			ID:            spec.ID,
			Mode:          spec.Mode,
			State:         spec.Phase,
			Temperature:   spec.Temperature,
			Pressure:      spec.Pressure,
			Lattice:       lattice,
			Element:       strings.Join(spec.Elements, " "),
			Concentration: joinFloats(spec.Concentration),
			NSims:         spec.NSims,
		},
		Average: ReportAverage{
			VolumePerAtom: state.VolumePerAtom,
			Density:       state.Density(),
			Lx:            state.Box.Lx,
			Ly:            state.Box.Ly,
			Lz:            state.Box.Lz,
			Pressure:      state.Pressure,
			SolidFraction: state.SolidFraction,
		},
	}
	if spec.Mode == ModeScaling {
		r.Input.TemperatureStop = spec.TemperatureStop
	}
	return r
}

// WriteReport serialises r to path.
func WriteReport(path string, r *FreeEnergyReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*FreeEnergyReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r FreeEnergyReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &r, nil
}
