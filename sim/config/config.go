// Package config loads tint input files and expands them into calculation
// specs.
//
// An input file has the sections element, mass, seed, calculations, md,
// conv, queue, reference and engine. Unknown keys are rejected. Every
// calculation block is the cross product of its lattices, pressures and
// (except for reversible scaling) temperatures.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is a parsed input file with defaults applied.
type Config struct {
	Element           List[string]  `yaml:"element"`
	Mass              List[float64] `yaml:"mass"`
	Seed              int64         `yaml:"seed"`
	CalculationBlocks []Calculation `yaml:"calculations"`
	MD                MD            `yaml:"md"`
	Conv              Conv          `yaml:"conv"`
	Queue             Queue         `yaml:"queue"`
	Reference         Reference     `yaml:"reference"`
	Engine            Engine        `yaml:"engine"`

	// baseDir resolves relative data-file paths.
	baseDir string
}

// Calculation is one calculations[] block.
type Calculation struct {
	Mode            string        `yaml:"mode"`
	State           List[string]  `yaml:"state"`
	Lattice         List[string]  `yaml:"lattice"`
	LatticeConstant List[float64] `yaml:"lattice_constant"`
	Temperature     List[float64] `yaml:"temperature"`
	Pressure        List[float64] `yaml:"pressure"`
	Repeat          []int         `yaml:"repeat"`
	NSims           int           `yaml:"nsims"`
	THigh           float64       `yaml:"thigh"`
	Iso             List[bool]    `yaml:"iso"`
	F0              *float64      `yaml:"f0"`
}

// MD holds the molecular-dynamics parameters shared by all calculations.
type MD struct {
	PairStyle List[string] `yaml:"pair_style"`
	PairCoeff List[string] `yaml:"pair_coeff"`
	Timestep  float64      `yaml:"timestep"`
	NSmall    int          `yaml:"nsmall"`
	NEvery    int          `yaml:"nevery"`
	NRepeat   int          `yaml:"nrepeat"`
	NCycles   int          `yaml:"ncycles"`
	TDamp     float64      `yaml:"tdamp"`
	PDamp     float64      `yaml:"pdamp"`
	TE        int          `yaml:"te"`
	TS        int          `yaml:"ts"`
}

// Conv holds the convergence and phase-gate tolerances.
type Conv struct {
	PTol        float64 `yaml:"p_tol"`
	SolidFrac   float64 `yaml:"solid_frac"`
	LiquidFrac  float64 `yaml:"liquid_frac"`
	FixedCycles int     `yaml:"fixed_cycles"`
	BoxWindow   int     `yaml:"box_window"`
}

// Queue configures batch submission.
type Queue struct {
	Scheduler string   `yaml:"scheduler"`
	Cores     int      `yaml:"cores"`
	JobName   string   `yaml:"jobname"`
	Walltime  string   `yaml:"walltime"`
	QueueName string   `yaml:"queuename"`
	Memory    string   `yaml:"memory"`
	Commands  []string `yaml:"commands"`
	Modules   []string `yaml:"modules"`
	Options   []string `yaml:"options"`
}

// Reference parameterises the Uhlenbeck-Ford reference fluid.
type Reference struct {
	P            float64   `yaml:"p"`
	Sigma        float64   `yaml:"sigma"`
	Cutoff       float64   `yaml:"cutoff"`
	Coefficients []float64 `yaml:"coefficients"`
	Exponents    []float64 `yaml:"exponents"`
	SeriesTol    float64   `yaml:"series_tol"`
	MaxX         float64   `yaml:"max_x"`
}

// Engine selects the LAMMPS executable. Queue.Cores sets the MPI ranks.
type Engine struct {
	Command string `yaml:"command"`
	MPIExec string `yaml:"mpiexec"`
}

// Default returns a Config holding every default value.
func Default() Config {
	return Config{
		Seed: 1,
		MD: MD{
			Timestep: 0.001,
			NSmall:   10000,
			NEvery:   10,
			NRepeat:  10,
			NCycles:  100,
			TDamp:    0.1,
			PDamp:    0.1,
			TE:       25000,
			TS:       50000,
		},
		Conv: Conv{
			PTol:        0.5,
			SolidFrac:   0.7,
			LiquidFrac:  0.5,
			FixedCycles: 2,
			BoxWindow:   1,
		},
		Queue: Queue{
			Scheduler: "local",
			Cores:     1,
			JobName:   "ti",
			Walltime:  "23:50:00",
			Memory:    "3GB",
		},
		Reference: Reference{P: 50, Sigma: 1.5, Cutoff: 7.5, SeriesTol: 0.01, MaxX: 1.0},
		Engine:    Engine{Command: "lmp", MPIExec: "mpirun"},
	}
}

// Load reads and strictly parses the input file at path. Unrecognised keys
// are rejected so typos fail loudly.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, filepath.Dir(abs))
}

// Parse decodes data on top of the defaults. Relative data-file lattices
// resolve against baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing input file: %w", err)
	}
	cfg.baseDir = baseDir
	return &cfg, nil
}
