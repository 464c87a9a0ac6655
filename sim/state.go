package sim

// Stage is a state of the calculation lifecycle.
type Stage int

const (
	StageInitialized Stage = iota
	StageEquilibrating
	StagePhaseChecking
	StageSwitchingForward
	StageSwitchingBackward
	StageIntegrating
	StageReported
	StageFailed
)

var stageNames = [...]string{
	StageInitialized:       "initialized",
	StageEquilibrating:     "equilibrating",
	StagePhaseChecking:     "phase-checking",
	StageSwitchingForward:  "switching-forward",
	StageSwitchingBackward: "switching-backward",
	StageIntegrating:       "integrating",
	StageReported:          "reported",
	StageFailed:            "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool { return s == StageReported || s == StageFailed }

// Box is an orthogonal simulation cell.
type Box struct {
	Lx, Ly, Lz float64
}

// Volume returns Lx*Ly*Lz.
func (b Box) Volume() float64 { return b.Lx * b.Ly * b.Lz }

// SimulationState is the mutable side of a calculation. Exactly one exists
// per CalculationSpec and only its Sequencer writes to it.
type SimulationState struct {
	WorkDir       string
	NAtoms        int
	Box           Box
	VolumePerAtom float64
	Pressure      float64 // mean pressure of the accepted cycle
	SolidFraction float64
	Equilibrated  bool
	Stage         Stage
}

// Density is the number density in atoms per cubic length unit.
func (s *SimulationState) Density() float64 {
	if s.VolumePerAtom <= 0 {
		return 0
	}
	return 1 / s.VolumePerAtom
}
