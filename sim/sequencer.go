package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tint-sim/tint/sim/trace"
)

// Working files shared between stages.
const (
	AverageFile  = "avg.dat"
	SnapshotFile = "snapshot.xyz"
	ConfFile     = "conf.data"
	ReportFile   = "report.yaml"
	SweepFile    = "temperature_sweep.dat"
	MetricsFile  = "metrics.prom"
	LogFile      = "tint.log"
)

// Trace file prefixes.
const (
	prefixSwitch    = ""
	prefixReference = "ref"
	prefixScaling   = "ts"
)

// allowedTransitions is the stage graph. Failed is reachable from every
// non-terminal stage and is handled separately.
var allowedTransitions = map[Stage][]Stage{
	StageInitialized:       {StageEquilibrating},
	StageEquilibrating:     {StagePhaseChecking},
	StagePhaseChecking:     {StageSwitchingForward},
	StageSwitchingForward:  {StageSwitchingBackward},
	StageSwitchingBackward: {StageSwitchingForward, StageIntegrating},
	StageIntegrating:       {StageReported},
}

// Sequencer drives one calculation through equilibration, phase check,
// switching and integration. It is not safe for concurrent use; parallelism
// happens across calculations (see RunCampaign).
type Sequencer struct {
	spec       CalculationSpec
	state      *SimulationState
	driver     Driver
	classifier PhaseClassifier
	rng        *PartitionedRNG
	log        *logrus.Entry
	trace      *trace.CalculationTrace
	metrics    *Metrics
	keepFiles  bool
	repeats    int
	stageStart time.Time
	runID      string
}

// Option customises a Sequencer.
type Option func(*Sequencer)

// WithLogger routes stage logging to the given logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Sequencer) { s.log = l.WithField("calc", s.spec.ID) }
}

// WithTrace records stage history into ct.
func WithTrace(ct *trace.CalculationTrace) Option {
	return func(s *Sequencer) { s.trace = ct }
}

// WithMetrics records Prometheus metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Sequencer) { s.metrics = m }
}

// WithClassifier overrides the registered phase classifier.
func WithClassifier(c PhaseClassifier) Option {
	return func(s *Sequencer) { s.classifier = c }
}

// KeepIntermediateFiles disables deletion of consumed working files.
func KeepIntermediateFiles() Option {
	return func(s *Sequencer) { s.keepFiles = true }
}

// WithRunID sets the identifier stamped on the report.
func WithRunID(id string) Option {
	return func(s *Sequencer) { s.runID = id }
}

// NewPhaseClassifierFunc builds the default classifier. It is set by the
// init() of sim/order, which breaks the sim ↔ sim/order import cycle.
var NewPhaseClassifierFunc func() PhaseClassifier

// NewSequencer prepares a calculation in workDir, which must exist.
func NewSequencer(spec CalculationSpec, workDir string, driver Driver, opts ...Option) (*Sequencer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, NewConfigurationError("no simulation driver")
	}
	s := &Sequencer{
		spec:   spec,
		state:  &SimulationState{WorkDir: workDir, NAtoms: spec.NAtoms, Stage: StageInitialized},
		driver: driver,
		rng:    NewPartitionedRNG(NewCalculationKey(spec.Seed, spec.ID)),
		log:    logrus.WithField("calc", spec.ID),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.classifier == nil && NewPhaseClassifierFunc != nil {
		s.classifier = NewPhaseClassifierFunc()
	}
	if s.classifier == nil {
		return nil, NewConfigurationError("no phase classifier registered")
	}
	s.stageStart = time.Now()
	return s, nil
}

// State returns the live simulation state.
func (s *Sequencer) State() *SimulationState { return s.state }

// Spec returns the calculation being run.
func (s *Sequencer) Spec() CalculationSpec { return s.spec }

// Run executes all repeats, integrates the work and writes the report.
func (s *Sequencer) Run(ctx context.Context) (*FreeEnergyReport, error) {
	for i := 1; i <= s.spec.NSims; i++ {
		if err := s.Repeat(ctx, i); err != nil {
			return nil, err
		}
	}
	return s.Integrate()
}

// Repeat runs switching repeat i. Equilibration and the phase check run
// only once per calculation, before the first repeat; later repeats, and
// repeated calls for the same i, start from the stored configuration.
func (s *Sequencer) Repeat(ctx context.Context, i int) error {
	if s.state.Stage.Terminal() {
		return fmt.Errorf("calculation %s already %s", s.spec.ID, s.state.Stage)
	}
	if !s.state.Equilibrated {
		if err := s.Equilibrate(ctx); err != nil {
			return err
		}
		if err := s.CheckPhase(ctx); err != nil {
			return err
		}
	}
	if err := s.switchRepeat(ctx, i); err != nil {
		return s.fail(err)
	}
	s.repeats++
	return nil
}

// transition moves the state machine, recording the finished stage.
func (s *Sequencer) transition(to Stage, repeat int) error {
	from := s.state.Stage
	ok := false
	for _, next := range allowedTransitions[from] {
		if next == to {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid stage transition %s -> %s", from, to)
	}
	s.finishStage(false, "", repeat)
	s.state.Stage = to
	s.log.WithField("stage", to).Debugf("entering stage")
	return nil
}

func (s *Sequencer) finishStage(failed bool, detail string, repeat int) {
	now := time.Now()
	d := now.Sub(s.stageStart)
	s.stageStart = now
	if s.state.Stage == StageInitialized {
		return
	}
	s.trace.RecordStage(trace.StageRecord{
		Calculation: s.spec.ID,
		Stage:       s.state.Stage.String(),
		Repeat:      repeat,
		Failed:      failed,
		Detail:      detail,
		Duration:    d,
	})
	if s.metrics != nil {
		s.metrics.StageDuration.WithLabelValues(s.state.Stage.String()).Observe(d.Seconds())
	}
}

// fail moves to Failed, logging the observed metric against its threshold.
// The working directory is left untouched for inspection.
func (s *Sequencer) fail(err error) error {
	if s.state.Stage == StageFailed {
		return err
	}
	var bf *BackendFailure
	if errors.As(err, &bf) && bf.Stage == StageInitialized {
		bf.Stage = s.state.Stage
	}
	entry := s.log.WithField("stage", s.state.Stage)
	var conv *ConvergenceFailure
	var gate *PhaseGateFailure
	switch {
	case errors.As(err, &conv):
		entry.WithFields(logrus.Fields{"observed": conv.Last, "target": conv.Target, "tolerance": conv.Tolerance}).Error(err)
	case errors.As(err, &gate):
		entry.WithFields(logrus.Fields{"observed": gate.Fraction, "threshold": gate.Threshold}).Error(err)
	default:
		entry.Error(err)
	}
	s.finishStage(true, err.Error(), s.repeats+1)
	if s.metrics != nil {
		s.metrics.Failures.WithLabelValues(FailureKind(err)).Inc()
	}
	s.state.Stage = StageFailed
	return err
}

// backendErr wraps a session error as a BackendFailure of the current stage.
func (s *Sequencer) backendErr(err error) error {
	var bf *BackendFailure
	if errors.As(err, &bf) {
		if bf.Stage == StageInitialized {
			bf.Stage = s.state.Stage
		}
		return bf
	}
	return &BackendFailure{Stage: s.state.Stage, Err: err}
}

// path resolves a working file.
func (s *Sequencer) path(name string) string {
	return filepath.Join(s.state.WorkDir, name)
}

// consume deletes working files after the stage that read them succeeded.
func (s *Sequencer) consume(names ...string) {
	if s.keepFiles {
		return
	}
	for _, name := range names {
		if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
			s.log.Warnf("could not remove %s: %v", name, err)
		}
	}
}
