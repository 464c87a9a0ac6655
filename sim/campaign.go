package sim

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tint-sim/tint/sim/trace"
)

// CampaignConfig controls how a set of calculations is executed.
type CampaignConfig struct {
	Root       string // parent of the per-calculation working directories
	Parallel   int    // maximum concurrent calculations
	Driver     Driver
	LogLevel   logrus.Level
	TraceLevel trace.TraceLevel
	KeepFiles  bool
	// Classifier, when set, is used instead of the registered default.
	Classifier func() PhaseClassifier
}

// CalculationResult is the outcome of one calculation.
type CalculationResult struct {
	ID      string
	WorkDir string
	RunID   string
	Report  *FreeEnergyReport
	Summary *trace.TraceSummary
	Err     error
}

// CheckUniqueIDs rejects calculations that would share a working directory.
func CheckUniqueIDs(specs []CalculationSpec) error {
	seen := make(map[string]int, len(specs))
	var problems []string
	for i, s := range specs {
		if j, ok := seen[s.ID]; ok {
			problems = append(problems, fmt.Sprintf("calculations %d and %d share identifier %q", j, i, s.ID))
			continue
		}
		seen[s.ID] = i
	}
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// RunCampaign runs independent calculations concurrently, each in its own
// working directory under cfg.Root. A failing calculation does not stop the
// others; its error is reported in its result.
func RunCampaign(ctx context.Context, specs []CalculationSpec, cfg CampaignConfig) ([]CalculationResult, error) {
	if err := CheckUniqueIDs(specs); err != nil {
		return nil, err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Parallel, 1))
	results := make([]CalculationResult, len(specs))
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			results[i] = RunCalculation(ctx, spec, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// NewCalculationLogger returns a logger writing to workDir/tint.log and stderr.
func NewCalculationLogger(workDir string, level logrus.Level) (*logrus.Logger, io.Closer, error) {
	f, err := os.OpenFile(filepath.Join(workDir, LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	l := logrus.New()
	l.SetOutput(io.MultiWriter(os.Stderr, f))
	l.SetLevel(level)
	return l, f, nil
}

// RunCalculation executes one calculation end to end in Root/<ID>.
func RunCalculation(ctx context.Context, spec CalculationSpec, cfg CampaignConfig) CalculationResult {
	res := CalculationResult{ID: spec.ID, WorkDir: filepath.Join(cfg.Root, spec.ID), RunID: uuid.NewString()}
	if err := os.MkdirAll(res.WorkDir, 0o755); err != nil {
		res.Err = fmt.Errorf("creating working directory: %w", err)
		return res
	}
	logger, closer, err := NewCalculationLogger(res.WorkDir, cfg.LogLevel)
	if err != nil {
		res.Err = fmt.Errorf("opening log: %w", err)
		return res
	}
	defer closer.Close()

	metrics := NewMetrics(spec.ID)
	ct := trace.NewCalculationTrace(cfg.TraceLevel)
	opts := []Option{WithLogger(logger), WithTrace(ct), WithMetrics(metrics), WithRunID(res.RunID)}
	if cfg.Classifier != nil {
		opts = append(opts, WithClassifier(cfg.Classifier()))
	}
	if cfg.KeepFiles {
		opts = append(opts, KeepIntermediateFiles())
	}
	seq, err := NewSequencer(spec, res.WorkDir, cfg.Driver, opts...)
	if err != nil {
		logger.Errorf("cannot start calculation: %v", err)
		res.Err = err
		return res
	}
	logger.WithField("run_id", res.RunID).Infof("starting %s calculation at T=%g, P=%g", spec.Mode, spec.Temperature, spec.Pressure)
	res.Report, res.Err = seq.Run(ctx)
	res.Summary = trace.Summarize(ct)
	if err := metrics.WriteTextfile(filepath.Join(res.WorkDir, MetricsFile)); err != nil {
		logger.Warnf("could not write metrics: %v", err)
	}
	return res
}
