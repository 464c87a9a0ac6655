package sim

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every typed error below unwraps to exactly one of these,
// so callers can branch with errors.Is without knowing the concrete type.
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrConvergence         = errors.New("convergence failure")
	ErrMeltedStructure     = errors.New("structure melted")
	ErrFrozenStructure     = errors.New("structure solidified")
	ErrBackend             = errors.New("simulation backend failure")
	ErrOutOfRangeReference = errors.New("reference model out of range")
	ErrAsymmetricSwitching = errors.New("asymmetric switching traces")
	ErrIncompleteSwitching = errors.New("incomplete switching trace")
)

// ConfigurationError lists every problem found while validating an input.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError builds a ConfigurationError from a single message.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// ConvergenceFailure is returned when the pressure never settles inside
// the tolerance within the allotted number of cycles.
type ConvergenceFailure struct {
	Cycles    int
	Last      float64 // mean pressure of the last cycle
	Target    float64
	Tolerance float64
}

func (e *ConvergenceFailure) Error() string {
	return fmt.Sprintf("pressure did not converge after %d cycles: last mean %.4f, target %.4f, tolerance %.4f",
		e.Cycles, e.Last, e.Target, e.Tolerance)
}

func (e *ConvergenceFailure) Unwrap() error { return ErrConvergence }

// PhaseGateFailure is returned when the equilibrated structure is not in the
// requested phase. Melted marks a solid that melted; otherwise a liquid froze.
type PhaseGateFailure struct {
	Melted    bool
	Fraction  float64
	Threshold float64
}

func (e *PhaseGateFailure) Error() string {
	if e.Melted {
		return fmt.Sprintf("solid fraction %.3f below %.3f: system melted, use a lower temperature", e.Fraction, e.Threshold)
	}
	return fmt.Sprintf("solid fraction %.3f above %.3f: system solidified at the run temperature; "+
		"either it never melted (raise thigh) or it recrystallised on cooling (raise the temperature)", e.Fraction, e.Threshold)
}

func (e *PhaseGateFailure) Unwrap() error {
	if e.Melted {
		return ErrMeltedStructure
	}
	return ErrFrozenStructure
}

// BackendFailure carries the engine diagnostic that aborted a stage.
type BackendFailure struct {
	Stage      Stage
	Diagnostic string
	Err        error
}

func (e *BackendFailure) Error() string {
	msg := fmt.Sprintf("backend failure during %s", e.Stage)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendFailure) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrBackend, e.Err}
	}
	return []error{ErrBackend}
}

// OutOfRangeReference is returned when a reference model is evaluated
// outside the domain where its expansion is trusted.
type OutOfRangeReference struct {
	Quantity string
	Value    float64
	Min      float64
	Max      float64
	Reason   string
}

func (e *OutOfRangeReference) Error() string {
	msg := fmt.Sprintf("%s = %g outside reference domain (%g, %g]", e.Quantity, e.Value, e.Min, e.Max)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *OutOfRangeReference) Unwrap() error { return ErrOutOfRangeReference }

// AsymmetricSwitching is returned when the forward and backward traces of
// one repeat have different numbers of samples.
type AsymmetricSwitching struct {
	Repeat   int
	Forward  int
	Backward int
}

func (e *AsymmetricSwitching) Error() string {
	return fmt.Sprintf("repeat %d: forward trace has %d samples, backward has %d", e.Repeat, e.Forward, e.Backward)
}

func (e *AsymmetricSwitching) Unwrap() error { return ErrAsymmetricSwitching }

// IncompleteSwitching is returned when a trace is too short to integrate or
// does not span the whole switching coordinate from 0 to 1.
type IncompleteSwitching struct {
	Repeat    int
	Direction Direction
	Samples   int
	Start     float64
	End       float64
}

func (e *IncompleteSwitching) Error() string {
	if e.Samples < 2 {
		return fmt.Sprintf("repeat %d: %s trace has %d samples, need at least 2", e.Repeat, e.Direction, e.Samples)
	}
	return fmt.Sprintf("repeat %d: %s trace covers [%g, %g], want [0, 1]", e.Repeat, e.Direction, e.Start, e.End)
}

func (e *IncompleteSwitching) Unwrap() error { return ErrIncompleteSwitching }
