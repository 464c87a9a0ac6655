package sim

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Direction of a switching run.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// TraceFile returns the file name the engine writes a switching trace to.
func TraceFile(prefix string, d Direction, repeat int) string {
	if prefix != "" {
		prefix += "."
	}
	return fmt.Sprintf("%s%s_%d.dat", prefix, d, repeat)
}

// SwitchingTrace is one direction of one repeat, expressed in the frame of
// travel: Coordinate runs from 0 to 1 in the direction of the switch and
// Force is the derivative of the energy along that coordinate.
type SwitchingTrace struct {
	Direction  Direction
	Repeat     int
	Coordinate []float64
	Force      []float64
}

// Len is the number of samples.
func (t SwitchingTrace) Len() int { return len(t.Coordinate) }

// coverageTol is how far the ends of a trace may sit from 0 and 1, enough
// for the engine's printed precision.
const coverageTol = 1e-6

// check reports a trace that cannot stand for a complete switch.
func (t SwitchingTrace) check() error {
	n := t.Len()
	if n < 2 {
		return &IncompleteSwitching{Repeat: t.Repeat, Direction: t.Direction, Samples: n}
	}
	lo, hi := t.Coordinate[0], t.Coordinate[0]
	for _, c := range t.Coordinate[1:] {
		lo, hi = math.Min(lo, c), math.Max(hi, c)
	}
	if math.Abs(lo) > coverageTol || math.Abs(hi-1) > coverageTol {
		return &IncompleteSwitching{Repeat: t.Repeat, Direction: t.Direction, Samples: n, Start: lo, End: hi}
	}
	return nil
}

// Work integrates Force over Coordinate with the trapezoidal rule. Samples
// are sorted by coordinate first so the actual spacing is used.
func (t SwitchingTrace) Work() float64 {
	n := len(t.Coordinate)
	if n < 2 {
		return 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return t.Coordinate[idx[a]] < t.Coordinate[idx[b]] })
	x := make([]float64, n)
	f := make([]float64, n)
	for i, j := range idx {
		x[i] = t.Coordinate[j]
		f[i] = t.Force[j]
	}
	return integrate.Trapezoidal(x, f)
}

// ReadSwitchingTrace loads a trace written as rows of "dU lambda", where
// lambda is the weight of the final potential and dU = U_final - U_initial
// per atom. Backward traces are mapped onto s = 1 - lambda with the force
// negated, so both directions integrate over s from 0 to 1.
func ReadSwitchingTrace(path string, d Direction, repeat int) (SwitchingTrace, error) {
	rows, err := ReadColumns(path, 2)
	if err != nil {
		return SwitchingTrace{}, err
	}
	tr := SwitchingTrace{
		Direction:  d,
		Repeat:     repeat,
		Coordinate: make([]float64, len(rows)),
		Force:      make([]float64, len(rows)),
	}
	for i, row := range rows {
		du, lambda := row[0], row[1]
		if d == Forward {
			tr.Coordinate[i], tr.Force[i] = lambda, du
		} else {
			tr.Coordinate[i], tr.Force[i] = 1-lambda, -du
		}
	}
	return tr, nil
}

// TracePair is the forward and backward trace of one repeat.
type TracePair struct {
	Forward  SwitchingTrace
	Backward SwitchingTrace
}

// WorkEstimate is the aggregate reversible work over all repeats.
type WorkEstimate struct {
	Work float64
	// Error is std/sqrt(n) over the per-repeat estimates. It is meaningless
	// for a single repeat, in which case ErrorDefined is false.
	Error        float64
	ErrorDefined bool
	Repeats      []float64
	Dissipation  []float64 // (W_f + W_b)/2 per repeat
}

// ErrorPtr returns the error or nil when undefined, for serialisation.
func (w WorkEstimate) ErrorPtr() *float64 {
	if !w.ErrorDefined {
		return nil
	}
	e := w.Error
	return &e
}

// EstimateWork computes w_i = (W_f - W_b)/2 per repeat and aggregates them.
// Pure dissipation (W_f == W_b) contributes zero.
func EstimateWork(pairs []TracePair) (WorkEstimate, error) {
	if len(pairs) == 0 {
		return WorkEstimate{}, fmt.Errorf("no switching repeats to integrate")
	}
	est := WorkEstimate{
		Repeats:     make([]float64, len(pairs)),
		Dissipation: make([]float64, len(pairs)),
	}
	for i, p := range pairs {
		if p.Forward.Len() != p.Backward.Len() {
			return WorkEstimate{}, &AsymmetricSwitching{Repeat: p.Forward.Repeat, Forward: p.Forward.Len(), Backward: p.Backward.Len()}
		}
		if err := p.Forward.check(); err != nil {
			return WorkEstimate{}, err
		}
		if err := p.Backward.check(); err != nil {
			return WorkEstimate{}, err
		}
		wf, wb := p.Forward.Work(), p.Backward.Work()
		if math.IsNaN(wf) || math.IsNaN(wb) || math.IsInf(wf, 0) || math.IsInf(wb, 0) {
			return WorkEstimate{}, &BackendFailure{Diagnostic: fmt.Sprintf("repeat %d: non-finite switching work (forward %g, backward %g)", p.Forward.Repeat, wf, wb)}
		}
		est.Repeats[i] = (wf - wb) / 2
		est.Dissipation[i] = (wf + wb) / 2
	}
	mean, std := stat.PopMeanStdDev(est.Repeats, nil)
	est.Work = mean
	if n := len(pairs); n > 1 {
		est.Error = std / math.Sqrt(float64(n))
		est.ErrorDefined = true
	}
	return est, nil
}

// LoadTracePairs reads prefix.forward_i.dat / prefix.backward_i.dat for
// i = 1..nsims from dir.
func LoadTracePairs(dir, prefix string, nsims int) ([]TracePair, error) {
	pairs := make([]TracePair, 0, nsims)
	for i := 1; i <= nsims; i++ {
		fw, err := ReadSwitchingTrace(filepath.Join(dir, TraceFile(prefix, Forward, i)), Forward, i)
		if err != nil {
			return nil, err
		}
		bw, err := ReadSwitchingTrace(filepath.Join(dir, TraceFile(prefix, Backward, i)), Backward, i)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, TracePair{Forward: fw, Backward: bw})
	}
	return pairs, nil
}
