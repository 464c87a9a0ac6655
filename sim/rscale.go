package sim

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
)

// ScalingTrace is one direction of a reversible-scaling repeat in time
// order. Energy is the unscaled potential energy per atom.
type ScalingTrace struct {
	Repeat int
	Lambda []float64
	Energy []float64
}

// ReadScalingTrace loads rows of "λU lambda" and divides out the scale.
func ReadScalingTrace(path string, repeat int) (ScalingTrace, error) {
	rows, err := ReadColumns(path, 2)
	if err != nil {
		return ScalingTrace{}, err
	}
	tr := ScalingTrace{Repeat: repeat, Lambda: make([]float64, len(rows)), Energy: make([]float64, len(rows))}
	for i, row := range rows {
		if row[1] == 0 {
			return ScalingTrace{}, fmt.Errorf("%s: row %d has lambda 0", path, i+1)
		}
		tr.Lambda[i] = row[1]
		tr.Energy[i] = row[0] / row[1]
	}
	return tr, nil
}

// ScalingPair is the forward (1 → λf) and backward (λf → 1) trace of a repeat.
type ScalingPair struct {
	Forward  ScalingTrace
	Backward ScalingTrace
}

// LoadScalingPairs reads ts.forward_i.dat / ts.backward_i.dat for i = 1..nsims.
func LoadScalingPairs(dir string, nsims int) ([]ScalingPair, error) {
	pairs := make([]ScalingPair, 0, nsims)
	for i := 1; i <= nsims; i++ {
		fw, err := ReadScalingTrace(filepath.Join(dir, TraceFile(prefixScaling, Forward, i)), i)
		if err != nil {
			return nil, err
		}
		bw, err := ReadScalingTrace(filepath.Join(dir, TraceFile(prefixScaling, Backward, i)), i)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, ScalingPair{Forward: fw, Backward: bw})
	}
	return pairs, nil
}

// SweepPoint is the free energy at one temperature of a scaling sweep.
type SweepPoint struct {
	Temperature float64
	FreeEnergy  float64
	Error       float64
}

// TemperatureSweep is F(T) over the scaled temperature range.
type TemperatureSweep struct {
	Points       []SweepPoint
	ErrorDefined bool
}

// cumulativeTrapezoid returns the running integral of f over x, starting at 0.
func cumulativeTrapezoid(f, x []float64) []float64 {
	out := make([]float64, len(f))
	for i := 1; i < len(f); i++ {
		out[i] = out[i-1] + 0.5*(f[i]+f[i-1])*(x[i]-x[i-1])
	}
	return out
}

func reversed(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[len(v)-1-i] = x
	}
	return out
}

// IntegrateScaling turns reversible-scaling traces into F(T). With f0 the
// free energy per atom at t0, each sample λ of the forward trace gives
//
//	F(T0/λ) = F0/λ + 1.5 kB T0 ln(λ)/λ + w(λ)/λ
//
// where w(λ) is half the difference between the forward work from 1 to λ
// and the backward work from λ back to 1.
func IntegrateScaling(pairs []ScalingPair, f0, t0 float64) (TemperatureSweep, error) {
	if len(pairs) == 0 {
		return TemperatureSweep{}, fmt.Errorf("no scaling repeats to integrate")
	}
	npts := len(pairs[0].Forward.Lambda)
	if npts < 2 {
		return TemperatureSweep{}, fmt.Errorf("scaling trace has %d samples", npts)
	}
	perRepeat := make([][]float64, len(pairs))
	for r, p := range pairs {
		if len(p.Forward.Lambda) != len(p.Backward.Lambda) {
			return TemperatureSweep{}, &AsymmetricSwitching{Repeat: p.Forward.Repeat, Forward: len(p.Forward.Lambda), Backward: len(p.Backward.Lambda)}
		}
		if len(p.Forward.Lambda) != npts {
			return TemperatureSweep{}, fmt.Errorf("repeat %d has %d samples, repeat 1 has %d", p.Forward.Repeat, len(p.Forward.Lambda), npts)
		}
		wf := cumulativeTrapezoid(p.Forward.Energy, p.Forward.Lambda)
		wb := cumulativeTrapezoid(reversed(p.Backward.Energy), reversed(p.Backward.Lambda))
		fs := make([]float64, npts)
		for j, lambda := range p.Forward.Lambda {
			w := (wf[j] + wb[j]) / 2
			fs[j] = f0/lambda + 1.5*Boltzmann*t0*math.Log(lambda)/lambda + w/lambda
		}
		perRepeat[r] = fs
	}

	sweep := TemperatureSweep{Points: make([]SweepPoint, npts), ErrorDefined: len(pairs) > 1}
	col := make([]float64, len(pairs))
	for j := 0; j < npts; j++ {
		for r := range perRepeat {
			col[r] = perRepeat[r][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		pt := SweepPoint{Temperature: t0 / pairs[0].Forward.Lambda[j], FreeEnergy: mean, Error: math.NaN()}
		if sweep.ErrorDefined {
			pt.Error = std / math.Sqrt(float64(len(pairs)))
		}
		sweep.Points[j] = pt
	}
	return sweep, nil
}

// WriteSweep writes "temperature free_energy error" rows.
func WriteSweep(path string, sweep TemperatureSweep) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# temperature free_energy error")
	for _, p := range sweep.Points {
		fmt.Fprintf(w, "%.6f %.8f %.8f\n", p.Temperature, p.FreeEnergy, p.Error)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
