// Package trace records the stage history of free-energy calculations for
// post-run inspection. It has no dependencies on sim/ and stores pure data.
package trace

import "time"

// StageRecord captures one completed or failed workflow stage.
type StageRecord struct {
	Calculation string
	Stage       string
	Repeat      int // switching repeat, 0 outside the switching stages
	Failed      bool
	Detail      string
	Duration    time.Duration
}

// CycleRecord captures one pressure-equilibration cycle.
type CycleRecord struct {
	Calculation  string
	Cycle        int
	MeanPressure float64
	StdPressure  float64
	Samples      int
	Converged    bool
}
