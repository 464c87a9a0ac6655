package trace

import "time"

// TraceSummary aggregates statistics from a CalculationTrace.
type TraceSummary struct {
	TotalStages   int
	FailedStages  int
	FailedStage   string // first failed stage, empty when none failed
	FailureDetail string
	Cycles        int
	Converged     bool
	FinalPressure float64
	TotalDuration time.Duration
	StageCounts   map[string]int // stage name → number of records
}

// Summarize computes aggregate statistics from a CalculationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(ct *CalculationTrace) *TraceSummary {
	summary := &TraceSummary{
		StageCounts: make(map[string]int),
	}
	if ct == nil {
		return summary
	}

	summary.TotalStages = len(ct.Stages)
	for _, s := range ct.Stages {
		summary.StageCounts[s.Stage]++
		summary.TotalDuration += s.Duration
		if s.Failed {
			summary.FailedStages++
			if summary.FailedStage == "" {
				summary.FailedStage = s.Stage
				summary.FailureDetail = s.Detail
			}
		}
	}

	summary.Cycles = len(ct.Cycles)
	if n := len(ct.Cycles); n > 0 {
		last := ct.Cycles[n-1]
		summary.Converged = last.Converged
		summary.FinalPressure = last.MeanPressure
	}

	return summary
}
