package trace

import (
	"testing"
	"time"
)

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	ct := NewCalculationTrace(TraceLevelCycles)

	// WHEN summarized
	summary := Summarize(ct)

	// THEN all counts are zero
	if summary.TotalStages != 0 || summary.FailedStages != 0 || summary.Cycles != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.FailedStage != "" {
		t.Errorf("expected no failed stage, got %q", summary.FailedStage)
	}
	if len(summary.StageCounts) != 0 {
		t.Error("expected empty stage counts")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary == nil || summary.StageCounts == nil {
		t.Fatal("expected non-nil summary with initialised map")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a calculation that switched twice and then failed integrating
	ct := NewCalculationTrace(TraceLevelCycles)
	ct.RecordStage(StageRecord{Stage: "equilibrating", Duration: time.Second})
	ct.RecordStage(StageRecord{Stage: "switching-forward", Repeat: 1, Duration: time.Second})
	ct.RecordStage(StageRecord{Stage: "switching-forward", Repeat: 2, Duration: time.Second})
	ct.RecordStage(StageRecord{Stage: "integrating", Failed: true, Detail: "asymmetric"})
	ct.RecordCycle(CycleRecord{Cycle: 1, MeanPressure: 120})
	ct.RecordCycle(CycleRecord{Cycle: 2, MeanPressure: 4, Converged: true})

	// WHEN summarized
	summary := Summarize(ct)

	// THEN counts and the first failure match
	if summary.TotalStages != 4 {
		t.Errorf("expected 4 stages, got %d", summary.TotalStages)
	}
	if summary.StageCounts["switching-forward"] != 2 {
		t.Errorf("expected 2 forward switches, got %d", summary.StageCounts["switching-forward"])
	}
	if summary.FailedStages != 1 || summary.FailedStage != "integrating" || summary.FailureDetail != "asymmetric" {
		t.Errorf("unexpected failure summary: %+v", summary)
	}
	if summary.TotalDuration != 3*time.Second {
		t.Errorf("expected 3s total, got %v", summary.TotalDuration)
	}

	// THEN the last cycle decides convergence
	if !summary.Converged || summary.FinalPressure != 4 || summary.Cycles != 2 {
		t.Errorf("unexpected cycle summary: converged=%v pressure=%v cycles=%d", summary.Converged, summary.FinalPressure, summary.Cycles)
	}
}
