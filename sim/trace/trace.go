package trace

// TraceLevel controls the verbosity of stage tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelStages records stage transitions only.
	TraceLevelStages TraceLevel = "stages"
	// TraceLevelCycles additionally records every equilibration cycle.
	TraceLevelCycles TraceLevel = "cycles"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelStages: true,
	TraceLevelCycles: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// CalculationTrace collects stage and cycle records of one calculation.
// A nil *CalculationTrace is valid and records nothing.
type CalculationTrace struct {
	Level  TraceLevel
	Stages []StageRecord
	Cycles []CycleRecord
}

// NewCalculationTrace creates a CalculationTrace ready for recording.
func NewCalculationTrace(level TraceLevel) *CalculationTrace {
	return &CalculationTrace{
		Level:  level,
		Stages: make([]StageRecord, 0),
		Cycles: make([]CycleRecord, 0),
	}
}

// RecordStage appends a stage record.
func (ct *CalculationTrace) RecordStage(record StageRecord) {
	if ct == nil || ct.Level == TraceLevelNone || ct.Level == "" {
		return
	}
	ct.Stages = append(ct.Stages, record)
}

// RecordCycle appends a cycle record when cycle tracing is enabled.
func (ct *CalculationTrace) RecordCycle(record CycleRecord) {
	if ct == nil || ct.Level != TraceLevelCycles {
		return
	}
	ct.Cycles = append(ct.Cycles, record)
}
