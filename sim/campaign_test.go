package sim

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tint-sim/tint/sim/trace"
)

func TestCheckUniqueIDs(t *testing.T) {
	a, b := alchemySpec(), alchemySpec()

	err := CheckUniqueIDs([]CalculationSpec{a, b})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "calculations 0 and 1 share identifier")

	b.ID = "alchemy-FCC-1100-0"
	assert.NoError(t, CheckUniqueIDs([]CalculationSpec{a, b}))
}

func TestRunCampaign_IndependentCalculations(t *testing.T) {
	// GIVEN a solid that stays solid and a liquid that freezes
	e := newFakeEngine(t)
	solid := alchemySpec()
	liquid := testSpec(ModeFreeEnergy, PhaseLiquid)
	root := t.TempDir()
	cfg := CampaignConfig{
		Root:       root,
		Parallel:   2,
		Driver:     e,
		TraceLevel: trace.TraceLevelStages,
		Classifier: func() PhaseClassifier { return &fakeClassifier{fraction: 0.95} },
	}

	// WHEN both run in one campaign
	results, err := RunCampaign(context.Background(), []CalculationSpec{solid, liquid}, cfg)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// THEN the failure of one does not affect the other
	ok, failed := results[0], results[1]
	assert.Equal(t, solid.ID, ok.ID)
	require.NoError(t, ok.Err)
	require.NotNil(t, ok.Report)
	assert.Equal(t, ok.RunID, ok.Report.RunID)
	assert.InDelta(t, 0.3, ok.Report.Results.FreeEnergy, 1e-9)

	assert.True(t, errors.Is(failed.Err, ErrFrozenStructure))
	assert.Nil(t, failed.Report)
	assert.Equal(t, "phase-checking", failed.Summary.FailedStage)
	assert.NotEqual(t, ok.RunID, failed.RunID)

	// AND each calculation has its own directory with a log and metrics
	for _, r := range results {
		assert.Equal(t, filepath.Join(root, r.ID), r.WorkDir)
		assert.True(t, exists(t, r.WorkDir, LogFile))
		assert.True(t, exists(t, r.WorkDir, MetricsFile))
	}
	assert.True(t, exists(t, ok.WorkDir, ReportFile))
	assert.False(t, exists(t, failed.WorkDir, ReportFile))
}

func TestRunCampaign_DuplicateIDs(t *testing.T) {
	e := newFakeEngine(t)
	results, err := RunCampaign(context.Background(), []CalculationSpec{alchemySpec(), alchemySpec()}, CampaignConfig{Root: t.TempDir(), Driver: e})

	assert.Nil(t, results)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Zero(t, e.sessions)
}

func TestRunCalculation_InvalidSpec(t *testing.T) {
	spec := alchemySpec()
	spec.Pairs = spec.Pairs[:1]

	res := RunCalculation(context.Background(), spec, CampaignConfig{
		Root:       t.TempDir(),
		Driver:     newFakeEngine(t),
		Classifier: func() PhaseClassifier { return &fakeClassifier{} },
	})

	assert.True(t, errors.Is(res.Err, ErrConfiguration))
	assert.NotEmpty(t, res.RunID)
	assert.True(t, exists(t, res.WorkDir, LogFile))
}
