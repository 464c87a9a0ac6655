package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tint-sim/tint/sim"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func report(runID, id string, mode sim.Mode, state sim.Phase, fe float64, errVal *float64) *sim.FreeEnergyReport {
	return &sim.FreeEnergyReport{
		RunID: runID,
		Input: sim.ReportInput{ID: id, Mode: mode, State: state, Temperature: 1000, Lattice: "FCC", Element: "Cu", Concentration: "1", NSims: 3},
		Average: sim.ReportAverage{VolumePerAtom: 12.5, Density: 0.08},
		Results: sim.ReportResults{FreeEnergy: fe, Error: errVal, LowConfidence: errVal == nil, Work: 0.1},
	}
}

func TestSaveReport_RoundTrip(t *testing.T) {
	// GIVEN one report with an error and one without
	db := openDB(t)
	e := 0.002
	require.NoError(t, db.SaveReport("/w/a", report("r1", "fe-FCC-1000-0", sim.ModeFreeEnergy, sim.PhaseLiquid, -3.1, &e)))
	require.NoError(t, db.SaveReport("/w/b", report("r2", "alchemy-FCC-1000-0", sim.ModeAlchemy, sim.PhaseSolid, 0.05, nil)))

	// WHEN all results are read back
	got, err := db.Results(Filter{})
	require.NoError(t, err)

	// THEN both rows are present and a missing error stays NULL
	require.Len(t, got, 2)
	assert.Equal(t, "alchemy-FCC-1000-0", got[0].CalcID)
	assert.Nil(t, got[0].Error)
	assert.True(t, got[0].LowConfidence)
	require.NotNil(t, got[1].Error)
	assert.Equal(t, 0.002, *got[1].Error)
	assert.Equal(t, "/w/a", got[1].WorkDir)
	assert.Equal(t, 12.5, got[1].VolumePerAtom)
}

func TestSaveReport_ReplacesSameRun(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveReport("/w", report("r1", "x", sim.ModeAlchemy, sim.PhaseSolid, 1, nil)))
	require.NoError(t, db.SaveReport("/w", report("r1", "x", sim.ModeAlchemy, sim.PhaseSolid, 2, nil)))

	got, err := db.Results(Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].FreeEnergy)
}

func TestSaveReport_NeedsRunID(t *testing.T) {
	db := openDB(t)
	assert.Error(t, db.SaveReport("/w", report("", "x", sim.ModeAlchemy, sim.PhaseSolid, 1, nil)))
}

func TestResults_Filter(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveReport("/a", report("r1", "a", sim.ModeFreeEnergy, sim.PhaseLiquid, 1, nil)))
	require.NoError(t, db.SaveReport("/b", report("r2", "b", sim.ModeAlchemy, sim.PhaseSolid, 2, nil)))
	require.NoError(t, db.SaveReport("/c", report("r3", "c", sim.ModeAlchemy, sim.PhaseLiquid, 3, nil)))

	got, err := db.Results(Filter{Mode: "alchemy"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = db.Results(Filter{Mode: "alchemy", State: "liquid"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].CalcID)
}

func TestCollect_WalksCampaignRoot(t *testing.T) {
	// GIVEN a campaign root with two reports and one unreadable file
	root := t.TempDir()
	for _, id := range []string{"fe-FCC-1000-0", "fe-FCC-1100-0"} {
		dir := filepath.Join(root, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, sim.WriteReport(filepath.Join(dir, sim.ReportFile), report("run-"+id, id, sim.ModeFreeEnergy, sim.PhaseLiquid, -3, nil)))
	}
	bad := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, sim.ReportFile), []byte("results: [unclosed"), 0o644))

	// WHEN the root is collected
	db := openDB(t)
	n, err := db.Collect(root)

	// THEN the readable reports are indexed with their directories
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := db.Results(Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, filepath.Join(root, "fe-FCC-1000-0"), got[0].WorkDir)
}

func TestSaveFailure(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveFailure(Failure{RunID: "r9", CalcID: "fe-FCC-300-0", Kind: "melted", Message: "solid fraction 0.3 below 0.7"}))
	got, err := db.Failures()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "melted", got[0].Kind)
	assert.NotEmpty(t, got[0].FailedAt)
}
