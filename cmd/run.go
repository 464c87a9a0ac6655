package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tint-sim/tint/sim"
	"github.com/tint-sim/tint/sim/store"
)

var (
	parallel int    // Concurrent calculations
	dbPath   string // Results index; relative paths resolve under --root
)

// indexPath resolves the results database location.
func indexPath() string {
	if filepath.IsAbs(dbPath) {
		return dbPath
	}
	return filepath.Join(rootDir, dbPath)
}

// recordResults stores reports and failures and returns the number failed.
func recordResults(db *store.DB, results []sim.CalculationResult) (int, error) {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logrus.WithField("calc", r.ID).Errorf("failed (%s): %v", sim.FailureKind(r.Err), r.Err)
			if err := db.SaveFailure(store.Failure{RunID: r.RunID, CalcID: r.ID, Kind: sim.FailureKind(r.Err), Message: r.Err.Error()}); err != nil {
				return failed, fmt.Errorf("recording failure of %s: %w", r.ID, err)
			}
			continue
		}
		logrus.WithField("calc", r.ID).Infof("free energy %.6f eV/atom", r.Report.Results.FreeEnergy)
		if err := db.SaveReport(r.WorkDir, r.Report); err != nil {
			return failed, fmt.Errorf("indexing %s: %w", r.ID, err)
		}
	}
	return failed, nil
}

// runCmd executes every calculation of the input file on this machine
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all calculations of the input file locally",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, specs, err := loadCalculations(inputFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cc, err := campaignConfig(cfg, parallel)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		ctx, stop := signalContext()
		defer stop()

		logrus.Infof("running %d calculations, %d at a time", len(specs), max(parallel, 1))
		results, err := sim.RunCampaign(ctx, specs, cc)
		if err != nil && results == nil {
			logrus.Fatalf("%v", err)
		}
		db, dbErr := store.Open(indexPath())
		if dbErr != nil {
			logrus.Fatalf("%v", dbErr)
		}
		defer db.Close()
		failed, dbErr := recordResults(db, results)
		if dbErr != nil {
			logrus.Fatalf("%v", dbErr)
		}
		if err != nil {
			logrus.Fatalf("campaign interrupted: %v", err)
		}
		if failed > 0 {
			logrus.Fatalf("%d of %d calculations failed", failed, len(results))
		}
		logrus.Info("All calculations complete.")
	},
}

func init() {
	runCmd.Flags().IntVar(&parallel, "parallel", 1, "Maximum number of concurrent calculations")
	for _, c := range []*cobra.Command{runCmd, collectCmd} {
		c.Flags().StringVar(&dbPath, "db", "tint.db", "Results index (relative to --root)")
	}
}
