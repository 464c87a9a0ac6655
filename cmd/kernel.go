package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tint-sim/tint/sim"
)

var kernelIndex int // Index of the calculation to run

// selectCalculation returns calculation k of specs.
func selectCalculation(specs []sim.CalculationSpec, k int) (sim.CalculationSpec, error) {
	if k < 0 || k >= len(specs) {
		return sim.CalculationSpec{}, fmt.Errorf("calculation index %d out of range: input has %d calculations", k, len(specs))
	}
	return specs[k], nil
}

// kernelCmd runs a single calculation, normally inside a batch job
var kernelCmd = &cobra.Command{
	Use:   "kernel",
	Short: "Run one calculation of the input file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, specs, err := loadCalculations(inputFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		spec, err := selectCalculation(specs, kernelIndex)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cc, err := campaignConfig(cfg, 1)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		ctx, stop := signalContext()
		defer stop()

		res := sim.RunCalculation(ctx, spec, cc)
		if res.Err != nil {
			logrus.Fatalf("%s failed (%s): %v", spec.ID, sim.FailureKind(res.Err), res.Err)
		}
		logrus.Infof("%s: free energy %.6f eV/atom, report in %s", spec.ID, res.Report.Results.FreeEnergy, res.WorkDir)
	},
}

func init() {
	kernelCmd.Flags().IntVarP(&kernelIndex, "kernel", "k", 0, "Index of the calculation to run")
}
