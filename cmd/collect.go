package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tint-sim/tint/sim/store"
)

var (
	filterMode  string // Only list results of this mode
	filterState string // Only list results of this state
)

// printResults writes one line per indexed result.
func printResults(w io.Writer, results []store.Result) {
	fmt.Fprintf(w, "%-28s %-6s %10s %10s %14s %12s\n", "calculation", "state", "T", "P", "F (eV/atom)", "error")
	for _, r := range results {
		errText := "n/a"
		if r.Error != nil {
			errText = fmt.Sprintf("%.6f", *r.Error)
		}
		fmt.Fprintf(w, "%-28s %-6s %10.2f %10.2f %14.6f %12s\n", r.CalcID, r.State, r.Temperature, r.Pressure, r.FreeEnergy, errText)
		if r.FreeEnergyStop != nil {
			fmt.Fprintf(w, "%-28s %-6s %10.2f %10s %14.6f\n", "", "", r.TemperatureStop, "", *r.FreeEnergyStop)
		}
	}
}

// collectCmd indexes finished reports and prints them
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Index every report.yaml under --root and print the results",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := store.Open(indexPath())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		defer db.Close()

		n, err := db.Collect(rootDir)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("indexed %d reports under %s", n, rootDir)

		results, err := db.Results(store.Filter{Mode: filterMode, State: filterState})
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printResults(os.Stdout, results)

		failures, err := db.Failures()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		for _, f := range failures {
			logrus.Warnf("%s failed (%s) at %s: %s", f.CalcID, f.Kind, f.FailedAt, f.Message)
		}
	},
}

func init() {
	collectCmd.Flags().StringVar(&filterMode, "mode", "", "Only list results of this mode (fe, alchemy, ts)")
	collectCmd.Flags().StringVar(&filterState, "state", "", "Only list results of this state (solid, liquid)")
}
