package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tint-sim/tint/sim"
	"github.com/tint-sim/tint/sim/config"
	"github.com/tint-sim/tint/sim/lammps"
	_ "github.com/tint-sim/tint/sim/order" // registers the q6 phase classifier
	"github.com/tint-sim/tint/sim/trace"
)

var (
	logLevel   string // Log verbosity level
	inputFile  string // YAML input file
	rootDir    string // Parent of the per-calculation working directories
	keepFiles  bool   // Keep consumed working files
	traceLevel string // Stage trace verbosity
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "tint",
	Short: "Free energies from thermodynamic integration with LAMMPS",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadCalculations reads the input file and expands it into specs.
func loadCalculations(path string) (*config.Config, []sim.CalculationSpec, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	specs, err := cfg.Calculations()
	if err != nil {
		return nil, nil, err
	}
	return cfg, specs, nil
}

// campaignConfig builds the execution settings shared by kernel and run.
func campaignConfig(cfg *config.Config, parallel int) (sim.CampaignConfig, error) {
	if !trace.IsValidTraceLevel(traceLevel) {
		return sim.CampaignConfig{}, sim.NewConfigurationError("unknown trace level %q", traceLevel)
	}
	level, _ := logrus.ParseLevel(logLevel)
	return sim.CampaignConfig{
		Root:       rootDir,
		Parallel:   parallel,
		Driver:     lammps.NewDriver(cfg.Engine.Command, cfg.Queue.Cores, cfg.Engine.MPIExec),
		LogLevel:   level,
		TraceLevel: trace.TraceLevel(traceLevel),
		KeepFiles:  keepFiles,
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "input", "i", "input.yaml", "YAML input file")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Directory holding one working directory per calculation")

	for _, c := range []*cobra.Command{kernelCmd, runCmd} {
		c.Flags().BoolVar(&keepFiles, "keep", false, "Keep intermediate files after they are consumed")
		c.Flags().StringVar(&traceLevel, "trace", "stages", "Stage trace verbosity (none, stages, cycles)")
	}

	rootCmd.AddCommand(submitCmd, kernelCmd, runCmd, collectCmd)
}
