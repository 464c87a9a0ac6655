package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tint-sim/tint/sim"
	"github.com/tint-sim/tint/sim/batch"
	"github.com/tint-sim/tint/sim/config"
)

var (
	dryRun     bool   // Write scripts without submitting
	executable string // tint binary invoked by the job scripts
)

// batchOptions maps the queue section onto scheduler options.
func batchOptions(q config.Queue) batch.Options {
	return batch.Options{
		JobName:   q.JobName,
		Cores:     q.Cores,
		Walltime:  q.Walltime,
		QueueName: q.QueueName,
		Memory:    q.Memory,
		Options:   q.Options,
		Modules:   q.Modules,
		Commands:  q.Commands,
	}
}

// kernelCommand is the job command that runs calculation k of input.
func kernelCommand(exe, input, root string, k int) string {
	return strings.Join([]string{exe, "kernel", "-i", input, "-k", fmt.Sprint(k), "--root", root}, " ")
}

// writeJobs writes one job script per calculation and returns their paths.
func writeJobs(backend batch.Backend, specs []sim.CalculationSpec, exe, input, root string) ([]string, error) {
	absInput, err := filepath.Abs(input)
	if err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := sim.CheckUniqueIDs(specs); err != nil {
		return nil, err
	}
	scripts := make([]string, 0, len(specs))
	for k, spec := range specs {
		script, err := backend.WriteScript(batch.Job{
			Name:      spec.ID,
			Directory: filepath.Join(absRoot, spec.ID),
			Command:   kernelCommand(exe, absInput, absRoot, k),
		})
		if err != nil {
			return nil, fmt.Errorf("calculation %s: %w", spec.ID, err)
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

// submitCmd writes and submits one job per calculation
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit every calculation of the input file to the configured scheduler",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, specs, err := loadCalculations(inputFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		backend, err := batch.New(cfg.Queue.Scheduler, batchOptions(cfg.Queue))
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		exe := executable
		if exe == "" {
			if exe, err = os.Executable(); err != nil {
				logrus.Fatalf("cannot locate tint executable: %v", err)
			}
		}
		scripts, err := writeJobs(backend, specs, exe, inputFile, rootDir)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		for i, script := range scripts {
			if dryRun {
				logrus.Infof("wrote %s", script)
				continue
			}
			if _, err := backend.Submit(script); err != nil {
				logrus.Fatalf("%s: %v", specs[i].ID, err)
			}
			logrus.Infof("submitted %s via %s", specs[i].ID, cfg.Queue.Scheduler)
		}
	},
}

func init() {
	submitCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Write job scripts without submitting them")
	submitCmd.Flags().StringVar(&executable, "executable", "", "tint binary used in job scripts (default: this binary)")
}
