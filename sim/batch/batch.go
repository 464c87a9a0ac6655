// Package batch writes and submits job scripts for independent
// calculations. Each scheduler is one Backend variant; the script layout is
// shared and only the header directives and submission command differ.
package batch

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Options are the scheduler-independent job settings.
type Options struct {
	JobName   string
	Cores     int
	Walltime  string
	QueueName string
	Memory    string
	// Options are extra raw scheduler directives, e.g. "--exclusive".
	Options  []string
	Modules  []string
	Commands []string
}

// Job is one calculation to submit.
type Job struct {
	Name      string // suffix of the job name, usually the calculation ID
	Directory string // working directory of the job
	Command   string // the invocation that runs the calculation
}

// Backend writes a script for a job and hands it to a scheduler.
type Backend interface {
	// WriteScript writes the job script into job.Directory and returns its path.
	WriteScript(job Job) (string, error)
	// Submit starts the submission and returns without waiting for it.
	Submit(script string) (*exec.Cmd, error)
}

var validSchedulers = map[string]func(Options) Backend{
	"local": func(o Options) Backend { return &Local{Opts: o} },
	"slurm": func(o Options) Backend { return &SLURM{Opts: o, Submitter: "sbatch", Hint: "nomultithread"} },
	"sge":   func(o Options) Backend { return &SGE{Opts: o, Submitter: "qsub", ParallelEnv: "smp"} },
}

// IsValidScheduler reports whether name is a known scheduler.
func IsValidScheduler(name string) bool {
	_, ok := validSchedulers[name]
	return ok
}

// ValidSchedulerNames returns the known schedulers, sorted.
func ValidSchedulerNames() []string {
	names := make([]string, 0, len(validSchedulers))
	for n := range validSchedulers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New returns the backend for scheduler.
func New(scheduler string, opts Options) (Backend, error) {
	f, ok := validSchedulers[scheduler]
	if !ok {
		return nil, fmt.Errorf("unknown scheduler %q; valid: %s", scheduler, strings.Join(ValidSchedulerNames(), ", "))
	}
	return f(opts), nil
}

// ScriptName is the file name of the job script in the job directory.
const ScriptName = "tint.sub"

func jobName(o Options, job Job) string {
	if job.Name == "" {
		return o.JobName
	}
	if o.JobName == "" {
		return job.Name
	}
	return o.JobName + "-" + job.Name
}

// writeScript renders the shared layout: shebang, scheduler header,
// modules, setup commands, then the job command with its output redirected
// next to the script.
func writeScript(o Options, job Job, header []string) (string, error) {
	if job.Command == "" {
		return "", fmt.Errorf("job %q has no command", job.Name)
	}
	path := filepath.Join(job.Directory, ScriptName)
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	for _, h := range header {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	for _, m := range o.Modules {
		fmt.Fprintf(&b, "module load %s\n", m)
	}
	for _, c := range o.Commands {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s > %s.out 2> %s.err\n", job.Command, path, path)
	if err := os.MkdirAll(job.Directory, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return "", fmt.Errorf("writing job script: %w", err)
	}
	return path, nil
}

func start(name string, args ...string) (*exec.Cmd, error) {
	cmd := exec.Command(name, args...)
	if len(args) > 0 {
		cmd.Dir = filepath.Dir(args[len(args)-1])
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("submitting with %s: %w", name, err)
	}
	return cmd, nil
}

// Local runs the script directly in the background.
type Local struct {
	Opts Options
}

func (l *Local) WriteScript(job Job) (string, error) {
	return writeScript(l.Opts, job, nil)
}

func (l *Local) Submit(script string) (*exec.Cmd, error) {
	if err := os.Chmod(script, 0o755); err != nil {
		return nil, err
	}
	cmd := exec.Command(script)
	cmd.Dir = filepath.Dir(script)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", script, err)
	}
	return cmd, nil
}

// SLURM submits through sbatch.
type SLURM struct {
	Opts      Options
	Submitter string
	Hint      string
}

func (s *SLURM) WriteScript(job Job) (string, error) {
	h := []string{
		"#SBATCH --job-name=" + jobName(s.Opts, job),
		"#SBATCH --ntasks=" + fmt.Sprint(max(s.Opts.Cores, 1)),
		"#SBATCH --chdir=" + job.Directory,
	}
	if s.Opts.Walltime != "" {
		h = append(h, "#SBATCH --time="+s.Opts.Walltime)
	}
	if s.Opts.QueueName != "" {
		h = append(h, "#SBATCH --partition="+s.Opts.QueueName)
	}
	if s.Opts.Memory != "" {
		h = append(h, "#SBATCH --mem-per-cpu="+s.Opts.Memory)
	}
	if s.Hint != "" {
		h = append(h, "#SBATCH --hint="+s.Hint)
	}
	for _, o := range s.Opts.Options {
		h = append(h, "#SBATCH "+o)
	}
	return writeScript(s.Opts, job, h)
}

func (s *SLURM) Submit(script string) (*exec.Cmd, error) {
	return start(s.Submitter, script)
}

// SGE submits through qsub.
type SGE struct {
	Opts        Options
	Submitter   string
	ParallelEnv string
}

func (s *SGE) WriteScript(job Job) (string, error) {
	h := []string{
		"#$ -N " + jobName(s.Opts, job),
		fmt.Sprintf("#$ -pe %s %d", s.ParallelEnv, max(s.Opts.Cores, 1)),
		"#$ -wd " + job.Directory,
	}
	if s.Opts.Walltime != "" {
		h = append(h, "#$ -l h_rt="+s.Opts.Walltime)
	}
	if s.Opts.QueueName != "" {
		h = append(h, "#$ -q "+s.Opts.QueueName)
	}
	if s.Opts.Memory != "" {
		h = append(h, "#$ -l h_vmem="+s.Opts.Memory)
	}
	for _, o := range s.Opts.Options {
		h = append(h, "#$ "+o)
	}
	return writeScript(s.Opts, job, h)
}

func (s *SGE) Submit(script string) (*exec.Cmd, error) {
	return start(s.Submitter, script)
}
