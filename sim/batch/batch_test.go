package batch

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readScript(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNew_Schedulers(t *testing.T) {
	for _, name := range ValidSchedulerNames() {
		b, err := New(name, Options{})
		require.NoError(t, err, name)
		assert.NotNil(t, b)
	}
	_, err := New("pbs", Options{})
	assert.Error(t, err)
	assert.False(t, IsValidScheduler("pbs"))
	assert.Equal(t, []string{"local", "sge", "slurm"}, ValidSchedulerNames())
}

func TestSLURM_WriteScript(t *testing.T) {
	// GIVEN a SLURM backend with modules and extra options
	dir := t.TempDir()
	b, err := New("slurm", Options{
		JobName: "ti", Cores: 16, Walltime: "12:00:00", QueueName: "short", Memory: "2GB",
		Options: []string{"--exclusive"}, Modules: []string{"lammps/2023"}, Commands: []string{"ulimit -s unlimited"},
	})
	require.NoError(t, err)

	// WHEN a job script is written
	path, err := b.WriteScript(Job{Name: "fe-FCC-1000-0", Directory: dir, Command: "tint kernel -i in.yaml -k 0"})
	require.NoError(t, err)

	// THEN the header precedes modules, commands and the redirected job
	text := readScript(t, path)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Equal(t, "#!/bin/bash", lines[0])
	assert.Contains(t, text, "#SBATCH --job-name=ti-fe-FCC-1000-0\n")
	assert.Contains(t, text, "#SBATCH --ntasks=16\n")
	assert.Contains(t, text, "#SBATCH --partition=short\n")
	assert.Contains(t, text, "#SBATCH --exclusive\n")
	assert.Contains(t, text, "#SBATCH --chdir="+dir+"\n")
	assert.Equal(t, "tint kernel -i in.yaml -k 0 > "+path+".out 2> "+path+".err", lines[len(lines)-1])
	assert.Less(t, strings.Index(text, "module load lammps/2023"), strings.Index(text, "ulimit -s unlimited"))
}

func TestSGE_WriteScript(t *testing.T) {
	dir := t.TempDir()
	b, err := New("sge", Options{JobName: "ti", Cores: 4})
	require.NoError(t, err)
	path, err := b.WriteScript(Job{Name: "x", Directory: dir, Command: "run"})
	require.NoError(t, err)
	text := readScript(t, path)
	assert.Contains(t, text, "#$ -N ti-x\n")
	assert.Contains(t, text, "#$ -pe smp 4\n")
	assert.NotContains(t, text, "h_rt")
}

func TestWriteScript_NeedsCommand(t *testing.T) {
	_, err := (&Local{}).WriteScript(Job{Directory: t.TempDir()})
	assert.Error(t, err)
}

func TestLocal_SubmitStartsScript(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	// GIVEN a local job that writes a marker file
	dir := t.TempDir()
	b := &Local{}
	path, err := b.WriteScript(Job{Directory: dir, Command: "touch done"})
	require.NoError(t, err)

	// WHEN it is submitted and the returned process awaited
	cmd, err := b.Submit(path)
	require.NoError(t, err)
	require.NoError(t, cmd.Wait())

	// THEN the job ran in its directory
	_, err = os.Stat(filepath.Join(dir, "done"))
	assert.NoError(t, err)
}

func TestSLURM_SubmitUsesSubmitter(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	script := filepath.Join(t.TempDir(), ScriptName)
	b := &SLURM{Submitter: "true"}
	cmd, err := b.Submit(script)
	require.NoError(t, err)
	assert.NoError(t, cmd.Wait())
	assert.Equal(t, []string{"true", script}, cmd.Args)
}
