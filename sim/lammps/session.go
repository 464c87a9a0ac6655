package lammps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tint-sim/tint/sim"
)

// TranscriptFile receives every input line sent to the engine.
const TranscriptFile = "tint.in"

const syncMarker = "TINT_SYNC"

var (
	_ sim.Driver  = (*Driver)(nil)
	_ sim.Session = (*Session)(nil)
)

// Driver starts LAMMPS processes that read commands from stdin.
type Driver struct {
	// Command is the engine invocation, e.g. ["mpirun", "-np", "4", "lmp"].
	Command []string
	Log     *logrus.Entry
}

// NewDriver returns a driver for executable run on ranks MPI ranks. A
// single rank runs the executable directly.
func NewDriver(executable string, ranks int, mpiexec string) *Driver {
	cmd := []string{executable}
	if ranks > 1 {
		if mpiexec == "" {
			mpiexec = "mpirun"
		}
		cmd = []string{mpiexec, "-np", fmt.Sprint(ranks), executable}
	}
	return &Driver{Command: cmd, Log: logrus.NewEntry(logrus.StandardLogger())}
}

// Open starts an engine in workDir.
func (d *Driver) Open(ctx context.Context, workDir string) (sim.Session, error) {
	if len(d.Command) == 0 {
		return nil, fmt.Errorf("no engine command configured")
	}
	args := append(append([]string{}, d.Command[1:]...), "-log", "log.lammps")
	cmd := exec.CommandContext(ctx, d.Command[0], args...)
	cmd.Dir = workDir
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout
	transcript, err := os.OpenFile(filepath.Join(workDir, TranscriptFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		transcript.Close()
		return nil, fmt.Errorf("starting %s: %w", d.Command[0], err)
	}
	log := d.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.Debugf("started %s in %s", strings.Join(d.Command, " "), workDir)
	return newSession(cmd, stdin, stdout, transcript, log), nil
}

// Session is a running engine fed through its standard input.
type Session struct {
	cmd        *exec.Cmd
	in         io.WriteCloser
	out        *bufio.Scanner
	transcript io.WriteCloser
	render     *Renderer
	log        *logrus.Entry
	seq        int

	mu     sync.Mutex
	closed bool
}

func newSession(cmd *exec.Cmd, in io.WriteCloser, out io.Reader, transcript io.WriteCloser, log *logrus.Entry) *Session {
	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Session{cmd: cmd, in: in, out: sc, transcript: transcript, render: NewRenderer(), log: log}
}

// Execute sends the directives and waits until the engine has processed
// them. An "ERROR" line from the engine aborts with a BackendFailure.
func (s *Session) Execute(ctx context.Context, directives ...sim.Directive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session is closed")
	}
	var lines []string
	for _, d := range directives {
		ls, err := s.render.Render(d)
		if err != nil {
			return err
		}
		lines = append(lines, ls...)
	}
	s.seq++
	marker := fmt.Sprintf("%s %d", syncMarker, s.seq)
	lines = append(lines, fmt.Sprintf(`print "%s"`, marker))
	text := strings.Join(lines, "\n") + "\n"
	if s.transcript != nil {
		if _, err := io.WriteString(s.transcript, text); err != nil {
			s.log.Warnf("could not write transcript: %v", err)
		}
	}
	if _, err := io.WriteString(s.in, text); err != nil {
		return &sim.BackendFailure{Diagnostic: "engine input closed", Err: err}
	}
	return s.wait(ctx, marker)
}

// wait scans engine output until marker is printed.
func (s *Session) wait(ctx context.Context, marker string) error {
	for s.out.Scan() {
		line := strings.TrimSpace(s.out.Text())
		switch {
		case line == marker:
			return nil
		case strings.HasPrefix(line, "ERROR"):
			return &sim.BackendFailure{Diagnostic: line}
		case strings.HasPrefix(line, "WARNING"):
			s.log.Warn(line)
		default:
			s.log.Trace(line)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.out.Err(); err != nil {
		return &sim.BackendFailure{Diagnostic: "reading engine output", Err: err}
	}
	return &sim.BackendFailure{Diagnostic: "engine exited before completing the input"}
}

// Close ends the engine and waits for it to exit.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	io.WriteString(s.in, "quit\n")
	s.in.Close()
	for s.out.Scan() {
	}
	err := s.cmd.Wait()
	if s.transcript != nil {
		s.transcript.Close()
	}
	return err
}
