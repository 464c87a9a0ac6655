package sim

import "context"

// Driver opens engine sessions. Implementations live in sub-packages
// (sim/lammps) so the workflow never depends on a concrete engine.
type Driver interface {
	// Open starts a session whose relative file names resolve in workDir.
	Open(ctx context.Context, workDir string) (Session, error)
}

// Session is a live engine instance. Execute blocks until every directive
// has been applied; a diagnostic from the engine is reported as an error.
type Session interface {
	Execute(ctx context.Context, directives ...Directive) error
	Close() error
}
