// Package store indexes finished calculations in a SQLite database so a
// campaign's results can be queried without re-reading every report.
package store

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/tint-sim/tint/sim"
)

// DB wraps a SQLite connection holding the results index.
type DB struct {
	conn *sqlx.DB
}

// Result is one indexed report.
type Result struct {
	RunID           string   `db:"run_id"`
	CalcID          string   `db:"calc_id"`
	Mode            string   `db:"mode"`
	State           string   `db:"state"`
	Temperature     float64  `db:"temperature"`
	TemperatureStop float64  `db:"temperature_stop"`
	Pressure        float64  `db:"pressure"`
	Lattice         string   `db:"lattice"`
	Element         string   `db:"element"`
	Concentration   string   `db:"concentration"`
	NSims           int      `db:"nsims"`
	VolumePerAtom   float64  `db:"volume_per_atom"`
	Density         float64  `db:"density"`
	FreeEnergy      float64  `db:"free_energy"`
	Error           *float64 `db:"error"`
	LowConfidence   bool     `db:"low_confidence"`
	Work            float64  `db:"work"`
	FreeEnergyStop  *float64 `db:"free_energy_stop"`
	WorkDir         string   `db:"work_dir"`
	CollectedAt     string   `db:"collected_at"`
}

// Failure is one calculation that stopped before reporting.
type Failure struct {
	RunID    string `db:"run_id"`
	CalcID   string `db:"calc_id"`
	Kind     string `db:"kind"`
	Message  string `db:"message"`
	FailedAt string `db:"failed_at"`
}

// Filter narrows Results. Zero fields match everything.
type Filter struct {
	Mode  string
	State string
}

// Open opens or creates the index at path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT PRIMARY KEY,
		calc_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		state TEXT NOT NULL,
		temperature REAL NOT NULL,
		temperature_stop REAL NOT NULL,
		pressure REAL NOT NULL,
		lattice TEXT NOT NULL,
		element TEXT NOT NULL,
		concentration TEXT NOT NULL,
		nsims INTEGER NOT NULL,
		volume_per_atom REAL NOT NULL,
		density REAL NOT NULL,
		free_energy REAL NOT NULL,
		error REAL,
		low_confidence INTEGER NOT NULL,
		work REAL NOT NULL,
		free_energy_stop REAL,
		work_dir TEXT NOT NULL,
		collected_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS failures (
		run_id TEXT PRIMARY KEY,
		calc_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		failed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_calc ON results(calc_id);
	CREATE INDEX IF NOT EXISTS idx_results_mode ON results(mode, state);
	`
	_, err := db.conn.Exec(schema)
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// resultOf flattens a report into an index row.
func resultOf(workDir string, r *sim.FreeEnergyReport) Result {
	return Result{
		RunID:           r.RunID,
		CalcID:          r.Input.ID,
		Mode:            string(r.Input.Mode),
		State:           string(r.Input.State),
		Temperature:     r.Input.Temperature,
		TemperatureStop: r.Input.TemperatureStop,
		Pressure:        r.Input.Pressure,
		Lattice:         r.Input.Lattice,
		Element:         r.Input.Element,
		Concentration:   r.Input.Concentration,
		NSims:           r.Input.NSims,
		VolumePerAtom:   r.Average.VolumePerAtom,
		Density:         r.Average.Density,
		FreeEnergy:      r.Results.FreeEnergy,
		Error:           r.Results.Error,
		LowConfidence:   r.Results.LowConfidence,
		Work:            r.Results.Work,
		FreeEnergyStop:  r.Results.FreeEnergyEnd,
		WorkDir:         workDir,
		CollectedAt:     now(),
	}
}

const insertResult = `INSERT OR REPLACE INTO results
	(run_id, calc_id, mode, state, temperature, temperature_stop, pressure, lattice,
	 element, concentration, nsims, volume_per_atom, density, free_energy, error,
	 low_confidence, work, free_energy_stop, work_dir, collected_at)
	VALUES (:run_id, :calc_id, :mode, :state, :temperature, :temperature_stop, :pressure, :lattice,
	 :element, :concentration, :nsims, :volume_per_atom, :density, :free_energy, :error,
	 :low_confidence, :work, :free_energy_stop, :work_dir, :collected_at)`

// SaveReport indexes one report. A report with a run ID already present
// replaces the earlier row.
func (db *DB) SaveReport(workDir string, r *sim.FreeEnergyReport) error {
	if r.RunID == "" {
		return fmt.Errorf("report for %s has no run id", r.Input.ID)
	}
	_, err := db.conn.NamedExec(insertResult, resultOf(workDir, r))
	return err
}

// SaveFailure records a calculation that did not produce a report.
func (db *DB) SaveFailure(f Failure) error {
	if f.FailedAt == "" {
		f.FailedAt = now()
	}
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO failures
		(run_id, calc_id, kind, message, failed_at)
		VALUES (:run_id, :calc_id, :kind, :message, :failed_at)`, f)
	return err
}

// Collect indexes every report.yaml below root in one transaction and
// returns how many were stored.
func (db *DB) Collect(root string) (int, error) {
	var reports []Result
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != sim.ReportFile {
			return nil
		}
		r, err := sim.ReadReport(path)
		if err != nil {
			logrus.Warnf("skipping %s: %v", path, err)
			return nil
		}
		if r.RunID == "" {
			logrus.Warnf("skipping %s: no run id", path)
			return nil
		}
		reports = append(reports, resultOf(filepath.Dir(path), r))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning %s: %w", root, err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareNamed(insertResult)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, r := range reports {
		if _, err := stmt.Exec(r); err != nil {
			return 0, fmt.Errorf("indexing %s: %w", r.WorkDir, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(reports), nil
}

// Results returns indexed reports ordered by calculation and temperature.
func (db *DB) Results(f Filter) ([]Result, error) {
	var out []Result
	err := db.conn.Select(&out, `SELECT * FROM results
		WHERE (? = '' OR mode = ?) AND (? = '' OR state = ?)
		ORDER BY calc_id, temperature, collected_at`,
		f.Mode, f.Mode, f.State, f.State)
	return out, err
}

// Failures returns recorded failures, newest first.
func (db *DB) Failures() ([]Failure, error) {
	var out []Failure
	err := db.conn.Select(&out, "SELECT * FROM failures ORDER BY failed_at DESC, calc_id")
	return out, err
}
