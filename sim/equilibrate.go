package sim

import (
	"context"
	"fmt"

	"github.com/tint-sim/tint/sim/trace"
)

// Compute names used by the averaging series.
var averageComputes = []Compute{
	{Name: "lx", Quantity: QuantityLx},
	{Name: "ly", Quantity: QuantityLy},
	{Name: "lz", Quantity: QuantityLz},
	{Name: "press", Quantity: QuantityPressure},
}

// Equilibrate brings the system to the target temperature and pressure and
// fixes the production cell. It leaves snapshot.xyz and conf.data in the
// working directory.
func (s *Sequencer) Equilibrate(ctx context.Context) error {
	if err := s.transition(StageEquilibrating, 0); err != nil {
		return err
	}
	if err := s.equilibrate(ctx); err != nil {
		return s.fail(err)
	}
	return nil
}

// structureDirectives set up units, atoms and the first potential.
func (s *Sequencer) structureDirectives() []Directive {
	spec := s.spec
	ds := []Directive{Init{Timestep: spec.MD.Timestep}}
	if spec.DataFile != "" {
		ds = append(ds, ReadConfiguration{File: spec.DataFile, NElements: len(spec.Elements)})
	} else {
		ds = append(ds, SetLattice{
			Lattice:   spec.Lattice,
			Constant:  spec.LatticeConstant,
			Repeat:    spec.Repeat,
			NElements: len(spec.Elements),
		})
	}
	return append(ds, SetPotential{Pairs: spec.Pairs[:1], Masses: spec.Masses})
}

func (s *Sequencer) barostat() *Barostat {
	b := &Barostat{Pressure: s.spec.Pressure, Damp: s.spec.MD.PDamp, Coupling: Aniso}
	if s.spec.Iso {
		b.Coupling = Iso
	}
	return b
}

func (s *Sequencer) npt(id string, t0, t1 float64) ApplyThermostat {
	return ApplyThermostat{ID: id, Kind: NoseHoover, TStart: t0, TStop: t1, Damp: s.spec.MD.TDamp, Barostat: s.barostat()}
}

// heatingDirectives bring the structure to the run temperature. Liquids are
// melted at THigh first. At non-zero pressure solids are heated gradually
// from a quarter of the temperature so the cell can follow.
func (s *Sequencer) heatingDirectives() []Directive {
	spec := s.spec
	t := spec.Temperature
	nsmall := Run{Steps: spec.MD.NSmall}
	seed := s.rng.EngineSeed(SubsystemVelocity)

	if spec.Phase == PhaseLiquid {
		return []Directive{
			SetVelocity{Temperature: spec.THigh, Seed: seed},
			s.npt("melt", spec.THigh, spec.THigh), nsmall, Unfix{ID: "melt"},
			s.npt("npt", t, t), nsmall,
		}
	}
	if spec.Pressure == 0 {
		return []Directive{
			SetVelocity{Temperature: t, Seed: seed},
			s.npt("npt", t, t), nsmall,
		}
	}
	return []Directive{
		SetVelocity{Temperature: 0.25 * t, Seed: seed},
		s.npt("heat", 0.25*t, 0.5*t), nsmall, Unfix{ID: "heat"},
		s.npt("heat", 0.5*t, t), nsmall, Unfix{ID: "heat"},
		s.npt("npt", t, t), nsmall,
	}
}

func (s *Sequencer) equilibrate(ctx context.Context) error {
	sess, err := s.driver.Open(ctx, s.state.WorkDir)
	if err != nil {
		return s.backendErr(err)
	}
	defer sess.Close()
	exec := func(ds ...Directive) error {
		if err := sess.Execute(ctx, ds...); err != nil {
			return s.backendErr(err)
		}
		return nil
	}

	md := s.spec.MD
	setup := s.structureDirectives()
	for _, c := range averageComputes {
		setup = append(setup, c)
	}
	setup = append(setup, s.heatingDirectives()...)
	setup = append(setup, WriteSeries{
		ID:      "avg",
		File:    AverageFile,
		Columns: []string{"lx", "ly", "lz", "press"},
		Every:   md.NEvery,
		Repeat:  md.NRepeat,
		Average: true,
	})
	if err := exec(setup...); err != nil {
		return err
	}

	mon := NewConvergenceMonitor(s.spec.Pressure, s.spec.Tol, s.spec.NAtoms)
	maxCycles := md.NCycles
	if mon.FixedDuration() {
		maxCycles = max(s.spec.Tol.FixedCycles, 1)
		s.log.Infof("target pressure is zero, averaging for %d fixed cycles", maxCycles)
	}
	seen := 0
	for c := 0; c < maxCycles && !mon.Converged(); c++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := exec(Run{Steps: md.NSmall}); err != nil {
			return err
		}
		rows, err := ReadColumns(s.path(AverageFile), averageColumns)
		if err != nil {
			return fmt.Errorf("reading averages: %w", err)
		}
		if len(rows) < seen {
			return fmt.Errorf("averaging file shrank from %d to %d rows", seen, len(rows))
		}
		cs, done, err := mon.Observe(rows[seen:])
		if err != nil {
			return err
		}
		seen = len(rows)
		s.log.Infof("cycle %d: mean pressure %.4f (std %.4f) with %.4f vol/atom", cs.Cycle, cs.Mean, cs.Std, cs.VolumePerAtom)
		s.trace.RecordCycle(trace.CycleRecord{
			Calculation:  s.spec.ID,
			Cycle:        cs.Cycle,
			MeanPressure: cs.Mean,
			StdPressure:  cs.Std,
			Samples:      cs.Samples,
			Converged:    done,
		})
		if s.metrics != nil {
			s.metrics.Cycles.Inc()
			s.metrics.CyclePressure.Set(cs.Mean)
		}
	}
	if !mon.Converged() {
		return mon.Failure()
	}

	box, vpa, press := mon.Result()
	s.state.Box = box
	s.state.VolumePerAtom = vpa
	s.state.Pressure = press
	s.log.Infof("finalized vol/atom %.4f at pressure %.4f", vpa, press)
	s.log.Infof("avg box dimensions x: %.4f, y: %.4f, z: %.4f", box.Lx, box.Ly, box.Lz)

	if err := exec(
		Unfix{ID: "avg"},
		Unfix{ID: "npt"},
		Dump{File: SnapshotFile, Format: DumpXYZ, Elements: s.spec.Elements},
		Dump{File: ConfFile, Format: DumpData},
	); err != nil {
		return err
	}
	s.state.Equilibrated = true
	s.consume(AverageFile)
	return nil
}

// CheckPhase classifies the equilibrated snapshot and stops the calculation
// if the structure left the requested phase.
func (s *Sequencer) CheckPhase(ctx context.Context) error {
	if err := s.transition(StagePhaseChecking, 0); err != nil {
		return err
	}
	// conf.data is written at the same step as the snapshot and carries its cell.
	h, err := ReadDataHeader(s.path(ConfFile))
	if err != nil {
		return s.fail(fmt.Errorf("reading snapshot cell: %w", err))
	}
	frac, err := s.classifier.SolidFraction(ctx, Snapshot{Path: s.path(SnapshotFile), Box: h.Box})
	if err != nil {
		return s.fail(fmt.Errorf("classifying snapshot: %w", err))
	}
	s.state.SolidFraction = frac
	if s.metrics != nil {
		s.metrics.SolidFraction.Set(frac)
	}
	s.log.Infof("%d of %d atoms solid-like (fraction %.3f)", int(frac*float64(s.spec.NAtoms)+0.5), s.spec.NAtoms, frac)
	if err := PhaseGate(s.spec.Phase, frac, s.spec.Tol); err != nil {
		return s.fail(err)
	}
	// The reference is evaluated at the equilibrium density, known from here on.
	if s.spec.NeedsReferenceSwitch() {
		if _, _, err := s.referenceEnergies(); err != nil {
			return s.fail(err)
		}
	}
	s.consume(SnapshotFile)
	return nil
}
