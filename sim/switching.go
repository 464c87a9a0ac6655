package sim

import (
	"context"
	"fmt"
)

// defaultUFCutoff is the UF pair cutoff when none is configured.
const defaultUFCutoff = 7.5

// protocol is one forward/backward switching experiment. setup prepares a
// session; forward and backward ramp between the two end states.
type protocol struct {
	name     string
	prefix   string
	setup    []Directive
	forward  Ramp
	backward Ramp
}

func (s *Sequencer) switchRepeat(ctx context.Context, i int) error {
	switch s.spec.Mode {
	case ModeFreeEnergy:
		return s.runSwitch(ctx, i, s.referenceProtocol(i, prefixSwitch))
	case ModeAlchemy:
		return s.runSwitch(ctx, i, s.alchemyProtocol(i))
	case ModeScaling:
		if s.spec.NeedsReferenceSwitch() {
			if err := s.runSwitch(ctx, i, s.referenceProtocol(i, prefixReference)); err != nil {
				return err
			}
		}
		return s.runSwitch(ctx, i, s.scalingProtocol(i))
	}
	return NewConfigurationError("unknown mode %q", s.spec.Mode)
}

// restart reads the equilibrated configuration back in the production cell.
func (s *Sequencer) restart(pot SetPotential) []Directive {
	return []Directive{
		Init{Timestep: s.spec.MD.Timestep},
		ReadConfiguration{File: ConfFile, NElements: len(s.spec.Elements)},
		pot,
		RemapBox{Box: s.state.Box},
	}
}

// switchedNVT thermalises with NVE + Langevin and records dU = U_B - U_A,
// starting from state A with term B switched off.
func (s *Sequencer) switchedNVT(i, termA, termB int) []Directive {
	t := s.spec.Temperature
	return []Directive{
		ApplyThermostat{ID: "nve", Kind: NVE},
		ApplyThermostat{ID: "lgv", Kind: Langevin, TStart: t, TStop: t, Damp: s.spec.MD.TDamp, Seed: s.rng.EngineSeed(SubsystemRepeat(i))},
		Compute{Name: "dU", Quantity: QuantityPairDifference, Terms: [2]int{termA, termB}},
		ScalePair{ID: "off", Term: termB, Factor: 0},
		Run{Steps: 0},
		Unfix{ID: "off"},
	}
}

func linearRamps(termA, termB int) (Ramp, Ramp) {
	scale := []ScaledTerm{{Term: termA, Complement: true}, {Term: termB}}
	return Ramp{ID: "ramp", Lambda: "lambda", From: 0, To: 1, Scale: scale},
		Ramp{ID: "ramp", Lambda: "lambda", From: 1, To: 0, Scale: scale}
}

// ufPair returns the engine parameters of the UF reference at temperature t.
func (s *Sequencer) ufPair(t float64) *UFPair {
	m := NewUFModel(s.spec.Reference)
	cut := s.spec.Reference.Cutoff
	if cut == 0 {
		cut = defaultUFCutoff
	}
	return &UFPair{Epsilon: m.Epsilon(t), Sigma: m.Sigma, Cutoff: cut}
}

// referenceProtocol switches the potential (λ=0) to the UF reference (λ=1).
func (s *Sequencer) referenceProtocol(i int, prefix string) protocol {
	pot := SetPotential{Pairs: s.spec.Pairs[:1], Reference: s.ufPair(s.spec.Temperature), Masses: s.spec.Masses}
	fw, bw := linearRamps(0, ReferenceTerm)
	return protocol{
		name:     "reference",
		prefix:   prefix,
		setup:    append(s.restart(pot), s.switchedNVT(i, 0, ReferenceTerm)...),
		forward:  fw,
		backward: bw,
	}
}

// alchemyProtocol switches pair style A (λ=0) to pair style B (λ=1).
func (s *Sequencer) alchemyProtocol(i int) protocol {
	pot := SetPotential{Pairs: s.spec.Pairs, Masses: s.spec.Masses}
	fw, bw := linearRamps(0, 1)
	return protocol{
		name:     "alchemy",
		prefix:   prefixSwitch,
		setup:    append(s.restart(pot), s.switchedNVT(i, 0, 1)...),
		forward:  fw,
		backward: bw,
	}
}

// scalingProtocol scales the potential by λ from 1 to T0/Tf under NPH with a
// Langevin thermostat at T0, recording the scaled energy per atom λU/N.
func (s *Sequencer) scalingProtocol(i int) protocol {
	t := s.spec.Temperature
	lf := s.spec.ScalingFactor()
	pot := SetPotential{Pairs: s.spec.Pairs[:1], Masses: s.spec.Masses}
	seeds := SubsystemRepeat(i)
	setup := append(s.restart(pot),
		ApplyThermostat{ID: "nph", Kind: Langevin, TStart: t, TStop: t, Damp: s.spec.MD.TDamp, Seed: s.rng.EngineSeed(seeds), Barostat: s.barostat()},
		SetVelocity{Temperature: t, Seed: s.rng.EngineSeed(seeds)},
		Compute{Name: "dU", Quantity: QuantityEnergyPerAtom},
	)
	scale := []ScaledTerm{{Term: 0}}
	return protocol{
		name:     "scaling",
		prefix:   prefixScaling,
		setup:    setup,
		forward:  Ramp{ID: "ramp", Lambda: "lambda", From: 1, To: lf, Scale: scale},
		backward: Ramp{ID: "ramp", Lambda: "lambda", From: lf, To: 1, Scale: scale},
	}
}

// switchBlock equilibrates at the current end state, then ramps while
// recording "dU lambda" rows.
func (s *Sequencer) switchBlock(r Ramp, file string) []Directive {
	md := s.spec.MD
	return []Directive{
		Run{Steps: md.TEquil},
		r,
		WriteSeries{ID: "trace", File: file, Columns: []string{"dU", r.Lambda}, Every: 1},
		Run{Steps: md.TSwitch},
		Unfix{ID: r.ID},
		Unfix{ID: "trace"},
	}
}

func (s *Sequencer) runSwitch(ctx context.Context, i int, p protocol) error {
	if err := s.transition(StageSwitchingForward, i); err != nil {
		return err
	}
	log := s.log.WithField("stage", s.state.Stage)
	sess, err := s.driver.Open(ctx, s.state.WorkDir)
	if err != nil {
		return s.backendErr(err)
	}
	defer sess.Close()

	log.Infof("repeat %d: %s switching forward", i, p.name)
	fwd := append(p.setup, s.switchBlock(p.forward, TraceFile(p.prefix, Forward, i))...)
	if err := sess.Execute(ctx, fwd...); err != nil {
		return s.backendErr(err)
	}

	if err := s.transition(StageSwitchingBackward, i); err != nil {
		return err
	}
	log.Infof("repeat %d: %s switching backward", i, p.name)
	if err := sess.Execute(ctx, s.switchBlock(p.backward, TraceFile(p.prefix, Backward, i))...); err != nil {
		return s.backendErr(err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repeat %d: %w", i, err)
	}
	return nil
}
