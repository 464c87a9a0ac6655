package sim

import "fmt"

// Integrate turns the switching traces into the free energy, writes
// report.yaml and removes the consumed working files.
func (s *Sequencer) Integrate() (*FreeEnergyReport, error) {
	if s.repeats < s.spec.NSims {
		return nil, fmt.Errorf("integration needs %d repeats, %d done", s.spec.NSims, s.repeats)
	}
	if err := s.transition(StageIntegrating, 0); err != nil {
		return nil, err
	}
	report, err := s.integrate()
	if err != nil {
		return nil, s.fail(err)
	}
	if err := WriteReport(s.path(ReportFile), report); err != nil {
		return nil, s.fail(fmt.Errorf("writing report: %w", err))
	}
	if err := s.transition(StageReported, 0); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.FreeEnergy.Set(report.Results.FreeEnergy)
		s.metrics.Work.Set(report.Results.Work)
		if report.Results.Error != nil {
			s.metrics.WorkError.Set(*report.Results.Error)
		}
	}
	if report.Results.LowConfidence {
		s.log.Warnf("single repeat: free energy %.6f eV/atom has no error estimate", report.Results.FreeEnergy)
	} else {
		s.log.Infof("free energy %.6f ± %.6f eV/atom", report.Results.FreeEnergy, *report.Results.Error)
	}
	s.consume(s.consumedFiles()...)
	return report, nil
}

func (s *Sequencer) consumedFiles() []string {
	prefixes := []string{prefixSwitch}
	if s.spec.Mode == ModeScaling {
		prefixes = []string{prefixScaling}
		if s.spec.NeedsReferenceSwitch() {
			prefixes = append(prefixes, prefixReference)
		}
	}
	files := []string{ConfFile}
	for _, p := range prefixes {
		for i := 1; i <= s.spec.NSims; i++ {
			files = append(files, TraceFile(p, Forward, i), TraceFile(p, Backward, i))
		}
	}
	return files
}

// referenceEnergies returns the ideal gas and UF excess free energies at
// the equilibrium density.
func (s *Sequencer) referenceEnergies() (float64, float64, error) {
	rho := s.state.Density()
	fig, err := IdealGasFreeEnergy(s.spec.Temperature, rho, s.spec.NAtoms, s.spec.Masses, s.spec.Concentration)
	if err != nil {
		return 0, 0, err
	}
	fuf, err := UhlenbeckFordFreeEnergy(s.spec.Temperature, rho, NewUFModel(s.spec.Reference))
	if err != nil {
		return 0, 0, err
	}
	return fig, fuf, nil
}

// referenceFreeEnergy is F = F_ig + F_UF - w for a potential → UF switch.
func (s *Sequencer) referenceFreeEnergy(prefix string) (ReportResults, error) {
	pairs, err := LoadTracePairs(s.state.WorkDir, prefix, s.spec.NSims)
	if err != nil {
		return ReportResults{}, err
	}
	est, err := EstimateWork(pairs)
	if err != nil {
		return ReportResults{}, err
	}
	fig, fuf, err := s.referenceEnergies()
	if err != nil {
		return ReportResults{}, err
	}
	res := workResults(est)
	res.FreeEnergy = fig + fuf - est.Work
	res.IdealGas = &fig
	res.UhlenbeckFord = &fuf
	return res, nil
}

func workResults(est WorkEstimate) ReportResults {
	var diss float64
	for _, d := range est.Dissipation {
		diss += d
	}
	if n := len(est.Dissipation); n > 0 {
		diss /= float64(n)
	}
	return ReportResults{
		Work:          est.Work,
		Error:         est.ErrorPtr(),
		LowConfidence: !est.ErrorDefined,
		Dissipation:   diss,
	}
}

func (s *Sequencer) integrate() (*FreeEnergyReport, error) {
	report := newReport(s.runID, s.spec, s.state)
	switch s.spec.Mode {
	case ModeFreeEnergy:
		res, err := s.referenceFreeEnergy(prefixSwitch)
		if err != nil {
			return nil, err
		}
		report.Results = res

	case ModeAlchemy:
		pairs, err := LoadTracePairs(s.state.WorkDir, prefixSwitch, s.spec.NSims)
		if err != nil {
			return nil, err
		}
		est, err := EstimateWork(pairs)
		if err != nil {
			return nil, err
		}
		report.Results = workResults(est)
		report.Results.FreeEnergy = est.Work

	case ModeScaling:
		var f0 float64
		if s.spec.NeedsReferenceSwitch() {
			res, err := s.referenceFreeEnergy(prefixReference)
			if err != nil {
				return nil, err
			}
			report.Results = res
			f0 = res.FreeEnergy
		} else {
			f0 = *s.spec.F0
			report.Results.FreeEnergy = f0
		}
		pairs, err := LoadScalingPairs(s.state.WorkDir, s.spec.NSims)
		if err != nil {
			return nil, err
		}
		sweep, err := IntegrateScaling(pairs, f0, s.spec.Temperature)
		if err != nil {
			return nil, err
		}
		if err := WriteSweep(s.path(SweepFile), sweep); err != nil {
			return nil, fmt.Errorf("writing sweep: %w", err)
		}
		last := sweep.Points[len(sweep.Points)-1]
		report.Results.SweepFile = SweepFile
		report.Results.FreeEnergyEnd = &last.FreeEnergy
		if !s.spec.NeedsReferenceSwitch() {
			report.Results.LowConfidence = !sweep.ErrorDefined
			if sweep.ErrorDefined {
				report.Results.Error = &last.Error
			}
		}
	}
	return report, nil
}
