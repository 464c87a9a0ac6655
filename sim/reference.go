package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Physical constants, SI unless noted.
const (
	Planck      = 6.62607015e-34    // J s
	BoltzmannSI = 1.380649e-23      // J/K
	AtomicMass  = 1.66053906660e-27 // kg
	Boltzmann   = 8.617333262e-5    // eV/K
)

// ThermalWavelength returns the de Broglie wavelength in Å for a particle of
// mass (amu) at temperature T.
func ThermalWavelength(temperature, mass float64) float64 {
	m := mass * AtomicMass
	lambda := Planck / math.Sqrt(2*math.Pi*m*BoltzmannSI*temperature)
	return lambda * 1e10
}

// IdealGasFreeEnergy returns the Helmholtz free energy per atom (eV) of an
// ideal-gas mixture of n atoms at number density rho (Å^-3):
//
//	F/N = kT [ Σ x_i ln(ρ Λ_i³) + Σ x_i ln x_i − 1 + ln(2πN)/(2N) ]
//
// Species with zero concentration do not contribute to the mixing term.
func IdealGasFreeEnergy(temperature, rho float64, n int, masses, concentration []float64) (float64, error) {
	if temperature <= 0 || rho <= 0 || n <= 0 {
		return 0, &OutOfRangeReference{Quantity: "ideal gas temperature*density*atoms", Value: temperature * rho * float64(n), Min: 0, Max: math.Inf(1)}
	}
	if len(masses) != len(concentration) {
		return 0, fmt.Errorf("ideal gas: %d masses for %d concentrations", len(masses), len(concentration))
	}
	kt := Boltzmann * temperature
	var sum float64
	for i, x := range concentration {
		if x <= 0 {
			continue
		}
		lambda := ThermalWavelength(temperature, masses[i])
		sum += x * math.Log(rho*lambda*lambda*lambda)
		sum += x * math.Log(x)
	}
	nf := float64(n)
	return kt * (sum - 1 + math.Log(2*math.Pi*nf)/(2*nf)), nil
}

// UFModel is the Uhlenbeck-Ford pair model
// φ(r) = -p kT ln(1 - exp(-r²/σ²)).
//
// The excess free energy is kT Σ cₙ x^{αₙ}/αₙ. Without Exponents this is the
// virial series (cₙ = B̃_{n+1}, αₙ = n), trusted only while its last term
// stays below SeriesTol kT. With Exponents it is a fitted form valid up to
// MaxX.
type UFModel struct {
	P     float64
	Sigma float64
	// Coefficients are cₙ. When empty, B̃2 and B̃3 are computed from P.
	Coefficients []float64
	Exponents    []float64
	SeriesTol    float64 // kT per atom
	MaxX         float64
}

// NewUFModel builds a model from configuration, filling defaults.
func NewUFModel(ref UFReference) UFModel {
	m := UFModel{
		P:            ref.P,
		Sigma:        ref.Sigma,
		Coefficients: ref.Coefficients,
		Exponents:    ref.Exponents,
		SeriesTol:    ref.SeriesTol,
		MaxX:         ref.MaxX,
	}
	if m.P == 0 {
		m.P = 50
	}
	if m.Sigma == 0 {
		m.Sigma = 1.5
	}
	if m.MaxX == 0 {
		m.MaxX = 1.0
	}
	if m.SeriesTol == 0 {
		m.SeriesTol = 0.01
	}
	return m
}

// Fitted reports whether the model uses a fitted form instead of the virial
// series.
func (m UFModel) Fitted() bool { return len(m.Exponents) > 0 }

// Epsilon is the pair energy scale p·kB·T in eV.
func (m UFModel) Epsilon(temperature float64) float64 {
	return m.P * Boltzmann * temperature
}

// B2Volume returns b2 = ½(πσ²)^{3/2}, the volume that reduces density to x.
func (m UFModel) B2Volume() float64 {
	return 0.5 * math.Pow(math.Pi*m.Sigma*m.Sigma, 1.5)
}

// ReducedDensity returns x = b2·ρ.
func (m UFModel) ReducedDensity(rho float64) float64 {
	return m.B2Volume() * rho
}

// terms returns the coefficients and exponents of the free energy series.
func (m UFModel) terms() ([]float64, []float64, error) {
	coeffs := m.Coefficients
	if len(coeffs) == 0 {
		if m.Fitted() {
			return nil, nil, fmt.Errorf("uhlenbeck-ford fit has %d exponents but no coefficients", len(m.Exponents))
		}
		coeffs = ReducedVirialCoefficients(m.P)
	}
	if m.Fitted() {
		if len(m.Exponents) != len(coeffs) {
			return nil, nil, fmt.Errorf("uhlenbeck-ford fit has %d coefficients for %d exponents", len(coeffs), len(m.Exponents))
		}
		return coeffs, m.Exponents, nil
	}
	exps := make([]float64, len(coeffs))
	for i := range exps {
		exps[i] = float64(i + 1)
	}
	return coeffs, exps, nil
}

// seriesLimit is the reduced density at which the last virial term reaches
// tol kT.
func seriesLimit(coeffs, exps []float64, tol float64) float64 {
	k := len(coeffs) - 1
	last := math.Abs(coeffs[k])
	if last == 0 {
		return math.Inf(1)
	}
	return math.Pow(tol*exps[k]/last, 1/exps[k])
}

// DomainLimit returns the largest reduced density at which the model is
// trusted.
func (m UFModel) DomainLimit() (float64, error) {
	coeffs, exps, err := m.terms()
	if err != nil {
		return 0, err
	}
	if m.Fitted() {
		return m.MaxX, nil
	}
	return math.Min(m.MaxX, seriesLimit(coeffs, exps, m.SeriesTol)), nil
}

// UhlenbeckFordFreeEnergy returns the excess free energy per atom (eV) of
// the UF fluid at density rho (Å^-3), kT Σ cₙ x^{αₙ}/αₙ.
func UhlenbeckFordFreeEnergy(temperature, rho float64, m UFModel) (float64, error) {
	if temperature <= 0 {
		return 0, &OutOfRangeReference{Quantity: "temperature", Value: temperature, Min: 0, Max: math.Inf(1)}
	}
	coeffs, exps, err := m.terms()
	if err != nil {
		return 0, err
	}
	x := m.ReducedDensity(rho)
	limit, reason := m.MaxX, ""
	if !m.Fitted() {
		if sl := seriesLimit(coeffs, exps, m.SeriesTol); sl < limit {
			limit = sl
			reason = fmt.Sprintf("virial series of %d terms exceeds %g kT truncation error; configure a fitted form", len(coeffs), m.SeriesTol)
		}
	}
	if x <= 0 || x > limit {
		return 0, &OutOfRangeReference{Quantity: "reduced density x", Value: x, Min: 0, Max: limit, Reason: reason}
	}
	var sum float64
	for i, c := range coeffs {
		a := exps[i]
		sum += c * math.Pow(x, a) / a
	}
	return Boltzmann * temperature * sum, nil
}

// ufMayer is the Mayer function of the UF model in units where σ = 1.
func ufMayer(p, r float64) float64 {
	return math.Pow(1-math.Exp(-r*r), p) - 1
}

// mayerCutoff is the distance beyond which |f| < 1e-16 (σ = 1).
func mayerCutoff(p float64) float64 {
	return math.Sqrt(math.Log(math.Max(p, 1) * 1e16))
}

const virialNodes = 96

// ReducedVirialCoefficients returns B̃2 and B̃3 of the UF model with
// exponent p, i.e. B_n / b2^{n-1}. They do not depend on σ.
func ReducedVirialCoefficients(p float64) []float64 {
	rmax := mayerCutoff(p)
	f := func(r float64) float64 { return ufMayer(p, r) }

	b2 := 0.5 * math.Pow(math.Pi, 1.5)

	// B2 = -2π ∫ f(r) r² dr
	B2 := -2 * math.Pi * quad.Fixed(func(r float64) float64 { return f(r) * r * r }, 0, rmax, virialNodes, quad.Legendre{}, 0)

	// B3 = -(8π²/3) ∫∫∫ r s t f(r) f(s) f(t), t ∈ [|r-s|, r+s]
	inner := func(r, s float64) float64 {
		lo, hi := math.Abs(r-s), math.Min(r+s, rmax)
		if lo >= hi {
			return 0
		}
		return quad.Fixed(func(t float64) float64 { return t * f(t) }, lo, hi, virialNodes, quad.Legendre{}, 0)
	}
	// inner has a kink at s = r, so the s integral is split there.
	middle := func(r float64) float64 {
		g := func(s float64) float64 { return s * f(s) * inner(r, s) }
		return quad.Fixed(g, 0, r, virialNodes, quad.Legendre{}, 0) +
			quad.Fixed(g, r, rmax, virialNodes, quad.Legendre{}, 0)
	}
	B3 := -8 * math.Pi * math.Pi / 3 * quad.Fixed(func(r float64) float64 { return r * f(r) * middle(r) }, 0, rmax, virialNodes, quad.Legendre{}, 0)

	return []float64{B2 / b2, B3 / (b2 * b2)}
}
