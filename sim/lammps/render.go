// Package lammps drives a LAMMPS process with the engine directives of the
// sim package.
//
// Pair terms are always installed under pair_style hybrid/scaled with one
// scale variable per term. Ramps and ScalePair rewrite those variables, so a
// scale set by a switch stays in effect until the next redefinition.
package lammps

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tint-sim/tint/sim"
)

// latticeKeywords maps configuration lattice names to LAMMPS keywords.
var latticeKeywords = map[string]string{
	"bcc":     "bcc",
	"fcc":     "fcc",
	"hcp":     "hcp",
	"dia":     "diamond",
	"diamond": "diamond",
	"sc":      "sc",
}

// assignment is a deferred "variable name equal value" line.
type assignment struct {
	name  string
	value float64
}

// Renderer converts directives into LAMMPS input lines. It keeps the state
// needed to resolve names across directives of one session: the installed
// pair terms, multi-fix thermostats, live ramps and thermo variables.
type Renderer struct {
	pot     *sim.SetPotential
	fixes   map[string][]string
	ramps   map[string][]assignment
	lambdas map[string]float64
	thermo  []string
}

// NewRenderer returns a renderer for a fresh engine instance.
func NewRenderer() *Renderer {
	return &Renderer{
		fixes:   make(map[string][]string),
		ramps:   make(map[string][]assignment),
		lambdas: make(map[string]float64),
	}
}

// Render returns the input lines of d.
func (r *Renderer) Render(d sim.Directive) ([]string, error) {
	switch d := d.(type) {
	case sim.Init:
		return []string{
			"units metal",
			"boundary p p p",
			"atom_style atomic",
			"timestep " + num(d.Timestep),
			"thermo 1000",
		}, nil
	case sim.SetLattice:
		return r.lattice(d)
	case sim.ReadConfiguration:
		return []string{"read_data " + d.File}, nil
	case sim.RemapBox:
		b := d.Box
		return []string{fmt.Sprintf("change_box all x final 0 %s y final 0 %s z final 0 %s remap units box", num(b.Lx), num(b.Ly), num(b.Lz))}, nil
	case sim.SetPotential:
		return r.potential(d)
	case sim.SetVelocity:
		return []string{fmt.Sprintf("velocity all create %s %d mom yes rot yes dist gaussian", num(d.Temperature), d.Seed)}, nil
	case sim.ApplyThermostat:
		return r.thermostat(d)
	case sim.Unfix:
		return r.unfix(d.ID)
	case sim.Run:
		return []string{"run " + strconv.Itoa(d.Steps)}, nil
	case sim.Dump:
		return dump(d)
	case sim.Compute:
		return r.compute(d)
	case sim.WriteSeries:
		return r.series(d)
	case sim.Ramp:
		return r.ramp(d)
	case sim.ScalePair:
		v, err := r.scaleVar(d.Term)
		if err != nil {
			return nil, err
		}
		r.fixes[d.ID] = nil
		return []string{fmt.Sprintf("variable %s equal %s", v, num(d.Factor))}, nil
	}
	return nil, fmt.Errorf("unsupported directive %T", d)
}

func (r *Renderer) lattice(d sim.SetLattice) ([]string, error) {
	kw, ok := latticeKeywords[strings.ToLower(d.Lattice)]
	if !ok {
		return nil, fmt.Errorf("unknown lattice %q", d.Lattice)
	}
	return []string{
		fmt.Sprintf("lattice %s %s", kw, num(d.Constant)),
		fmt.Sprintf("region box block 0 %d 0 %d 0 %d", d.Repeat[0], d.Repeat[1], d.Repeat[2]),
		fmt.Sprintf("create_box %d box", max(d.NElements, 1)),
		"create_atoms 1 box",
	}, nil
}

// styleName is the sub-style keyword of a pair_style argument string.
func styleName(style string) string {
	if f := strings.Fields(style); len(f) > 0 {
		return f[0]
	}
	return style
}

// termKeywords returns the hybrid keyword of every pair term. Repeated
// styles are told apart by their 1-based occurrence, as LAMMPS requires.
func termKeywords(pairs []sim.PairPotential) []string {
	count := make(map[string]int)
	for _, p := range pairs {
		count[styleName(p.Style)]++
	}
	seen := make(map[string]int)
	out := make([]string, len(pairs))
	for i, p := range pairs {
		name := styleName(p.Style)
		out[i] = name
		if count[name] > 1 {
			seen[name]++
			out[i] = fmt.Sprintf("%s %d", name, seen[name])
		}
	}
	return out
}

func (r *Renderer) potential(d sim.SetPotential) ([]string, error) {
	if len(d.Pairs) == 0 {
		return nil, fmt.Errorf("potential without pair terms")
	}
	r.pot = &d
	keys := termKeywords(d.Pairs)
	var lines []string
	style := []string{"pair_style hybrid/scaled"}
	for i, p := range d.Pairs {
		lines = append(lines, fmt.Sprintf("variable %s equal 1", termVar(i)))
		style = append(style, "v_"+termVar(i), p.Style)
	}
	if d.Reference != nil {
		lines = append(lines, fmt.Sprintf("variable %s equal 1", termVar(sim.ReferenceTerm)))
		style = append(style, "v_"+termVar(sim.ReferenceTerm), "ufm", num(d.Reference.Cutoff))
	}
	lines = append(lines, strings.Join(style, " "))
	for i, p := range d.Pairs {
		f := strings.Fields(p.Coeff)
		if len(f) < 2 {
			return nil, fmt.Errorf("pair_coeff %q needs at least two type fields", p.Coeff)
		}
		coeff := append([]string{"pair_coeff", f[0], f[1], keys[i]}, f[2:]...)
		lines = append(lines, strings.Join(coeff, " "))
	}
	if d.Reference != nil {
		lines = append(lines, fmt.Sprintf("pair_coeff * * ufm %s %s", num(d.Reference.Epsilon), num(d.Reference.Sigma)))
	}
	for i, m := range d.Masses {
		lines = append(lines, fmt.Sprintf("mass %d %s", i+1, num(m)))
	}
	return append(lines, "neigh_modify delay 0"), nil
}

func termVar(term int) string {
	if term == sim.ReferenceTerm {
		return "tint_sref"
	}
	return fmt.Sprintf("tint_s%d", term)
}

func (r *Renderer) scaleVar(term int) (string, error) {
	if r.pot == nil {
		return "", fmt.Errorf("pair term %d scaled before a potential was set", term)
	}
	if term == sim.ReferenceTerm {
		if r.pot.Reference == nil {
			return "", fmt.Errorf("potential has no reference term")
		}
		return termVar(term), nil
	}
	if term < 0 || term >= len(r.pot.Pairs) {
		return "", fmt.Errorf("pair term %d out of range [0,%d)", term, len(r.pot.Pairs))
	}
	return termVar(term), nil
}

// pairCompute is the compute ID of the energy of one pair term.
func (r *Renderer) pairCompute(term int) (string, string, error) {
	if _, err := r.scaleVar(term); err != nil {
		return "", "", err
	}
	if term == sim.ReferenceTerm {
		return "tint_pref", "compute tint_pref all pair ufm", nil
	}
	id := fmt.Sprintf("tint_p%d", term)
	return id, fmt.Sprintf("compute %s all pair %s", id, termKeywords(r.pot.Pairs)[term]), nil
}

func (r *Renderer) thermostat(d sim.ApplyThermostat) ([]string, error) {
	t0, t1, damp := num(d.TStart), num(d.TStop), num(d.Damp)
	baro := func(b *sim.Barostat) string {
		c := "aniso"
		if b.Coupling == sim.Iso {
			c = "iso"
		}
		return fmt.Sprintf("%s %s %s %s", c, num(b.Pressure), num(b.Pressure), num(b.Damp))
	}
	switch d.Kind {
	case sim.NVE:
		r.fixes[d.ID] = []string{d.ID}
		return []string{fmt.Sprintf("fix %s all nve", d.ID)}, nil
	case sim.NoseHoover:
		r.fixes[d.ID] = []string{d.ID}
		if d.Barostat != nil {
			return []string{fmt.Sprintf("fix %s all npt temp %s %s %s %s", d.ID, t0, t1, damp, baro(d.Barostat))}, nil
		}
		return []string{fmt.Sprintf("fix %s all nvt temp %s %s %s", d.ID, t0, t1, damp)}, nil
	case sim.Langevin:
		if d.Seed <= 0 {
			return nil, fmt.Errorf("langevin fix %s needs a positive seed", d.ID)
		}
		lgv := fmt.Sprintf("fix %s all langevin %s %s %s %d zero yes", d.ID, t0, t1, damp, d.Seed)
		if d.Barostat == nil {
			r.fixes[d.ID] = []string{d.ID}
			return []string{lgv}, nil
		}
		nph := d.ID + "_nph"
		r.fixes[d.ID] = []string{nph, d.ID}
		return []string{fmt.Sprintf("fix %s all nph %s", nph, baro(d.Barostat)), lgv}, nil
	}
	return nil, fmt.Errorf("unknown thermostat kind %d", d.Kind)
}

func (r *Renderer) unfix(id string) ([]string, error) {
	if finals, ok := r.ramps[id]; ok {
		delete(r.ramps, id)
		lines := make([]string, 0, len(finals))
		for _, a := range finals {
			if _, isLambda := r.lambdas[a.name]; isLambda {
				r.lambdas[a.name] = a.value
			}
			lines = append(lines, fmt.Sprintf("variable %s equal %s", a.name, num(a.value)))
		}
		return lines, nil
	}
	fixes, ok := r.fixes[id]
	if !ok {
		return nil, fmt.Errorf("unfix of unknown id %q", id)
	}
	delete(r.fixes, id)
	lines := make([]string, 0, len(fixes))
	for _, f := range fixes {
		lines = append(lines, "unfix "+f)
	}
	return lines, nil
}

var quantityFormula = map[sim.Quantity]string{
	sim.QuantityPressure:      "press",
	sim.QuantityVolume:        "vol",
	sim.QuantityLx:            "lx",
	sim.QuantityLy:            "ly",
	sim.QuantityLz:            "lz",
	sim.QuantityEnergyPerAtom: "pe/atoms",
}

func (r *Renderer) compute(d sim.Compute) ([]string, error) {
	var lines []string
	formula, ok := quantityFormula[d.Quantity]
	if d.Quantity == sim.QuantityPairDifference {
		a, ca, err := r.pairCompute(d.Terms[0])
		if err != nil {
			return nil, err
		}
		b, cb, err := r.pairCompute(d.Terms[1])
		if err != nil {
			return nil, err
		}
		lines = append(lines, ca, cb)
		formula = fmt.Sprintf("(c_%s-c_%s)/atoms", b, a)
	} else if !ok {
		return nil, fmt.Errorf("unknown quantity %d", d.Quantity)
	}
	lines = append(lines, fmt.Sprintf("variable %s equal %s", d.Name, formula))
	// Computes referenced between runs must be current, so every
	// observable is carried in the thermo output.
	r.thermo = append(r.thermo, "v_"+d.Name)
	lines = append(lines, "thermo_style custom step temp pe press "+strings.Join(r.thermo, " "))
	return lines, nil
}

func (r *Renderer) ramp(d sim.Ramp) ([]string, error) {
	if d.Lambda == "" {
		return nil, fmt.Errorf("ramp %s has no lambda name", d.ID)
	}
	lines := []string{fmt.Sprintf("variable %s equal ramp(%s,%s)", d.Lambda, num(d.From), num(d.To))}
	finals := []assignment{{name: d.Lambda, value: d.To}}
	for _, st := range d.Scale {
		v, err := r.scaleVar(st.Term)
		if err != nil {
			return nil, err
		}
		expr, final := "v_"+d.Lambda, d.To
		if st.Complement {
			expr, final = "1-v_"+d.Lambda, 1-d.To
		}
		lines = append(lines, fmt.Sprintf("variable %s equal %s", v, expr))
		finals = append(finals, assignment{name: v, value: final})
	}
	r.ramps[d.ID] = finals
	r.lambdas[d.Lambda] = d.From
	return lines, nil
}

func (r *Renderer) series(d sim.WriteSeries) ([]string, error) {
	if len(d.Columns) == 0 || d.Every <= 0 {
		return nil, fmt.Errorf("series %s needs columns and a positive interval", d.ID)
	}
	r.fixes[d.ID] = []string{d.ID}
	if d.Average {
		if d.Repeat <= 0 {
			return nil, fmt.Errorf("averaged series %s needs a positive repeat", d.ID)
		}
		vars := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			vars[i] = "v_" + c
		}
		return []string{fmt.Sprintf("fix %s all ave/time %d %d %d %s file %s",
			d.ID, d.Every, d.Repeat, d.Every*d.Repeat, strings.Join(vars, " "), d.File)}, nil
	}
	// ramp() cannot be evaluated between runs; the first row uses the
	// current constant value of each lambda.
	first := make([]string, len(d.Columns))
	live := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		live[i] = "${" + c + "}"
		first[i] = live[i]
		if v, ok := r.lambdas[c]; ok {
			first[i] = num(v)
		}
	}
	return []string{
		fmt.Sprintf(`print "%s" file %s screen no`, strings.Join(first, " "), d.File),
		fmt.Sprintf(`fix %s all print %d "%s" screen no append %s`, d.ID, d.Every, strings.Join(live, " "), d.File),
	}, nil
}

func dump(d sim.Dump) ([]string, error) {
	switch d.Format {
	case sim.DumpXYZ:
		line := "write_dump all xyz " + d.File
		if len(d.Elements) > 0 {
			line += " modify element " + strings.Join(d.Elements, " ")
		}
		return []string{line}, nil
	case sim.DumpData:
		return []string{"write_data " + d.File}, nil
	}
	return nil, fmt.Errorf("unknown dump format %d", d.Format)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
