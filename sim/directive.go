package sim

// Directive is one typed instruction for the simulation engine. The set is
// closed; adapters switch over the concrete types.
type Directive interface {
	directive()
}

// Init sets units, boundaries and the integration timestep.
type Init struct {
	Timestep float64
}

// SetLattice builds the initial structure from a lattice keyword.
type SetLattice struct {
	Lattice   string
	Constant  float64
	Repeat    [3]int
	NElements int
}

// ReadConfiguration loads a structure from a data file.
type ReadConfiguration struct {
	File      string
	NElements int
}

// RemapBox rescales the cell to the given edge lengths.
type RemapBox struct {
	Box Box
}

// SetPotential installs the interaction model. With Reference set, the UF
// reference is overlaid on the pairs with the given epsilon and sigma.
type SetPotential struct {
	Pairs     []PairPotential
	Reference *UFPair
	Masses    []float64
}

// UFPair is the engine-facing form of the Uhlenbeck-Ford reference.
type UFPair struct {
	Epsilon float64
	Sigma   float64
	Cutoff  float64
}

// SetVelocity draws velocities from a Maxwell-Boltzmann distribution.
type SetVelocity struct {
	Temperature float64
	Seed        int64
}

// ThermostatKind selects the integrator of ApplyThermostat.
type ThermostatKind int

const (
	NVE ThermostatKind = iota
	NoseHoover
	Langevin
)

// Coupling of the barostat to the cell dimensions.
type Coupling int

const (
	Iso Coupling = iota
	Aniso
)

// Barostat couples the cell to a target pressure.
type Barostat struct {
	Pressure float64
	Damp     float64
	Coupling Coupling
}

// ApplyThermostat adds an integrator fix. A Langevin thermostat with a
// Barostat integrates NPH with stochastic temperature control.
type ApplyThermostat struct {
	ID       string
	Kind     ThermostatKind
	TStart   float64
	TStop    float64
	Damp     float64
	Seed     int64
	Barostat *Barostat
}

// Unfix removes a previously applied fix or series.
type Unfix struct {
	ID string
}

// Run advances the dynamics.
type Run struct {
	Steps int
}

// DumpFormat of a configuration dump.
type DumpFormat int

const (
	DumpXYZ DumpFormat = iota
	DumpData
)

// Dump writes the current configuration. Elements name the atom types in
// XYZ output.
type Dump struct {
	File     string
	Format   DumpFormat
	Elements []string
}

// Quantity is an observable the engine can evaluate.
type Quantity int

const (
	QuantityPressure Quantity = iota
	QuantityVolume
	QuantityLx
	QuantityLy
	QuantityLz
	QuantityEnergyPerAtom
	// QuantityPairDifference is (U_B - U_A)/N between the two pair terms of
	// a switching run.
	QuantityPairDifference
)

// Compute declares a named observable. Terms selects the A and B pair terms
// of QuantityPairDifference, as in ScaledTerm.
type Compute struct {
	Name     string
	Quantity Quantity
	Terms    [2]int
}

// WriteSeries records named observables to a column file. With Average
// set, Every*Repeat steps are averaged into one row; otherwise one row is
// written every Every steps. Series whose columns include a Ramp lambda are
// appended to File.
type WriteSeries struct {
	ID      string
	File    string
	Columns []string
	Every   int
	Repeat  int
	Average bool
}

// Ramp linearly moves the named lambda from From to To over the next Run.
// Each pair term is scaled by lambda, or by 1-lambda when Complement is set.
// The final scale persists after Unfix.
type Ramp struct {
	ID     string
	Lambda string
	From   float64
	To     float64
	Scale  []ScaledTerm
}

// ScaledTerm selects a pair term, by index into SetPotential.Pairs (or -1
// for the UF reference), that a Ramp scales.
type ScaledTerm struct {
	Term       int
	Complement bool
}

// ScalePair sets the scale of a pair term to Factor at the next Run. The
// scale persists after Unfix.
type ScalePair struct {
	ID     string
	Term   int
	Factor float64
}

// ReferenceTerm is the ScaledTerm index of the UF reference.
const ReferenceTerm = -1

func (Init) directive()              {}
func (SetLattice) directive()        {}
func (ReadConfiguration) directive() {}
func (RemapBox) directive()          {}
func (SetPotential) directive()      {}
func (SetVelocity) directive()       {}
func (ApplyThermostat) directive()   {}
func (Unfix) directive()             {}
func (Run) directive()               {}
func (Dump) directive()              {}
func (Compute) directive()           {}
func (WriteSeries) directive()       {}
func (Ramp) directive()              {}
func (ScalePair) directive()         {}
