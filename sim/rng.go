package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === CalculationKey ===

// CalculationKey uniquely identifies a reproducible calculation. Two runs
// with the same key and configuration hand the engine identical seeds.
type CalculationKey int64

// NewCalculationKey derives the key of a calculation from the campaign seed
// and the calculation identifier, so calculations sharing a seed still get
// independent streams.
func NewCalculationKey(seed int64, id string) CalculationKey {
	return CalculationKey(seed ^ fnv1a64(id))
}

// === Subsystem Constants ===

const (
	// SubsystemVelocity seeds initial velocity draws.
	SubsystemVelocity = "velocity"

	// SubsystemThermostat seeds stochastic thermostats.
	SubsystemThermostat = "thermostat"
)

// SubsystemRepeat returns the subsystem name for switching repeat i.
func SubsystemRepeat(i int) string {
	return fmt.Sprintf("repeat_%d", i)
}

// maxEngineSeed bounds seeds handed to the engine, which rejects zero and
// very large values.
const maxEngineSeed = 900000

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: key XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Each calculation owns its own instance.
type PartitionedRNG struct {
	key        CalculationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a CalculationKey.
func NewPartitionedRNG(key CalculationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// EngineSeed draws the next engine seed, in [1, 900000], from a subsystem.
func (p *PartitionedRNG) EngineSeed(name string) int64 {
	return p.ForSubsystem(name).Int63n(maxEngineSeed) + 1
}

// Key returns the CalculationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() CalculationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
