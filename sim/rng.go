package sim

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// RandomSource yields uniform samples in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical event traces.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemWorkload drives application-layer arrivals.
	// Uses master seed directly so --seed alone reproduces the arrival pattern.
	SubsystemWorkload = "workload"

	// SubsystemChannel drives loss, delay and corruption draws.
	SubsystemChannel = "channel"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemWorkload: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Isolation means changing the loss probability does not shift the arrival times.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := p.Fresh(name)
	p.subsystems[name] = rng
	return rng
}

// Fresh returns a new, uncached RNG positioned at the start of the named
// subsystem's stream. Drawing from it leaves ForSubsystem's instance untouched.
func (p *PartitionedRNG) Fresh(name string) *rand.Rand {
	return rand.New(rand.NewSource(p.derivedSeed(name)))
}

func (p *PartitionedRNG) derivedSeed(name string) int64 {
	if name == SubsystemWorkload {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// === Calibration ===

const (
	calibrationSamples = 1000
	calibrationMinMean = 0.25
	calibrationMaxMean = 0.75
)

// ErrRNGCalibration means the random source does not look uniform on [0,1),
// so channel probabilities would not mean what the caller asked for.
var ErrRNGCalibration = errors.New("random source failed calibration")

// CalibrateStreams runs Calibrate over a fresh copy of every stream the run
// draws from, so the checked samples are the ones the run will see.
func CalibrateStreams(p *PartitionedRNG) error {
	for _, name := range []string{SubsystemWorkload, SubsystemChannel} {
		if err := Calibrate(p.Fresh(name)); err != nil {
			return fmt.Errorf("%s stream: %w", name, err)
		}
	}
	return nil
}

// Calibrate draws 1000 samples from src and checks that their mean lies in [0.25, 0.75].
func Calibrate(src RandomSource) error {
	samples := make([]float64, calibrationSamples)
	for i := range samples {
		samples[i] = src.Float64()
	}
	mean := stat.Mean(samples, nil)
	if mean < calibrationMinMean || mean > calibrationMaxMean {
		return fmt.Errorf("%w: mean of %d samples is %.4f, want within [%.2f, %.2f]",
			ErrRNGCalibration, calibrationSamples, mean, calibrationMinMean, calibrationMaxMean)
	}
	return nil
}
