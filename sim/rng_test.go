package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// === SimulationKey Tests ===

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: Same key+name produces same sequence
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))

	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(SubsystemChannel).Float64()
		v2 := rng2.ForSubsystem(SubsystemChannel).Float64()
		if v1 != v2 {
			t.Errorf("Value %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// BDD: Drawing from the workload stream doesn't shift the channel stream
	rngA := NewPartitionedRNG(NewSimulationKey(42))
	rngB := NewPartitionedRNG(NewSimulationKey(42))

	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemWorkload).Float64()
	}

	aFirst := rngA.ForSubsystem(SubsystemChannel).Float64()
	bFirst := rngB.ForSubsystem(SubsystemChannel).Float64()

	if aFirst != bFirst {
		t.Errorf("channel stream moved after workload draws: %v vs %v", aFirst, bFirst)
	}
}

func TestPartitionedRNG_WorkloadUsesSeedDirectly(t *testing.T) {
	// BDD: --seed alone reproduces the arrival pattern of a plain rand.Rand
	rng := NewPartitionedRNG(NewSimulationKey(42))
	direct := newRandFromSeed(42)

	for i := 0; i < 5; i++ {
		got := rng.ForSubsystem(SubsystemWorkload).Float64()
		want := direct.Float64()
		if got != want {
			t.Errorf("draw %d: got %v, want %v", i, got, want)
		}
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	assert.Same(t, rng.ForSubsystem(SubsystemChannel), rng.ForSubsystem(SubsystemChannel))
}

func TestPartitionedRNG_Key(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(12345))
	if rng.Key() != 12345 {
		t.Errorf("Key() = %d, want 12345", rng.Key())
	}
}

func TestPartitionedRNG_DistinctSubsystemsDiffer(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(0))
	w := rng.ForSubsystem(SubsystemWorkload).Float64()
	c := rng.ForSubsystem(SubsystemChannel).Float64()

	assert.NotEqual(t, w, c)
}

func TestFnv1a64_Deterministic(t *testing.T) {
	assert.Equal(t, fnv1a64("channel"), fnv1a64("channel"))
	assert.NotEqual(t, fnv1a64("channel"), fnv1a64("workload"))
}

// === Calibration Tests ===

type constantSource float64

func (c constantSource) Float64() float64 { return float64(c) }

func TestCalibrate_AcceptsUniformSource(t *testing.T) {
	for _, seed := range []int64{0, 1, 42, -7, math.MaxInt64} {
		rng := NewPartitionedRNG(NewSimulationKey(seed))
		assert.NoError(t, CalibrateStreams(rng), "seed %d", seed)
	}
}

func TestPartitionedRNG_FreshMatchesStreamStart(t *testing.T) {
	// GIVEN a cached channel stream that has already been drawn from
	rng := NewPartitionedRNG(NewSimulationKey(42))
	first := rng.ForSubsystem(SubsystemChannel).Float64()

	// WHEN a fresh copy of the same stream is taken
	fresh := rng.Fresh(SubsystemChannel)

	// THEN it restarts at the stream's first value and is a separate instance
	assert.Equal(t, first, fresh.Float64())
	assert.NotSame(t, rng.ForSubsystem(SubsystemChannel), fresh)
}

func TestCalibrateStreams_ChecksTheRunStreamsWithoutConsumingThem(t *testing.T) {
	// GIVEN a partitioned RNG and an untouched twin of it
	rng := NewPartitionedRNG(NewSimulationKey(42))
	twin := NewPartitionedRNG(NewSimulationKey(42))

	// WHEN the run streams are calibrated
	require.NoError(t, CalibrateStreams(rng))

	// THEN the workload and channel streams still start where the twin's do
	for _, name := range []string{SubsystemWorkload, SubsystemChannel} {
		assert.Equal(t, twin.ForSubsystem(name).Float64(), rng.ForSubsystem(name).Float64(), name)
	}
	// AND the workload stream is still the plain seeded generator
	assert.Equal(t, newRandFromSeed(42).Float64(), NewPartitionedRNG(NewSimulationKey(42)).Fresh(SubsystemWorkload).Float64())
}

func TestCalibrate_RejectsSkewedSource(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		ok    bool
	}{
		{"stuck at zero", 0, false},
		{"stuck near one", 0.99, false},
		{"just below lower bound", 0.2499, false},
		{"lower bound inclusive", 0.25, true},
		{"upper bound inclusive", 0.75, true},
		{"just above upper bound", 0.7501, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Calibrate(constantSource(tt.value))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrRNGCalibration), "got %v", err)
		})
	}
}

func BenchmarkPartitionedRNG_ForSubsystem_CacheHit(b *testing.B) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	rng.ForSubsystem(SubsystemChannel)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rng.ForSubsystem(SubsystemChannel)
	}
}
