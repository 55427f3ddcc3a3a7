package sim

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig wraps every Config.Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Arrival process names accepted by WorkloadConfig.Arrival.
const (
	ArrivalUniform = "uniform" // gap uniform on [0, 2*mean)
	ArrivalPoisson = "poisson" // exponential gaps with the given mean
)

// ChannelConfig groups the impairment probabilities of the channel.
type ChannelConfig struct {
	LossProb    float64 // probability a packet is dropped, in [0,1]
	CorruptProb float64 // probability a surviving packet is mangled, in [0,1]
}

// WorkloadConfig groups application-layer message generation parameters.
type WorkloadConfig struct {
	MaxMessages      int     // total messages to generate (nsimmax)
	MeanInterarrival float64 // mean gap between messages (lambda)
	Bidirectional    bool    // pick A or B uniformly for each message instead of always A
	Arrival          string  // "uniform" (default) or "poisson"
}

// Sampler returns the inter-arrival sampler selected by Arrival.
func (w WorkloadConfig) Sampler() InterarrivalSampler {
	if w.Arrival == ArrivalPoisson {
		return ExponentialSampler{Mean: w.MeanInterarrival}
	}
	return UniformSampler{Mean: w.MeanInterarrival}
}

// ProtocolConfig groups parameters shared by the reference protocol entities.
type ProtocolConfig struct {
	Name        string  // "saw" or "gbn"
	WindowSize  int     // go-back-N send window (ignored by stop-and-wait)
	Timeout     float64 // retransmission timeout in simulation time units
	MaxBuffered int     // messages a sender may queue while its window is full
}

// Config is the full configuration of one simulation run.
type Config struct {
	Seed     int64
	Horizon  float64 // stop once the clock passes this time; 0 means run until the queue drains
	Strict   bool    // make contract violations fail the run
	Channel  ChannelConfig
	Workload WorkloadConfig
	Protocol ProtocolConfig
}

// NewChannelConfig creates a ChannelConfig with all fields explicitly set.
func NewChannelConfig(lossProb, corruptProb float64) ChannelConfig {
	return ChannelConfig{LossProb: lossProb, CorruptProb: corruptProb}
}

// NewWorkloadConfig creates a unidirectional, uniform-arrival WorkloadConfig.
func NewWorkloadConfig(maxMessages int, meanInterarrival float64) WorkloadConfig {
	return WorkloadConfig{
		MaxMessages:      maxMessages,
		MeanInterarrival: meanInterarrival,
		Arrival:          ArrivalUniform,
	}
}

// NewProtocolConfig creates a ProtocolConfig with all fields explicitly set.
func NewProtocolConfig(name string, windowSize int, timeout float64, maxBuffered int) ProtocolConfig {
	return ProtocolConfig{
		Name:        name,
		WindowSize:  windowSize,
		Timeout:     timeout,
		MaxBuffered: maxBuffered,
	}
}

// Validate checks ranges that would make the run meaningless.
func (c Config) Validate() error {
	if err := checkProbability("loss probability", c.Channel.LossProb); err != nil {
		return err
	}
	if err := checkProbability("corruption probability", c.Channel.CorruptProb); err != nil {
		return err
	}
	if c.Workload.MaxMessages < 0 {
		return fmt.Errorf("%w: message count %d must be >= 0", ErrInvalidConfig, c.Workload.MaxMessages)
	}
	if math.IsNaN(c.Workload.MeanInterarrival) || math.IsInf(c.Workload.MeanInterarrival, 0) || c.Workload.MeanInterarrival < 0 {
		return fmt.Errorf("%w: mean interarrival %v must be a finite value >= 0", ErrInvalidConfig, c.Workload.MeanInterarrival)
	}
	switch c.Workload.Arrival {
	case "", ArrivalUniform, ArrivalPoisson:
	default:
		return fmt.Errorf("%w: unknown arrival process %q", ErrInvalidConfig, c.Workload.Arrival)
	}
	if math.IsNaN(c.Horizon) || c.Horizon < 0 {
		return fmt.Errorf("%w: horizon %v must be >= 0", ErrInvalidConfig, c.Horizon)
	}
	return nil
}

func checkProbability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: %s %v must be within [0, 1]", ErrInvalidConfig, name, p)
	}
	return nil
}
