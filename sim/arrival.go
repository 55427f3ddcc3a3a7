package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// InterarrivalSampler draws the gap between consecutive application messages.
type InterarrivalSampler interface {
	// Sample returns the next inter-arrival time in simulation time units (>= 0).
	Sample(rng RandomSource) float64
}

// UniformSampler draws inter-arrival times uniform on [0, 2*Mean), so the mean is Mean.
type UniformSampler struct {
	Mean float64
}

func (s UniformSampler) Sample(rng RandomSource) float64 {
	return s.Mean * rng.Float64() * 2
}

// ExponentialSampler draws exponentially distributed gaps with the given mean.
type ExponentialSampler struct {
	Mean float64
}

func (s ExponentialSampler) Sample(rng RandomSource) float64 {
	return -s.Mean * math.Log(1-rng.Float64())
}

// ArrivalGenerator feeds application messages into the simulation, one future
// FromAppLayer event at a time, until MaxMessages have been produced.
type ArrivalGenerator struct {
	cfg     WorkloadConfig
	clock   *SimClock
	queue   *EventQueue
	rng     RandomSource
	sampler InterarrivalSampler

	generated int
}

// NewArrivalGenerator creates a generator. rng should be the workload subsystem stream.
func NewArrivalGenerator(cfg WorkloadConfig, clock *SimClock, queue *EventQueue, rng RandomSource) *ArrivalGenerator {
	return &ArrivalGenerator{
		cfg:     cfg,
		clock:   clock,
		queue:   queue,
		rng:     rng,
		sampler: cfg.Sampler(),
	}
}

// Generated returns how many messages have been handed out so far.
func (g *ArrivalGenerator) Generated() int {
	return g.generated
}

// Start schedules the first arrival. It does nothing when MaxMessages is zero.
func (g *ArrivalGenerator) Start() {
	if g.cfg.MaxMessages <= 0 {
		return
	}
	g.scheduleNext()
}

// OnArrival does the bookkeeping for a popped FromAppLayer event and returns the
// message to hand to the target entity. It returns false once MaxMessages is reached.
func (g *ArrivalGenerator) OnArrival() (Message, bool) {
	if g.generated >= g.cfg.MaxMessages {
		return Message{}, false
	}
	if g.generated+1 < g.cfg.MaxMessages {
		g.scheduleNext()
	}
	msg := MessageFor(g.generated)
	g.generated++
	logrus.Debugf("[t=%.4f] application produced message %d %q", g.clock.Now(), g.generated, msg.String())
	return msg, true
}

func (g *ArrivalGenerator) scheduleNext() {
	gap := g.sampler.Sample(g.rng)
	target := EntityA
	if g.cfg.Bidirectional && g.rng.Float64() > 0.5 {
		target = EntityB
	}
	g.queue.Insert(&Event{
		Time:   g.clock.Now() + gap,
		Kind:   FromAppLayer,
		Entity: target,
	})
}

// MessageFor builds the i-th application message: the (i mod 26)-th lowercase
// letter in bytes 0..18 followed by a NUL terminator.
func MessageFor(i int) Message {
	var m Message
	letter := byte('a' + i%26)
	for j := 0; j < MessageSize-1; j++ {
		m[j] = letter
	}
	return m
}
