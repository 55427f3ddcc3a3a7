// sim/simulator.go
package sim

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/rdtsim/rdtsim/sim/trace"
)

var (
	// ErrUnknownEventKind means a popped event carried a kind the simulator cannot dispatch.
	ErrUnknownEventKind = errors.New("unknown event kind")
	// ErrUnknownEntity means a popped event targeted neither A nor B.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrEventInPast means a popped event was stamped earlier than the current clock.
	ErrEventInPast = errors.New("event scheduled in the past")
	// ErrStrayTimer means a TimerInterrupt popped that the TimerService never started.
	ErrStrayTimer = errors.New("timer not started by the timer service")
)

// Simulator is the core object that holds simulation time, the event schedule,
// the channel and timer services, and the event loop. It is the only owner of
// the clock, the queue and the counters; entities reach them through their Endpoint.
type Simulator struct {
	cfg   Config
	clock *SimClock
	// queue has all pending events: app arrivals, packet arrivals and timers
	queue    *EventQueue
	rng      *PartitionedRNG
	timers   *TimerService
	channel  *Channel
	arrivals *ArrivalGenerator

	entities  [2]ProtocolEntity
	endpoints [2]*endpoint

	Metrics *Metrics

	recorder   trace.Recorder
	onDeliver  func(Delivery)
	violations *multierror.Error
	ran        bool
}

// Option customizes a Simulator at construction.
type Option func(*Simulator)

// WithRecorder streams every dispatched event and every transmission to r.
func WithRecorder(r trace.Recorder) Option {
	return func(s *Simulator) {
		s.recorder = r
	}
}

// WithRunID tags the metrics with a run identifier.
func WithRunID(id string) Option {
	return func(s *Simulator) {
		s.Metrics.RunID = id
	}
}

// WithDeliveryHook calls fn for every message an entity delivers to its application layer.
func WithDeliveryHook(fn func(Delivery)) Option {
	return func(s *Simulator) {
		s.onDeliver = fn
	}
}

// NewSimulator validates cfg, checks the random source, and wires a and b as entities A and B.
// A calibration failure is returned wrapped around ErrRNGCalibration.
func NewSimulator(cfg Config, a, b ProtocolEntity, opts ...Option) (*Simulator, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: both entities are required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	if err := CalibrateStreams(rng); err != nil {
		return nil, err
	}

	clock := &SimClock{}
	queue := NewEventQueue()
	s := &Simulator{
		cfg:      cfg,
		clock:    clock,
		queue:    queue,
		rng:      rng,
		timers:   NewTimerService(clock, queue),
		channel:  NewChannel(cfg.Channel, clock, queue, rng.ForSubsystem(SubsystemChannel)),
		arrivals: NewArrivalGenerator(cfg.Workload, clock, queue, rng.ForSubsystem(SubsystemWorkload)),
		entities: [2]ProtocolEntity{a, b},
		Metrics:  NewMetrics(),
	}
	for _, id := range []EntityID{EntityA, EntityB} {
		s.endpoints[id] = &endpoint{id: id, sim: s}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.channel.recorder = s.recorder
	return s, nil
}

// Now returns the current simulation time.
func (sim *Simulator) Now() float64 {
	return sim.clock.Now()
}

// Pending returns the number of events still queued.
func (sim *Simulator) Pending() int {
	return sim.queue.Len()
}

// Violations returns every contract violation seen so far, or nil.
func (sim *Simulator) Violations() error {
	return sim.violations.ErrorOrNil()
}

// Run initializes both entities, seeds the first arrival, and processes events
// in time order until the queue drains or the horizon is passed.
// In strict mode it returns the accumulated contract violations.
func (sim *Simulator) Run() error {
	if sim.ran {
		return errors.New("simulator: Run called twice")
	}
	sim.ran = true

	sim.entities[EntityA].Init(sim.endpoints[EntityA])
	sim.entities[EntityB].Init(sim.endpoints[EntityB])
	sim.arrivals.Start()

	for {
		next := sim.queue.Peek()
		if next == nil {
			break
		}
		if sim.cfg.Horizon > 0 && next.Time > sim.cfg.Horizon {
			logrus.Infof("[t=%.4f] horizon %.4f reached, %d events left unprocessed",
				sim.clock.Now(), sim.cfg.Horizon, sim.queue.Len())
			break
		}
		ev := sim.queue.PopEarliest()
		if ev.Time < sim.clock.Now() {
			sim.reportViolation(fmt.Errorf("%w: %s", ErrEventInPast, ev))
			continue
		}
		// advance the clock
		sim.clock.advanceTo(ev.Time)
		logrus.Infof("[t=%.4f] Executing %s for entity %s", sim.clock.Now(), ev.Kind, ev.Entity)
		// process the event
		sim.dispatch(ev)
	}

	sim.Metrics.SimEndedTime = sim.clock.Now()
	sim.Metrics.MessagesGenerated = sim.arrivals.Generated()
	sim.Metrics.Channel = sim.channel.Stats()
	logrus.Infof("[t=%.4f] Simulation ended after %d messages from the application layer",
		sim.clock.Now(), sim.Metrics.MessagesGenerated)

	if sim.cfg.Strict {
		return sim.Violations()
	}
	return nil
}

func (sim *Simulator) dispatch(ev *Event) {
	if ev.Entity != EntityA && ev.Entity != EntityB {
		sim.reportViolation(fmt.Errorf("%w: %s", ErrUnknownEntity, ev))
		return
	}
	entity := sim.entities[ev.Entity]

	switch ev.Kind {
	case FromAppLayer:
		sim.recordEvent(ev, false)
		msg, ok := sim.arrivals.OnArrival()
		if !ok {
			return
		}
		entity.OnSendRequest(msg)
	case FromNetLayer:
		if ev.Packet == nil {
			sim.reportViolation(fmt.Errorf("%w: %s carries no packet", ErrUnknownEventKind, ev))
			return
		}
		pkt := *ev.Packet
		sim.channel.stats.Delivered++
		sim.recordEvent(ev, IsCorrupted(pkt))
		entity.OnPacketArrival(pkt)
	case TimerInterrupt:
		if !sim.timers.fired(ev) {
			sim.reportViolation(fmt.Errorf("%w: %s", ErrStrayTimer, ev))
			return
		}
		sim.Metrics.Timeouts++
		sim.recordEvent(ev, false)
		entity.OnTimeout()
	default:
		sim.reportViolation(fmt.Errorf("%w: %s", ErrUnknownEventKind, ev))
	}
}

func (sim *Simulator) deliver(id EntityID, msg Message) {
	d := Delivery{
		Time:    sim.clock.Now(),
		Entity:  id,
		Message: msg,
		Data:    msg.String(),
	}
	sim.Metrics.Deliveries = append(sim.Metrics.Deliveries, d)
	logrus.Infof("[t=%.4f] %s delivered %q to the application layer", d.Time, id, d.Data)
	if sim.onDeliver != nil {
		sim.onDeliver(d)
	}
}

// reportViolation logs and records a breach of the entity contract or of an
// engine invariant. It never touches the schedule.
func (sim *Simulator) reportViolation(err error) {
	sim.Metrics.ContractViolations++
	sim.violations = multierror.Append(sim.violations,
		fmt.Errorf("t=%.4f: %w", sim.clock.Now(), err))
	logrus.Warnf("[t=%.4f] contract violation: %v", sim.clock.Now(), err)
}

func (sim *Simulator) recordEvent(ev *Event, corrupted bool) {
	if sim.recorder == nil {
		return
	}
	r := trace.EventRecord{
		Clock:     ev.Time,
		Kind:      ev.Kind.String(),
		Entity:    ev.Entity.String(),
		Corrupted: corrupted,
	}
	if ev.Packet != nil {
		r.SeqNum = ev.Packet.SeqNum
		r.AckNum = ev.Packet.AckNum
	}
	sim.recorder.RecordEvent(r)
}
