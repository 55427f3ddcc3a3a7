package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDuplicateTimer is returned by Start when the entity already has a timer pending.
	ErrDuplicateTimer = errors.New("timer already pending")
	// ErrNoTimerPending is returned by Stop when the entity has no timer to cancel.
	ErrNoTimerPending = errors.New("no timer pending")
	// ErrInvalidDuration is returned by Start for negative or NaN durations.
	ErrInvalidDuration = errors.New("invalid timer duration")
)

// SimClock is the simulation's logical time. Only the Simulator advances it.
type SimClock struct {
	now float64
}

// Now returns the current simulation time.
func (c *SimClock) Now() float64 {
	return c.now
}

// advanceTo moves the clock forward. Moving it backwards is an engine bug.
func (c *SimClock) advanceTo(t float64) {
	if t < c.now {
		panic(fmt.Sprintf("SimClock: time went backwards from %f to %f", c.now, t))
	}
	c.now = t
}

// TimerService schedules and cancels per-entity TimerInterrupt events.
// Each entity has at most one pending timer; timers never consume wall-clock time.
type TimerService struct {
	clock   *SimClock
	queue   *EventQueue
	pending [2]*Event
}

// NewTimerService creates a TimerService that schedules into queue using clock.
func NewTimerService(clock *SimClock, queue *EventQueue) *TimerService {
	return &TimerService{clock: clock, queue: queue}
}

// Start schedules a TimerInterrupt for entity at now+duration.
// If a timer is already pending the existing one is kept and ErrDuplicateTimer is returned.
func (ts *TimerService) Start(entity EntityID, duration float64) error {
	if math.IsNaN(duration) || duration < 0 {
		return fmt.Errorf("%w: entity %s asked for %v", ErrInvalidDuration, entity, duration)
	}
	if ts.pending[entity] != nil {
		return fmt.Errorf("%w: entity %s, fires at %.4f", ErrDuplicateTimer, entity, ts.pending[entity].Time)
	}
	ev := &Event{
		Time:   ts.clock.Now() + duration,
		Kind:   TimerInterrupt,
		Entity: entity,
	}
	ts.queue.Insert(ev)
	ts.pending[entity] = ev
	logrus.Debugf("[t=%.4f] timer started for %s, fires at %.4f", ts.clock.Now(), entity, ev.Time)
	return nil
}

// Stop cancels the entity's pending timer, removing it from the queue.
func (ts *TimerService) Stop(entity EntityID) error {
	target := ts.pending[entity]
	if target == nil {
		return fmt.Errorf("%w: entity %s", ErrNoTimerPending, entity)
	}
	removed := ts.queue.RemoveIf(func(ev *Event) bool { return ev == target })
	if removed == nil {
		panic(fmt.Sprintf("TimerService: pending timer for %s missing from queue", entity))
	}
	ts.pending[entity] = nil
	logrus.Debugf("[t=%.4f] timer stopped for %s", ts.clock.Now(), entity)
	return nil
}

// Pending reports whether entity has a timer scheduled.
func (ts *TimerService) Pending(entity EntityID) bool {
	return ts.pending[entity] != nil
}

// fired clears the pending slot once the simulator pops the entity's timer.
// It reports false for a TimerInterrupt this service never started.
func (ts *TimerService) fired(ev *Event) bool {
	if ts.pending[ev.Entity] != ev {
		return false
	}
	ts.pending[ev.Entity] = nil
	return true
}
