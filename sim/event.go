package sim

import "fmt"

// EntityID names one of the two protocol endpoints.
type EntityID int

const (
	EntityA EntityID = 0
	EntityB EntityID = 1
)

// Peer returns the entity on the other end of the channel.
func (id EntityID) Peer() EntityID {
	return (id + 1) % 2
}

func (id EntityID) String() string {
	switch id {
	case EntityA:
		return "A"
	case EntityB:
		return "B"
	default:
		return fmt.Sprintf("EntityID(%d)", int(id))
	}
}

// MarshalText renders the entity as "A" or "B" in reports.
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// EventKind classifies what a popped event asks the simulator to do.
type EventKind int

const (
	// TimerInterrupt fires an entity's retransmission timer.
	TimerInterrupt EventKind = 0
	// FromAppLayer hands a new application message to an entity.
	FromAppLayer EventKind = 1
	// FromNetLayer delivers a packet that survived the channel.
	FromNetLayer EventKind = 2
)

func (k EventKind) String() string {
	switch k {
	case TimerInterrupt:
		return "timer_interrupt"
	case FromAppLayer:
		return "from_app_layer"
	case FromNetLayer:
		return "from_net_layer"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a scheduled occurrence in simulated time.
// Once inserted, an Event belongs to the EventQueue until it is popped.
type Event struct {
	Time   float64 // Simulation time at which the event fires
	Kind   EventKind
	Entity EntityID // Entity the event is delivered to
	Packet *Packet  // Only set for FromNetLayer

	// SentAt is the clock value when the packet entered the channel (FromNetLayer only).
	SentAt float64

	seq uint64 // schedule order, stamped by EventQueue.Insert
}

// Seq returns the schedule sequence number assigned at insertion.
func (e *Event) Seq() uint64 {
	return e.seq
}

func (e *Event) String() string {
	return fmt.Sprintf("%s@%.4f->%s", e.Kind, e.Time, e.Entity)
}
