package sim

// ProtocolEntity is a reliable-data-transfer endpoint plugged into the simulator.
// Every callback runs to completion; none may block or retain the Endpoint's
// results across calls except through the Endpoint itself.
type ProtocolEntity interface {
	// Init is called once, before any other callback, with the entity's view of the simulator.
	Init(ep Endpoint)
	// OnSendRequest hands the entity a message the application wants delivered to the peer.
	OnSendRequest(msg Message)
	// OnPacketArrival delivers a packet that survived the channel. Implementations
	// must discard it untouched when IsCorrupted(pkt) is true.
	OnPacketArrival(pkt Packet)
	// OnTimeout fires when the entity's timer expires. The timer is no longer pending.
	OnTimeout()
}

// Endpoint is the only way an entity reaches the network, its timer, and the application.
type Endpoint interface {
	ID() EntityID
	Now() float64
	// Send hands a copy of pkt to the channel toward the peer.
	Send(pkt Packet)
	// StartTimer fails with ErrDuplicateTimer if a timer is already pending.
	StartTimer(duration float64) error
	// StopTimer fails with ErrNoTimerPending if no timer is pending.
	StopTimer() error
	TimerPending() bool
	// Deliver passes a received message up to the application layer.
	Deliver(msg Message)
}

// endpoint binds one entity to the simulator that owns it.
type endpoint struct {
	id  EntityID
	sim *Simulator
}

func (ep *endpoint) ID() EntityID { return ep.id }

func (ep *endpoint) Now() float64 { return ep.sim.clock.Now() }

func (ep *endpoint) Send(pkt Packet) {
	ep.sim.channel.Send(ep.id, pkt)
}

func (ep *endpoint) StartTimer(duration float64) error {
	err := ep.sim.timers.Start(ep.id, duration)
	if err != nil {
		ep.sim.reportViolation(err)
	}
	return err
}

func (ep *endpoint) StopTimer() error {
	err := ep.sim.timers.Stop(ep.id)
	if err != nil {
		ep.sim.reportViolation(err)
	}
	return err
}

func (ep *endpoint) TimerPending() bool {
	return ep.sim.timers.Pending(ep.id)
}

func (ep *endpoint) Deliver(msg Message) {
	ep.sim.deliver(ep.id, msg)
}
