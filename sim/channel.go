package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/rdtsim/rdtsim/sim/trace"
)

const (
	// minTransitDelay and transitDelaySpread give a one-way delay uniform on [1, 10)
	// after the latest arrival already scheduled toward the same destination.
	minTransitDelay    = 1.0
	transitDelaySpread = 9.0

	// corruptedPayloadByte overwrites payload[0] of a payload-corrupted packet.
	corruptedPayloadByte = 'Z'
	// corruptedHeaderValue replaces seqnum or acknum of a header-corrupted packet.
	corruptedHeaderValue = 999999

	payloadCorruptionBound = 0.75
	seqnumCorruptionBound  = 0.875
)

// Corruption identifies which field of a packet the channel mangled.
type Corruption int

const (
	CorruptNone Corruption = iota
	CorruptPayload
	CorruptSeqNum
	CorruptAckNum
)

func (c Corruption) String() string {
	switch c {
	case CorruptPayload:
		return "payload"
	case CorruptSeqNum:
		return "seqnum"
	case CorruptAckNum:
		return "acknum"
	default:
		return ""
	}
}

// ChannelStats counts what the channel did to traffic.
type ChannelStats struct {
	Sent      int // packets handed to the channel
	Lost      int // packets dropped
	Corrupted int // packets delivered with one field mangled
	Delivered int // FromNetLayer events dispatched to an entity
}

// Channel applies loss, corruption and delay to packets and schedules their arrival.
// Packets toward the same destination never overtake each other.
type Channel struct {
	cfg   ChannelConfig
	clock *SimClock
	queue *EventQueue
	rng   RandomSource

	// lastArrival is the latest FromNetLayer time scheduled toward each entity.
	// Net events are never cancelled and pop in time order, so
	// max(clock, lastArrival[dst]) is the latest still-queued arrival, or the clock if none.
	lastArrival [2]float64

	stats    ChannelStats
	recorder trace.Recorder
}

// NewChannel creates a Channel scheduling into queue. rng should be the channel subsystem stream.
func NewChannel(cfg ChannelConfig, clock *SimClock, queue *EventQueue, rng RandomSource) *Channel {
	return &Channel{
		cfg:   cfg,
		clock: clock,
		queue: queue,
		rng:   rng,
	}
}

// Stats returns a snapshot of the channel counters.
func (c *Channel) Stats() ChannelStats {
	return c.stats
}

// Send puts a copy of pkt on the wire from entity from toward its peer.
// The caller keeps ownership of pkt and may reuse it immediately.
func (c *Channel) Send(from EntityID, pkt Packet) {
	now := c.clock.Now()
	c.stats.Sent++

	if c.rng.Float64() < c.cfg.LossProb {
		c.stats.Lost++
		logrus.Debugf("[t=%.4f] channel: packet from %s lost %v", now, from, pkt)
		c.record(trace.TransmissionRecord{
			SentAt: now,
			From:   from.String(),
			SeqNum: pkt.SeqNum,
			AckNum: pkt.AckNum,
			Fate:   trace.FateLost,
		})
		return
	}

	inFlight := pkt
	dst := from.Peer()

	last := now
	if c.lastArrival[dst] > last {
		last = c.lastArrival[dst]
	}
	arrival := last + minTransitDelay + transitDelaySpread*c.rng.Float64()
	c.lastArrival[dst] = arrival

	corruption := CorruptNone
	if c.rng.Float64() < c.cfg.CorruptProb {
		c.stats.Corrupted++
		corruption = corrupt(&inFlight, c.rng.Float64())
		logrus.Debugf("[t=%.4f] channel: packet from %s corrupted (%s)", now, from, corruption)
	}

	c.queue.Insert(&Event{
		Time:   arrival,
		Kind:   FromNetLayer,
		Entity: dst,
		Packet: &inFlight,
		SentAt: now,
	})

	fate := trace.FateDelivered
	if corruption != CorruptNone {
		fate = trace.FateCorrupted
	}
	c.record(trace.TransmissionRecord{
		SentAt:     now,
		From:       from.String(),
		SeqNum:     pkt.SeqNum,
		AckNum:     pkt.AckNum,
		Fate:       fate,
		ArrivesAt:  arrival,
		Corruption: corruption.String(),
	})
}

// corrupt mangles exactly one field of p chosen by x in [0,1).
func corrupt(p *Packet, x float64) Corruption {
	switch {
	case x < payloadCorruptionBound:
		p.Payload[0] = corruptedPayloadByte
		return CorruptPayload
	case x < seqnumCorruptionBound:
		p.SeqNum = corruptedHeaderValue
		return CorruptSeqNum
	default:
		p.AckNum = corruptedHeaderValue
		return CorruptAckNum
	}
}

func (c *Channel) record(r trace.TransmissionRecord) {
	if c.recorder != nil {
		c.recorder.RecordTransmission(r)
	}
}
