package protocol

import (
	"github.com/sirupsen/logrus"

	"github.com/rdtsim/rdtsim/sim"
)

// GoBackN keeps up to WindowSize data packets in flight under a single timer
// for the oldest one. ACKs are cumulative: ACK n releases every packet with
// seq <= n. On timeout every unacknowledged packet is resent.
type GoBackN struct {
	cfg sim.ProtocolConfig
	ep  sim.Endpoint

	// sender side: inFlight holds seq base .. nextSeq-1
	base     int32
	nextSeq  int32
	inFlight []sim.Packet
	backlog  []sim.Message

	// receiver side
	expected int32

	Stats Stats
}

// NewGoBackN creates a go-back-N entity. Zero config fields take defaults.
func NewGoBackN(cfg sim.ProtocolConfig) *GoBackN {
	return &GoBackN{cfg: withDefaults(cfg)}
}

func (g *GoBackN) Init(ep sim.Endpoint) {
	g.ep = ep
	g.base = 0
	g.nextSeq = 0
	g.inFlight = nil
	g.backlog = nil
	g.expected = 0
	g.Stats = Stats{}
}

// windowOpen reports whether another packet may be put in flight.
func (g *GoBackN) windowOpen() bool {
	return len(g.inFlight) < g.cfg.WindowSize
}

func (g *GoBackN) OnSendRequest(msg sim.Message) {
	if g.windowOpen() {
		g.transmit(msg)
		return
	}
	if len(g.backlog) >= g.cfg.MaxBuffered {
		g.Stats.Overflowed++
		logrus.Warnf("[t=%.4f] %s: window and backlog full, dropping %q", g.ep.Now(), g.ep.ID(), msg.String())
		return
	}
	g.backlog = append(g.backlog, msg)
}

func (g *GoBackN) transmit(msg sim.Message) {
	pkt := makeData(g.nextSeq, msg)
	g.inFlight = append(g.inFlight, pkt)
	g.Stats.DataSent++
	logrus.Debugf("[t=%.4f] %s: sending seq=%d (base %d)", g.ep.Now(), g.ep.ID(), g.nextSeq, g.base)
	g.ep.Send(pkt)
	if g.base == g.nextSeq {
		_ = g.ep.StartTimer(g.cfg.Timeout)
	}
	g.nextSeq++
}

func (g *GoBackN) OnPacketArrival(pkt sim.Packet) {
	if sim.IsCorrupted(pkt) {
		g.Stats.CorruptDropped++
		logrus.Debugf("[t=%.4f] %s: packet corrupted, discarded", g.ep.Now(), g.ep.ID())
		return
	}
	if isAck(pkt) {
		g.handleAck(pkt.AckNum)
		return
	}
	g.handleData(pkt)
}

func (g *GoBackN) handleAck(ack int32) {
	if ack < g.base || ack >= g.nextSeq {
		g.Stats.StaleAcks++
		logrus.Debugf("[t=%.4f] %s: stale ACK %d (window [%d, %d))", g.ep.Now(), g.ep.ID(), ack, g.base, g.nextSeq)
		return
	}
	released := int(ack - g.base + 1)
	g.inFlight = g.inFlight[released:]
	g.base = ack + 1

	_ = g.ep.StopTimer()
	if len(g.inFlight) > 0 {
		_ = g.ep.StartTimer(g.cfg.Timeout)
	}

	for g.windowOpen() && len(g.backlog) > 0 {
		next := g.backlog[0]
		g.backlog = g.backlog[1:]
		g.transmit(next)
	}
}

func (g *GoBackN) handleData(pkt sim.Packet) {
	if pkt.SeqNum == g.expected {
		g.ep.Deliver(sim.Message(pkt.Payload))
		g.Stats.Delivered++
		g.expected++
	} else {
		g.Stats.OutOfOrder++
	}
	g.Stats.AcksSent++
	g.ep.Send(makeAck(g.expected - 1))
}

func (g *GoBackN) OnTimeout() {
	if len(g.inFlight) == 0 {
		logrus.Debugf("[t=%.4f] %s: timeout with nothing in flight", g.ep.Now(), g.ep.ID())
		return
	}
	logrus.Debugf("[t=%.4f] %s: timeout, resending %d packets from seq=%d", g.ep.Now(), g.ep.ID(), len(g.inFlight), g.base)
	for _, pkt := range g.inFlight {
		g.Stats.Retransmissions++
		g.ep.Send(pkt)
	}
	_ = g.ep.StartTimer(g.cfg.Timeout)
}
