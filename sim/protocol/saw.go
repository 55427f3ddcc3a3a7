package protocol

import (
	"github.com/sirupsen/logrus"

	"github.com/rdtsim/rdtsim/sim"
)

type senderState int

const (
	stateIdle senderState = iota
	stateAwaitingAck
)

func (s senderState) String() string {
	if s == stateAwaitingAck {
		return "awaiting-ack"
	}
	return "idle"
}

// StopAndWait is an alternating-bit protocol: one data packet outstanding at a
// time, sequence numbers 0 and 1. Messages that arrive while a packet is
// outstanding wait in a bounded FIFO backlog.
type StopAndWait struct {
	cfg sim.ProtocolConfig
	ep  sim.Endpoint

	// sender side
	state       senderState
	seq         int32
	outstanding sim.Packet
	backlog     []sim.Message

	// receiver side
	expected int32

	Stats Stats
}

// NewStopAndWait creates a stop-and-wait entity. Zero config fields take defaults.
func NewStopAndWait(cfg sim.ProtocolConfig) *StopAndWait {
	return &StopAndWait{cfg: withDefaults(cfg)}
}

func (s *StopAndWait) Init(ep sim.Endpoint) {
	s.ep = ep
	s.state = stateIdle
	s.seq = 0
	s.expected = 0
	s.backlog = nil
	s.Stats = Stats{}
}

func (s *StopAndWait) OnSendRequest(msg sim.Message) {
	if s.state == stateAwaitingAck {
		if len(s.backlog) >= s.cfg.MaxBuffered {
			s.Stats.Overflowed++
			logrus.Warnf("[t=%.4f] %s: backlog full (%d), dropping %q", s.ep.Now(), s.ep.ID(), len(s.backlog), msg.String())
			return
		}
		s.backlog = append(s.backlog, msg)
		return
	}
	s.transmit(msg)
}

func (s *StopAndWait) transmit(msg sim.Message) {
	s.outstanding = makeData(s.seq, msg)
	s.state = stateAwaitingAck
	s.Stats.DataSent++
	logrus.Debugf("[t=%.4f] %s: sending seq=%d", s.ep.Now(), s.ep.ID(), s.seq)
	s.ep.Send(s.outstanding)
	_ = s.ep.StartTimer(s.cfg.Timeout)
}

func (s *StopAndWait) OnPacketArrival(pkt sim.Packet) {
	if sim.IsCorrupted(pkt) {
		s.Stats.CorruptDropped++
		logrus.Debugf("[t=%.4f] %s: packet corrupted, discarded", s.ep.Now(), s.ep.ID())
		return
	}
	if isAck(pkt) {
		s.handleAck(pkt.AckNum)
		return
	}
	s.handleData(pkt)
}

func (s *StopAndWait) handleAck(ack int32) {
	if s.state != stateAwaitingAck || ack != s.seq {
		s.Stats.StaleAcks++
		logrus.Debugf("[t=%.4f] %s: not the expected ACK (got %d, state %s, seq %d)", s.ep.Now(), s.ep.ID(), ack, s.state, s.seq)
		return
	}
	_ = s.ep.StopTimer()
	s.seq = 1 - s.seq
	s.state = stateIdle

	if len(s.backlog) > 0 {
		next := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.transmit(next)
	}
}

func (s *StopAndWait) handleData(pkt sim.Packet) {
	if pkt.SeqNum != s.expected {
		// duplicate of the last delivered packet: its ACK was lost or corrupted
		s.Stats.OutOfOrder++
		s.sendAck(1 - s.expected)
		return
	}
	s.ep.Deliver(sim.Message(pkt.Payload))
	s.Stats.Delivered++
	s.sendAck(s.expected)
	s.expected = 1 - s.expected
}

func (s *StopAndWait) sendAck(ack int32) {
	s.Stats.AcksSent++
	s.ep.Send(makeAck(ack))
}

func (s *StopAndWait) OnTimeout() {
	if s.state != stateAwaitingAck {
		logrus.Debugf("[t=%.4f] %s: timeout with nothing outstanding", s.ep.Now(), s.ep.ID())
		return
	}
	s.Stats.Retransmissions++
	logrus.Debugf("[t=%.4f] %s: timeout, resending seq=%d", s.ep.Now(), s.ep.ID(), s.seq)
	s.ep.Send(s.outstanding)
	_ = s.ep.StartTimer(s.cfg.Timeout)
}
