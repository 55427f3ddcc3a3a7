// Package protocol provides reference reliable-data-transfer entities for the
// simulator: an alternating-bit stop-and-wait protocol and go-back-N.
//
// Both entities carry a sender side and a receiver side, so one type serves as
// either endpoint; the B sender side only runs under bidirectional generation.
// On timeout both retransmit whatever is unacknowledged and restart the timer.
package protocol

import (
	"errors"
	"fmt"

	"github.com/rdtsim/rdtsim/sim"
)

// Protocol names accepted by New.
const (
	NameStopAndWait = "saw"
	NameGoBackN     = "gbn"
)

// Defaults applied when a ProtocolConfig field is zero.
const (
	DefaultTimeout     = 30.0
	DefaultWindowSize  = 8
	DefaultMaxBuffered = 50
)

const (
	// ackSeqNum in SeqNum marks a pure acknowledgment.
	ackSeqNum int32 = -1
	// noAck in AckNum marks a data packet that acknowledges nothing.
	noAck int32 = -1
)

// ErrUnknownProtocol is returned by New for names other than "saw" and "gbn".
var ErrUnknownProtocol = errors.New("unknown protocol")

// Stats counts what an entity did; useful for asserting protocol behavior in tests.
type Stats struct {
	DataSent        int // first transmissions of data packets
	Retransmissions int // data packets resent after a timeout
	AcksSent        int
	Delivered       int // messages passed up to the application
	CorruptDropped  int // packets discarded because they failed the checksum
	StaleAcks       int // ACKs that acknowledged nothing new
	OutOfOrder      int // data packets that were not the expected sequence number
	Overflowed      int // application messages dropped because the backlog was full
}

// New builds an entity for cfg.Name, filling zero fields with defaults.
func New(cfg sim.ProtocolConfig) (sim.ProtocolEntity, error) {
	switch cfg.Name {
	case NameStopAndWait, "stop-and-wait":
		return NewStopAndWait(cfg), nil
	case NameGoBackN, "go-back-n":
		return NewGoBackN(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, cfg.Name)
	}
}

// NewPair builds two independent entities of the same protocol for A and B.
func NewPair(cfg sim.ProtocolConfig) (a, b sim.ProtocolEntity, err error) {
	if a, err = New(cfg); err != nil {
		return nil, nil, err
	}
	if b, err = New(cfg); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func withDefaults(cfg sim.ProtocolConfig) sim.ProtocolConfig {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = DefaultMaxBuffered
	}
	return cfg
}

func makeData(seq int32, msg sim.Message) sim.Packet {
	p := sim.Packet{SeqNum: seq, AckNum: noAck, Payload: msg}
	p.Seal()
	return p
}

func makeAck(ack int32) sim.Packet {
	p := sim.Packet{SeqNum: ackSeqNum, AckNum: ack}
	p.Seal()
	return p
}

func isAck(p sim.Packet) bool {
	return p.SeqNum == ackSeqNum
}
