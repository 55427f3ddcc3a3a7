package sim

import (
	"math/rand"
)

// newRandFromSeed creates a *rand.Rand with the given seed
func newRandFromSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// scriptedSource replays fixed draws so channel and arrival decisions can be forced.
// It panics when the script runs out, which flags an unexpected extra draw.
type scriptedSource struct {
	draws []float64
	next  int
}

func (s *scriptedSource) Float64() float64 {
	if s.next >= len(s.draws) {
		panic("scriptedSource: out of draws")
	}
	v := s.draws[s.next]
	s.next++
	return v
}

// newTestConfig returns a lossless, unidirectional run of n messages.
func newTestConfig(n int) Config {
	return Config{
		Seed:     42,
		Channel:  NewChannelConfig(0, 0),
		Workload: NewWorkloadConfig(n, 10),
	}
}

// plainEntity is a best-effort entity without retransmission: it sends every
// message once and delivers every clean packet it receives. Hooks let tests
// poke at the Endpoint from inside callbacks.
type plainEntity struct {
	ep       Endpoint
	nextSeq  int32
	received []Packet
	arrivals []float64
	timeouts int

	onSend    func(ep Endpoint, msg Message)
	onTimeout func(ep Endpoint)
}

func (e *plainEntity) Init(ep Endpoint) { e.ep = ep }

func (e *plainEntity) OnSendRequest(msg Message) {
	if e.onSend != nil {
		e.onSend(e.ep, msg)
		return
	}
	p := Packet{SeqNum: e.nextSeq, AckNum: -1, Payload: msg}
	p.Seal()
	e.nextSeq++
	e.ep.Send(p)
}

func (e *plainEntity) OnPacketArrival(pkt Packet) {
	e.received = append(e.received, pkt)
	e.arrivals = append(e.arrivals, e.ep.Now())
	if IsCorrupted(pkt) {
		return
	}
	e.ep.Deliver(pkt.Payload)
}

func (e *plainEntity) OnTimeout() {
	e.timeouts++
	if e.onTimeout != nil {
		e.onTimeout(e.ep)
	}
}
