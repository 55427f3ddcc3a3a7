// Package trace provides event and transmission recording for simulator runs.
// This package has no dependencies on sim/ and only stores plain data types.
package trace

// EventRecord captures a single dispatched event.
type EventRecord struct {
	Clock     float64
	Kind      string // "timer_interrupt", "from_app_layer", "from_net_layer"
	Entity    string // "A" or "B"
	SeqNum    int32  // zero unless Kind is from_net_layer
	AckNum    int32
	Corrupted bool // packet failed its checksum on arrival
}

// Fate is what the channel did with a transmitted packet.
type Fate string

const (
	FateDelivered Fate = "delivered"
	FateLost      Fate = "lost"
	FateCorrupted Fate = "corrupted" // delivered, but mangled in transit
)

// TransmissionRecord captures one packet handed to the channel.
type TransmissionRecord struct {
	SentAt    float64
	From      string
	SeqNum    int32
	AckNum    int32
	Fate      Fate
	ArrivesAt float64 // zero for lost packets
	// Corruption is "payload", "seqnum" or "acknum" when Fate is FateCorrupted.
	Corruption string
}

// Delay returns the one-way delay of a transmission that was not lost.
func (r TransmissionRecord) Delay() float64 {
	if r.Fate == FateLost {
		return 0
	}
	return r.ArrivesAt - r.SentAt
}
