package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageSize is the fixed length of an application message and of a packet payload.
const MessageSize = 20

// PacketWireSize is the encoded size of a Packet: three int32 header fields plus the payload.
const PacketWireSize = 3*4 + MessageSize

// ErrShortPacket is returned by UnmarshalBinary when the input is not exactly PacketWireSize bytes.
var ErrShortPacket = errors.New("packet: wrong wire length")

// Message is the opaque application-layer unit handed to and from an entity.
type Message [MessageSize]byte

// String renders the printable prefix of the message (up to the first NUL).
func (m Message) String() string {
	n := 0
	for n < MessageSize && m[n] != 0 {
		n++
	}
	return string(m[:n])
}

// Packet is the wire unit exchanged over the simulated channel.
// Packets are passed by value; the channel never aliases the sender's copy.
type Packet struct {
	SeqNum   int32
	AckNum   int32
	Checksum int32
	Payload  [MessageSize]byte
}

// Checksum returns the additive checksum of seqnum, acknum and every payload byte.
// Reordered bytes or compensating field changes collide.
func Checksum(p Packet) int32 {
	sum := p.SeqNum + p.AckNum
	for _, b := range p.Payload {
		sum += int32(b)
	}
	return sum
}

// IsCorrupted reports whether the carried checksum disagrees with the received fields.
func IsCorrupted(p Packet) bool {
	return p.Checksum != Checksum(p)
}

// Seal stamps the packet's checksum over its current fields.
func (p *Packet) Seal() {
	p.Checksum = Checksum(*p)
}

// MarshalBinary encodes the packet as big-endian seqnum, acknum, checksum, then the raw payload.
func (p Packet) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PacketWireSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(p.SeqNum))
	binary.BigEndian.PutUint32(buf[4:8], uint32(p.AckNum))
	binary.BigEndian.PutUint32(buf[8:12], uint32(p.Checksum))
	copy(buf[12:], p.Payload[:])
	return buf, nil
}

// UnmarshalBinary decodes the layout produced by MarshalBinary.
func (p *Packet) UnmarshalBinary(data []byte) error {
	if len(data) != PacketWireSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrShortPacket, len(data), PacketWireSize)
	}
	p.SeqNum = int32(binary.BigEndian.Uint32(data[0:4]))
	p.AckNum = int32(binary.BigEndian.Uint32(data[4:8]))
	p.Checksum = int32(binary.BigEndian.Uint32(data[8:12]))
	copy(p.Payload[:], data[12:])
	return nil
}

func (p Packet) String() string {
	return fmt.Sprintf("{seq=%d ack=%d sum=%d payload=%q}", p.SeqNum, p.AckNum, p.Checksum, Message(p.Payload).String())
}
