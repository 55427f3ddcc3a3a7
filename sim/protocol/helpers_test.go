package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdtsim/rdtsim/sim"
)

// fakeEndpoint records what an entity asks of the simulator without running one.
type fakeEndpoint struct {
	id        sim.EntityID
	now       float64
	sent      []sim.Packet
	delivered []sim.Message
	pending   bool
	starts    int
	stops     int
}

func (f *fakeEndpoint) ID() sim.EntityID    { return f.id }
func (f *fakeEndpoint) Now() float64        { return f.now }
func (f *fakeEndpoint) Send(pkt sim.Packet) { f.sent = append(f.sent, pkt) }
func (f *fakeEndpoint) TimerPending() bool  { return f.pending }
func (f *fakeEndpoint) Deliver(msg sim.Message) {
	f.delivered = append(f.delivered, msg)
}

func (f *fakeEndpoint) StartTimer(float64) error {
	if f.pending {
		return sim.ErrDuplicateTimer
	}
	f.starts++
	f.pending = true
	return nil
}

func (f *fakeEndpoint) StopTimer() error {
	if !f.pending {
		return sim.ErrNoTimerPending
	}
	f.stops++
	f.pending = false
	return nil
}

// fire mimics the simulator popping the entity's timer.
func (f *fakeEndpoint) fire(e sim.ProtocolEntity) {
	f.pending = false
	e.OnTimeout()
}

// recordingEntity remembers every message the application asked it to send.
type recordingEntity struct {
	sim.ProtocolEntity
	requested []sim.Message
}

func (r *recordingEntity) OnSendRequest(msg sim.Message) {
	r.requested = append(r.requested, msg)
	r.ProtocolEntity.OnSendRequest(msg)
}

func payloads(msgs []sim.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.String()
	}
	return out
}

// runPair runs a strict simulation with a freshly built pair of entities.
func runPair(t *testing.T, cfg sim.Config) (*sim.Simulator, *recordingEntity, *recordingEntity) {
	t.Helper()
	cfg.Strict = true
	a, b, err := NewPair(cfg.Protocol)
	require.NoError(t, err)
	ra, rb := &recordingEntity{ProtocolEntity: a}, &recordingEntity{ProtocolEntity: b}
	s, err := sim.NewSimulator(cfg, ra, rb)
	require.NoError(t, err)
	require.NoError(t, s.Run(), "reference protocols never break the timer contract")
	return s, ra, rb
}

func newRunConfig(proto string, n int, loss, corrupt float64) sim.Config {
	return sim.Config{
		Seed:     1,
		Channel:  sim.NewChannelConfig(loss, corrupt),
		Workload: sim.NewWorkloadConfig(n, 10),
		Protocol: sim.NewProtocolConfig(proto, 0, 0, 0),
	}
}
