package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationTrace_RecordEvent_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for events
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN an event record is recorded
	st.RecordEvent(EventRecord{Clock: 12.5, Kind: "from_net_layer", Entity: "B", SeqNum: 3, AckNum: -1})

	// THEN the trace contains it unchanged
	require.Len(t, st.Events, 1)
	assert.Equal(t, 12.5, st.Events[0].Clock)
	assert.Equal(t, int32(3), st.Events[0].SeqNum)
	assert.Empty(t, st.Transmissions)
}

func TestSimulationTrace_RecordTransmission_AppendsRecord(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	st.RecordTransmission(TransmissionRecord{SentAt: 1, From: "A", Fate: FateDelivered, ArrivesAt: 4})

	require.Len(t, st.Transmissions, 1)
	assert.Equal(t, 3.0, st.Transmissions[0].Delay())
}

func TestTransmissionRecord_DelayOfLostPacket(t *testing.T) {
	tx := TransmissionRecord{SentAt: 7, Fate: FateLost}
	assert.Equal(t, 0.0, tx.Delay())
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"none", true},
		{"events", true},
		{"", true},
		{"decisions", false},
		{"EVENTS", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.want {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestTee_FansOutAndSkipsNil(t *testing.T) {
	a := NewSimulationTrace(TraceConfig{})
	b := NewSimulationTrace(TraceConfig{})
	r := Tee(a, nil, b)

	r.RecordEvent(EventRecord{Kind: "timer_interrupt"})
	r.RecordTransmission(TransmissionRecord{Fate: FateLost})

	for _, st := range []*SimulationTrace{a, b} {
		assert.Len(t, st.Events, 1)
		assert.Len(t, st.Transmissions, 1)
	}
}
