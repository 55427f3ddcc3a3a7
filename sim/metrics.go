// Tracks run-wide counters and the application-layer delivery log.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
)

// Delivery is one message handed up to an application layer.
type Delivery struct {
	Time    float64  `json:"time"`
	Entity  EntityID `json:"entity"`
	Message Message  `json:"-"`
	Data    string   `json:"data"`
}

// Metrics aggregates statistics about the simulation for final reporting.
type Metrics struct {
	RunID              string       `json:"run_id,omitempty"`
	SimEndedTime       float64      `json:"sim_ended_time"`
	MessagesGenerated  int          `json:"messages_generated"`
	Channel            ChannelStats `json:"channel"`
	Timeouts           int          `json:"timeouts"`
	ContractViolations int          `json:"contract_violations"`

	// Deliveries is the application-layer log in delivery order, both entities interleaved.
	Deliveries []Delivery `json:"deliveries,omitempty"`
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Deliveries: make([]Delivery, 0),
	}
}

// DeliveredTo returns the messages delivered to entity, in delivery order.
func (m *Metrics) DeliveredTo(entity EntityID) []Message {
	var out []Message
	for _, d := range m.Deliveries {
		if d.Entity == entity {
			out = append(out, d.Message)
		}
	}
	return out
}

// LossRate returns lost/sent, or 0 when nothing was sent.
func (m *Metrics) LossRate() float64 {
	if m.Channel.Sent == 0 {
		return 0
	}
	return float64(m.Channel.Lost) / float64(m.Channel.Sent)
}

// Print writes the human-readable run report.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	if m.RunID != "" {
		fmt.Fprintf(w, "Run ID               : %s\n", m.RunID)
	}
	fmt.Fprintf(w, "Terminated at time   : %.4f\n", m.SimEndedTime)
	fmt.Fprintf(w, "Messages generated   : %d\n", m.MessagesGenerated)
	fmt.Fprintf(w, "Packets sent         : %d\n", m.Channel.Sent)
	fmt.Fprintf(w, "Packets lost         : %d (%.2f%%)\n", m.Channel.Lost, 100*m.LossRate())
	fmt.Fprintf(w, "Packets corrupted    : %d\n", m.Channel.Corrupted)
	fmt.Fprintf(w, "Packets arrived      : %d\n", m.Channel.Delivered)
	fmt.Fprintf(w, "Timer interrupts     : %d\n", m.Timeouts)
	fmt.Fprintf(w, "Delivered to A       : %d\n", len(m.DeliveredTo(EntityA)))
	fmt.Fprintf(w, "Delivered to B       : %d\n", len(m.DeliveredTo(EntityB)))
	if m.ContractViolations > 0 {
		fmt.Fprintf(w, "Contract violations  : %d\n", m.ContractViolations)
	}
}

// WriteJSON writes the metrics, including the delivery log, as indented JSON.
func (m *Metrics) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
