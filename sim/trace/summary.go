package trace

import "gonum.org/v1/gonum/stat"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents       int
	TotalTransmitted  int
	DeliveredCount    int // includes corrupted deliveries
	LostCount         int
	CorruptedCount    int
	MeanDelay         float64
	DelayStdDev       float64
	MaxDelay          float64
	EventsByKind      map[string]int // event kind → count of dispatched events
	CorruptionsByMode map[string]int // "payload"/"seqnum"/"acknum" → count
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		EventsByKind:      make(map[string]int),
		CorruptionsByMode: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	for _, e := range st.Events {
		summary.EventsByKind[e.Kind]++
	}

	summary.TotalTransmitted = len(st.Transmissions)
	delays := make([]float64, 0, len(st.Transmissions))
	for _, tx := range st.Transmissions {
		switch tx.Fate {
		case FateLost:
			summary.LostCount++
			continue
		case FateCorrupted:
			summary.CorruptedCount++
			summary.CorruptionsByMode[tx.Corruption]++
		}
		summary.DeliveredCount++
		d := tx.Delay()
		delays = append(delays, d)
		if d > summary.MaxDelay {
			summary.MaxDelay = d
		}
	}

	switch {
	case len(delays) == 1:
		summary.MeanDelay = delays[0]
	case len(delays) > 1:
		summary.MeanDelay, summary.DelayStdDev = stat.MeanStdDev(delays, nil)
	}

	return summary
}
