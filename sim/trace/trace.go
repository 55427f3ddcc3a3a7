package trace

// TraceLevel controls the verbosity of run tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents captures every dispatched event and every channel transmission.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	RunID string // identifies the run in persisted traces
}

// SimulationTrace collects records during a simulation run.
type SimulationTrace struct {
	Config        TraceConfig
	Events        []EventRecord
	Transmissions []TransmissionRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:        config,
		Events:        make([]EventRecord, 0),
		Transmissions: make([]TransmissionRecord, 0),
	}
}

// RecordEvent appends a dispatched-event record.
func (st *SimulationTrace) RecordEvent(record EventRecord) {
	st.Events = append(st.Events, record)
}

// RecordTransmission appends a channel transmission record.
func (st *SimulationTrace) RecordTransmission(record TransmissionRecord) {
	st.Transmissions = append(st.Transmissions, record)
}

// Recorder receives records as the simulation produces them.
type Recorder interface {
	RecordEvent(record EventRecord)
	RecordTransmission(record TransmissionRecord)
}

// Tee fans every record out to all non-nil recorders, in order.
func Tee(recorders ...Recorder) Recorder {
	out := make(teeRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type teeRecorder []Recorder

func (t teeRecorder) RecordEvent(record EventRecord) {
	for _, r := range t {
		r.RecordEvent(record)
	}
}

func (t teeRecorder) RecordTransmission(record TransmissionRecord) {
	for _, r := range t {
		r.RecordTransmission(record)
	}
}
