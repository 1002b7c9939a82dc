package supervisor

import "time"

// Phase is the coarse lifecycle state shown to observers.
type Phase string

const (
	PhaseBooting   Phase = "booting"
	PhaseExploring Phase = "exploring"
	PhaseWriting   Phase = "writing"
	PhaseDone      Phase = "done"
	PhaseError     Phase = "error"
	PhaseAborted   Phase = "aborted"
)

// Terminal reports whether p is a terminal phase. Terminal phases are
// sticky: once entered, no further transition happens for that run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError || p == PhaseAborted
}

// EventType classifies a retained run event.
type EventType string

const (
	EventToolStart EventType = "tool_start"
	EventToolEnd   EventType = "tool_end"
)

// EventRecord is one retained entry of the run's event log.
type EventRecord struct {
	Type      EventType              `json:"type"`
	ToolName  string                 `json:"tool_name"`
	Args      map[string]interface{} `json:"args,omitempty"`
	IsError   bool                   `json:"is_error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Truncation describes what happened to the final text.
type Truncation struct {
	Truncated     bool `json:"truncated"`
	OriginalLines int  `json:"original_lines,omitempty"`
	OriginalBytes int  `json:"original_bytes,omitempty"`
}

// Details is the externally observable run record.
type Details struct {
	Phase        Phase         `json:"phase"`
	Message      string        `json:"message,omitempty"`
	ToolCalls    int           `json:"tool_calls"`
	ToolErrors   int           `json:"tool_errors"`
	Turns        int           `json:"turns"`
	MaxTurns     int           `json:"max_turns"`
	MaxToolCalls int           `json:"max_tool_calls"`
	ExitCode     int           `json:"exit_code"`
	StopReason   string        `json:"stop_reason,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Truncation   Truncation    `json:"truncation"`
	Events       []EventRecord `json:"events"`
}

// defaultEventBuffer is the retained-event ring capacity when the
// caller does not set one.
const defaultEventBuffer = 64

// eventRing is a fixed-capacity, insertion-ordered event buffer that
// evicts oldest entries first.
type eventRing struct {
	capacity int
	entries  []EventRecord
	start    int
	count    int
}

func newEventRing(capacity int) *eventRing {
	if capacity <= 0 {
		capacity = defaultEventBuffer
	}
	return &eventRing{
		capacity: capacity,
		entries:  make([]EventRecord, capacity),
	}
}

func (r *eventRing) append(rec EventRecord) {
	if r.count < r.capacity {
		r.entries[(r.start+r.count)%r.capacity] = rec
		r.count++
		return
	}
	r.entries[r.start] = rec
	r.start = (r.start + 1) % r.capacity
}

// snapshot returns retained events oldest-first.
func (r *eventRing) snapshot() []EventRecord {
	out := make([]EventRecord, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%r.capacity]
	}
	return out
}
