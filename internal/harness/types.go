package harness

import "github.com/roach88/fdn/internal/rename"

// TraceEvent is the outcome of one path in one step. Paths are relative to
// the scenario tree and use forward slashes.
type TraceEvent struct {
	Step     int          `json:"step"`
	Op       string       `json:"op"`
	Path     string       `json:"path"`
	New      string       `json:"new,omitempty"`
	Hops     []rename.Hop `json:"hops,omitempty"`
	Status   string       `json:"status"`
	Code     string       `json:"code,omitempty"`
	RecordID int64        `json:"record_id,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains every per-path outcome in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
