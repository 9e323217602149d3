package harness

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step    int           `json:"step"`
	Action  string        `json:"action"`
	Reading string        `json:"reading,omitempty"`
	Outcome string        `json:"outcome"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
	Outputs []TraceOutput `json:"outputs,omitempty"`
}

// TraceOutput is one output value of a submitted or reprocessed reading.
type TraceOutput struct {
	OutputID int64    `json:"output_id"`
	Acronym  string   `json:"acronym"`
	Value    *float64 `json:"value,omitempty"`
	Status   string   `json:"status,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Step outcomes.
const (
	OutcomePersisted = "persisted"
	OutcomePartial   = "partial"
	OutcomeRejected  = "rejected"
	OutcomeApplied   = "applied"
	OutcomeError     = "error"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations and assertions.
	// Empty if Pass is true.
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

// AddError adds a failed expectation or assertion and marks the result as
// failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
