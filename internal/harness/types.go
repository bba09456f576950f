package harness

import (
	"github.com/roach88/sigevent/internal/trace"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// SessionID identifies the simulated session.
	SessionID string `json:"session_id"`

	// Trace contains every monitor operation in order.
	Trace []trace.Event `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Diagnostics are the messages the attribute reported to the host.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// FinishCode is the status the attribute asked the host to finish
	// with, or 0 if it never asked.
	FinishCode int `json:"finish_code"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(sessionID string) *Result {
	return &Result{
		Pass:        true,
		SessionID:   sessionID,
		Trace:       []trace.Event{},
		Errors:      []string{},
		Diagnostics: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
