package harness

import (
	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/diag"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Diagnostics holds every message the compile reported, in order.
	Diagnostics []diag.Message `json:"diagnostics"`

	// Compiled is the compile output, nil when the compile failed.
	Compiled *compiler.Result `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Diagnostics: []diag.Message{},
		Errors:      []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Codes returns the reported diagnostic codes in order.
func (r *Result) Codes() []string {
	codes := make([]string, len(r.Diagnostics))
	for i, m := range r.Diagnostics {
		codes[i] = string(m.Code)
	}
	return codes
}
