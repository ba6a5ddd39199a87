// Package diag carries compiler diagnostics: the message kinds, their
// severities, and the sinks that accumulate and forward them.
//
// User authoring problems are never Go errors. Handlers report them as
// Messages and keep going; the compile fails only when a Collector has seen
// at least one error-severity message.
package diag

import (
	"fmt"

	"github.com/roach88/candle/internal/ir"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityVerbose Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityVerbose:
		return "verbose"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Code is the stable catalog identifier of a diagnostic kind.
type Code string

// Message is one diagnostic.
type Message struct {
	Code       Code          `json:"code" yaml:"code"`
	Kind       string        `json:"kind" yaml:"kind"`
	Severity   Severity      `json:"severity" yaml:"severity"`
	SourceLine ir.SourceLine `json:"source_line" yaml:"source_line"`
	Text       string        `json:"message" yaml:"message"`
}

// IsError reports whether the message fails the compile.
func (m Message) IsError() bool {
	return m.Severity == SeverityError
}

func (m Message) String() string {
	prefix := m.SourceLine.String()
	if prefix == "" {
		prefix = "candle"
	}
	return fmt.Sprintf("%s : %s %s : %s", prefix, m.Severity, m.Code, m.Text)
}

// Sink receives diagnostics.
type Sink interface {
	OnMessage(Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message)

// OnMessage implements Sink.
func (f SinkFunc) OnMessage(m Message) {
	f(m)
}

// Discard drops every message.
var Discard Sink = SinkFunc(func(Message) {})

// Tee forwards each message to every sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(m Message) {
		for _, s := range sinks {
			if s != nil {
				s.OnMessage(m)
			}
		}
	})
}
