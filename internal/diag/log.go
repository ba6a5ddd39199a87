package diag

import (
	"go.uber.org/zap"
)

// Standard log field names for diagnostics.
const (
	FieldCode = "code"
	FieldKind = "kind"
	FieldFile = "file"
	FieldLine = "line"
)

// LogSink writes every diagnostic to a zap logger: errors at Error,
// warnings at Warn and verbose messages at Debug.
type LogSink struct {
	Logger *zap.Logger
}

// NewLogSink creates a LogSink; a nil logger logs nowhere.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{Logger: logger}
}

// OnMessage implements Sink.
func (s *LogSink) OnMessage(m Message) {
	fields := []zap.Field{
		zap.String(FieldCode, string(m.Code)),
		zap.String(FieldKind, m.Kind),
	}
	if m.SourceLine.File != "" {
		fields = append(fields, zap.String(FieldFile, m.SourceLine.File))
	}
	if m.SourceLine.Line > 0 {
		fields = append(fields, zap.Int(FieldLine, m.SourceLine.Line))
	}

	switch m.Severity {
	case SeverityError:
		s.Logger.Error(m.Text, fields...)
	case SeverityWarning:
		s.Logger.Warn(m.Text, fields...)
	default:
		s.Logger.Debug(m.Text, fields...)
	}
}
