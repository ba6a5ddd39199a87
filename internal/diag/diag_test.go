package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/candle/internal/ir"
)

var loc = ir.SourceLine{File: "product.wxs", Line: 7}

func TestCollectorCountsBySeverity(t *testing.T) {
	c := NewCollector(nil)
	c.OnMessage(UnexpectedElement(loc, "Component", "Bogus"))
	c.OnMessage(PropertyUseless(loc, "P"))
	c.OnMessage(GeneratedIdentifier(loc, "Registry", "reg123"))

	assert.True(t, c.EncounteredError())
	assert.Equal(t, 1, c.Errors())
	assert.Equal(t, 1, c.Warnings())
	assert.Equal(t, []Code{ErrUnexpectedElement, WarnPropertyUseless}, c.Codes())
}

func TestCollectorKeepsVerboseWhenAsked(t *testing.T) {
	c := NewCollector(nil, WithVerbose())
	c.OnMessage(GeneratedIdentifier(loc, "Registry", "reg123"))

	require.Len(t, c.Messages(), 1)
	assert.False(t, c.EncounteredError())
}

func TestCollectorWarningsAsErrors(t *testing.T) {
	c := NewCollector(nil, WithWarningsAsErrors())
	c.OnMessage(ImplicitComponentKeyPath(loc, "C"))

	assert.True(t, c.EncounteredError())
	assert.Equal(t, SeverityError, c.Messages()[0].Severity)
}

func TestCollectorSuppressedWarnings(t *testing.T) {
	c := NewCollector(nil, WithSuppressedWarnings(WarnImplicitComponentKeyPath))
	c.OnMessage(ImplicitComponentKeyPath(loc, "C"))
	c.OnMessage(PropertyUseless(loc, "P"))

	assert.Equal(t, []Code{WarnPropertyUseless}, c.Codes())
}

func TestCollectorSuppressionDoesNotDropErrors(t *testing.T) {
	c := NewCollector(nil, WithSuppressedWarnings(ErrUnexpectedElement))
	c.OnMessage(UnexpectedElement(loc, "Component", "Bogus"))

	assert.True(t, c.EncounteredError())
}

func TestCollectorForwardsDownstream(t *testing.T) {
	var seen []Message
	c := NewCollector(SinkFunc(func(m Message) { seen = append(seen, m) }))
	c.OnMessage(ExpectedAttribute(loc, "Component", "Id"))

	require.Len(t, seen, 1)
	assert.Equal(t, ErrExpectedAttribute, seen[0].Code)
}

func TestTee(t *testing.T) {
	var a, b int
	sink := Tee(SinkFunc(func(Message) { a++ }), nil, SinkFunc(func(Message) { b++ }))
	sink.OnMessage(PropertyUseless(loc, "P"))
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestMessageString(t *testing.T) {
	m := UnexpectedAttribute(loc, "File", "Bogus")
	assert.Equal(t,
		"product.wxs(7) : error E102 : The File element contains an unexpected attribute 'Bogus'.",
		m.String())

	m.SourceLine = ir.SourceLine{}
	assert.Contains(t, m.String(), "candle : error E102")
}

func TestCatalogSeverities(t *testing.T) {
	assert.True(t, IllegalYesNoValue(loc, "A", "B", "maybe").IsError())
	assert.False(t, AdvertiseStateMismatch(loc, "Class", "no", "yes").IsError())
	assert.Equal(t, SeverityVerbose, ValidationSkipped(loc, "suppressed").Severity)
	assert.Contains(t, IllegalAttributeValue(loc, "A", "B", "x", "one", "two").Text, "'one', 'two'")
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))

	sink.OnMessage(UnexpectedElement(loc, "Component", "Bogus"))
	sink.OnMessage(PropertyUseless(loc, "P"))
	sink.OnMessage(GeneratedIdentifier(ir.SourceLine{}, "Registry", "reg1"))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "E101", fields[FieldCode])
	assert.Equal(t, "product.wxs", fields[FieldFile])
	assert.Equal(t, int64(7), fields[FieldLine])
	assert.NotContains(t, entries[2].ContextMap(), FieldFile)
}

func TestNewLogSinkNilLogger(t *testing.T) {
	sink := NewLogSink(nil)
	assert.NotPanics(t, func() { sink.OnMessage(PropertyUseless(loc, "P")) })
}
