package harness

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/extensions"
	"github.com/roach88/candle/internal/sourceline"
)

// Harness compiles scenarios. Each run builds its own compiler so scenarios
// with different extensions or options never share state.
type Harness struct {
	logger *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes compiler logging to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a test scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run compiles the scenario's document and evaluates its expectations.
//
// An error means the scenario could not be executed at all (unreadable
// source, broken extension). A compile that fails is an ordinary outcome,
// checked against expect.success.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	cm, err := h.compiler(scenario)
	if err != nil {
		return nil, err
	}

	name, data, err := scenario.document()
	if err != nil {
		return nil, err
	}
	doc, err := sourceline.Load(data, name)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s: load document", scenario.Name)
	}

	result := NewResult()
	compiled, err := cm.Compile(doc, name, diag.SinkFunc(func(m diag.Message) {
		result.Diagnostics = append(result.Diagnostics, m)
	}))
	switch {
	case err == nil:
		result.Compiled = compiled
	case !errors.Is(err, compiler.ErrCompilationFailed):
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}

	h.checkExpectation(scenario.Expect, result)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) compiler(scenario *Scenario) (*compiler.Compiler, error) {
	opts := compiler.Options{
		SuppressValidation: scenario.Options.SuppressValidation,
		WarningsAsErrors:   scenario.Options.WarningsAsErrors,
		SuppressWarnings:   scenario.Options.SuppressWarnings,
		Verbose:            scenario.Options.Verbose,
		Logger:             h.logger.With(zap.String("scenario", scenario.Name)),
	}
	if scenario.Options.Pedantic != "" {
		level, err := compiler.ParsePedanticLevel(scenario.Options.Pedantic)
		if err != nil {
			return nil, err
		}
		opts.Pedantic = level
	}

	cm := compiler.New(opts)
	if err := extensions.RegisterAll(cm, scenario.Extensions); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}
	return cm, nil
}

// document returns the source name recorded in the intermediate and the
// document bytes. The name is the base name so snapshots do not depend on
// where the scenario lives.
func (s *Scenario) document() (string, []byte, error) {
	if s.Source == "" {
		return s.Name + ".wxs", []byte(s.Document), nil
	}
	data, err := os.ReadFile(s.SourcePath())
	if err != nil {
		return "", nil, errors.Wrapf(err, "scenario %s: read source", s.Name)
	}
	return filepath.Base(s.Source), data, nil
}

func (h *Harness) checkExpectation(expect Expectation, result *Result) {
	succeeded := result.Compiled != nil
	if succeeded != expect.Success {
		result.AddError(errors.Newf("expected success=%t, got success=%t (diagnostics: %s)",
			expect.Success, succeeded, formatDiagnostics(result.Diagnostics)).Error())
	}

	if expect.Diagnostics == nil {
		return
	}
	want := make([]string, len(expect.Diagnostics))
	for i, code := range expect.Diagnostics {
		want[i] = strings.ToUpper(code)
	}
	if got := result.Codes(); !slices.Equal(want, got) {
		result.AddError(errors.Newf("expected diagnostics %v, got %v (%s)",
			want, got, formatDiagnostics(result.Diagnostics)).Error())
	}
}

func formatDiagnostics(messages []diag.Message) string {
	if len(messages) == 0 {
		return "none"
	}
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.String()
	}
	return strings.Join(parts, "; ")
}
