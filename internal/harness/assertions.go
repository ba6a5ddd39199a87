package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Messages []diag.Message // Diagnostics for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Messages) > 0 {
		fmt.Fprintf(&buf, "\nDiagnostics:\n")
		for i, m := range e.Messages {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, m)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	if a.Type == AssertDiagnostic {
		return assertDiagnostic(result.Diagnostics, a)
	}
	if result.Compiled == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: "a compiled intermediate",
			Actual:   "the compile failed",
			Messages: result.Diagnostics,
		}
	}

	switch a.Type {
	case AssertRowCount:
		return assertRowCount(result, a)
	case AssertRow:
		return assertRow(result, a)
	case AssertValidReference:
		return assertValidReference(result, a)
	case AssertComplexReference:
		return assertComplexReference(result, a)
	case AssertFeatureBacklink:
		return assertFeatureBacklink(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertDiagnostic checks that a code was reported, Count times when set and
// at Line when set.
func assertDiagnostic(messages []diag.Message, a Assertion) error {
	code := diag.Code(strings.ToUpper(a.Code))
	matching := lo.Filter(messages, func(m diag.Message, _ int) bool {
		return m.Code == code && (a.Line == 0 || m.SourceLine.Line == a.Line)
	})

	where := ""
	if a.Line != 0 {
		where = fmt.Sprintf(" at line %d", a.Line)
	}
	switch {
	case a.Count != nil && len(matching) != *a.Count:
		return &AssertionError{
			Type:     AssertDiagnostic,
			Expected: fmt.Sprintf("%s reported %d time(s)%s", code, *a.Count, where),
			Actual:   fmt.Sprintf("reported %d time(s)", len(matching)),
			Messages: messages,
		}
	case a.Count == nil && len(matching) == 0:
		return &AssertionError{
			Type:     AssertDiagnostic,
			Expected: fmt.Sprintf("%s reported%s", code, where),
			Actual:   "not reported",
			Messages: messages,
		}
	}
	return nil
}

func assertRowCount(result *Result, a Assertion) error {
	rows := result.Compiled.Intermediate.Rows(a.Table)
	if len(rows) != *a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d row(s) in %s", *a.Count, a.Table),
			Actual:   fmt.Sprintf("%d row(s)", len(rows)),
		}
	}
	return nil
}

// assertRow finds the rows matching Where and checks that one of them holds
// every Expect value.
func assertRow(result *Result, a Assertion) error {
	rows := result.Compiled.Intermediate.Rows(a.Table)
	if len(rows) == 0 {
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("a %s row matching %s", a.Table, formatFields(a.Where)),
			Actual:   "table is empty",
		}
	}
	def := rows[0].Definition
	for _, fields := range []map[string]any{a.Where, a.Expect} {
		for column := range fields {
			if def.ColumnIndex(column) < 0 {
				return fmt.Errorf("table %s has no column %s", a.Table, column)
			}
		}
	}

	candidates := lo.Filter(rows, func(r *ir.Row, _ int) bool { return rowMatches(r, a.Where) })
	if len(candidates) == 0 {
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("a %s row matching %s", a.Table, formatFields(a.Where)),
			Actual:   fmt.Sprintf("no match among %d row(s): %s", len(rows), formatRows(rows)),
		}
	}
	for _, r := range candidates {
		if rowMatches(r, a.Expect) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRow,
		Expected: fmt.Sprintf("%s row %s with %s", a.Table, formatFields(a.Where), formatFields(a.Expect)),
		Actual:   formatRows(candidates),
	}
}

func assertValidReference(result *Result, a Assertion) error {
	want := ir.Symbol{Table: a.Table, Key: a.Key}
	refs := result.Compiled.References.UniqueValidReferences()
	if lo.Contains(refs, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertValidReference,
		Expected: "a reference to " + want.String(),
		Actual:   fmt.Sprintf("%v", lo.Map(refs, func(s ir.Symbol, _ int) string { return s.String() })),
	}
}

func assertComplexReference(result *Result, a Assertion) error {
	edges := result.Compiled.References.ComplexReferences()
	for _, e := range edges {
		if e.ParentID != a.Parent || e.ChildID != a.Child {
			continue
		}
		if a.Primary != nil && e.Primary != *a.Primary {
			continue
		}
		return nil
	}
	expected := fmt.Sprintf("%s contains %s", a.Parent, a.Child)
	if a.Primary != nil {
		expected += fmt.Sprintf(" (primary=%t)", *a.Primary)
	}
	return &AssertionError{
		Type:     AssertComplexReference,
		Expected: expected,
		Actual: fmt.Sprintf("%v", lo.Map(edges, func(e ir.ComplexReference, _ int) string {
			return fmt.Sprintf("%s %s -> %s %s (primary=%t)", e.ParentType, e.ParentID, e.ChildType, e.ChildID, e.Primary)
		})),
	}
}

func assertFeatureBacklink(result *Result, a Assertion) error {
	want := ir.Symbol{Table: a.Table, Key: a.Key}
	links := result.Compiled.References.BacklinksFor(a.Component)
	if lo.ContainsBy(links, func(l ir.FeatureBacklink) bool { return l.Target == want }) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFeatureBacklink,
		Expected: fmt.Sprintf("component %s backlinked to %s", a.Component, want),
		Actual: fmt.Sprintf("%v", lo.Map(links, func(l ir.FeatureBacklink, _ int) string {
			return l.Target.String()
		})),
	}
}

// rowMatches reports whether every field in want equals the row's value.
// A nil want value matches a null field.
func rowMatches(r *ir.Row, want map[string]any) bool {
	for column, expected := range want {
		if !valueEquals(r.Get(column), expected) {
			return false
		}
	}
	return true
}

// valueEquals compares a field value with a YAML scalar. Integers compare
// numerically; everything else compares by its rendered text.
func valueEquals(actual ir.Value, expected any) bool {
	if expected == nil {
		return ir.IsNull(actual)
	}
	if ir.IsNull(actual) {
		return false
	}
	switch want := expected.(type) {
	case int:
		n, ok := actual.(ir.Int)
		return ok && int64(n) == int64(want)
	case int64:
		n, ok := actual.(ir.Int)
		return ok && int64(n) == want
	default:
		return ir.FormatValue(actual) == fmt.Sprint(want)
	}
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "{}"
	}
	keys := lo.Keys(fields)
	sort.Strings(keys)
	parts := lo.Map(keys, func(k string, _ int) string { return fmt.Sprintf("%s=%v", k, fields[k]) })
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatRows(rows []*ir.Row) string {
	return strings.Join(lo.Map(rows, func(r *ir.Row, _ int) string {
		return fmt.Sprintf("%v", lo.Map(r.Fields, func(v ir.Value, _ int) string { return ir.FormatValue(v) }))
	}), "; ")
}
