package harness

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sebdah/goldie/v2"

	"github.com/roach88/candle/internal/ir"
)

// Snapshot renders a compile result as canonical JSON. Source lines are
// left out so unrelated edits to a scenario document do not churn goldens.
func Snapshot(result *Result) ([]byte, error) {
	if result.Compiled == nil {
		return nil, errors.New("no intermediate to snapshot: the compile failed")
	}
	return ir.MarshalCanonical(result.Compiled.Intermediate.Snapshot(false))
}

// RunWithGolden executes a scenario, fails the test on any unmet
// expectation and compares the intermediate against
// testdata/golden/{scenario.Name}.golden when the scenario asks for it.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	if !scenario.Golden || !result.Pass {
		return nil
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's snapshot against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
