package harness

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/extensions"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the authoring document, relative to the scenario file.
	Source string `yaml:"source,omitempty"`

	// Document is inline authoring, used when Source is empty.
	Document string `yaml:"document,omitempty"`

	// Extensions lists built-in extensions to register, in order.
	Extensions []string `yaml:"extensions,omitempty"`

	Options Options `yaml:"options,omitempty"`

	Expect Expectation `yaml:"expect"`

	// Assertions validate the compiled intermediate and diagnostics.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden compares the intermediate snapshot against its golden file.
	Golden bool `yaml:"golden,omitempty"`

	// dir is the directory the scenario was loaded from.
	dir string
}

// Options mirrors compiler.Options in scenario form.
type Options struct {
	Pedantic           string   `yaml:"pedantic,omitempty"`
	SuppressValidation bool     `yaml:"suppress_validation,omitempty"`
	WarningsAsErrors   bool     `yaml:"warnings_as_errors,omitempty"`
	SuppressWarnings   []string `yaml:"suppress_warnings,omitempty"`
	Verbose            bool     `yaml:"verbose,omitempty"`
}

// Expectation is the required outcome of the compile.
type Expectation struct {
	// Success is whether the compile must produce an intermediate.
	Success bool `yaml:"success"`

	// Diagnostics, when set, is the exact ordered list of reported codes.
	Diagnostics []string `yaml:"diagnostics,omitempty"`
}

// Assertion validates the compile result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Code is the diagnostic code (diagnostic).
	Code string `yaml:"code,omitempty"`

	// Line is the expected source line of a diagnostic (diagnostic).
	Line int `yaml:"line,omitempty"`

	// Count is the expected number of rows or diagnostics.
	Count *int `yaml:"count,omitempty"`

	// Table names the table (row_count, row, valid_reference, feature_backlink).
	Table string `yaml:"table,omitempty"`

	// Key is the referenced primary key (valid_reference, feature_backlink).
	Key string `yaml:"key,omitempty"`

	// Where selects rows by exact field value (row).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds the field values the selected row must have (row).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Parent and Child identify a containment edge (complex_reference).
	Parent string `yaml:"parent,omitempty"`
	Child  string `yaml:"child,omitempty"`

	// Primary, when set, requires the edge's primary flag (complex_reference).
	Primary *bool `yaml:"primary,omitempty"`

	// Component owns the backlink (feature_backlink).
	Component string `yaml:"component,omitempty"`
}

// Assertion type constants.
const (
	AssertDiagnostic       = "diagnostic"
	AssertRowCount         = "row_count"
	AssertRow              = "row"
	AssertValidReference   = "valid_reference"
	AssertComplexReference = "complex_reference"
	AssertFeatureBacklink  = "feature_backlink"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	scenario.dir = filepath.Dir(path)

	if scenario.Source != "" {
		if _, err := os.Stat(scenario.SourcePath()); err != nil {
			return nil, &SourceNotFoundError{Scenario: scenario.Name, Source: scenario.Source, ResolvedPath: scenario.SourcePath()}
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative sources resolve against the
// working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, errors.Wrap(err, "parse YAML")
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
// Scenario names must be unique within the directory.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "list scenarios")
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, errors.Newf("scenario %q defined in both %s and %s", s.Name, prev, path)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// SourcePath returns the resolved path of the scenario's source document.
func (s *Scenario) SourcePath() string {
	if s.Source == "" || filepath.IsAbs(s.Source) {
		return s.Source
	}
	return filepath.Join(s.dir, s.Source)
}

// SourceNotFoundError is returned when a scenario names a missing source.
type SourceNotFoundError struct {
	Scenario     string
	Source       string
	ResolvedPath string
}

// Error implements the error interface.
func (e *SourceNotFoundError) Error() string {
	return "scenario " + e.Scenario + " references source " + e.Source +
		" which does not exist (resolved to: " + e.ResolvedPath + ")"
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}

	if s.Description == "" {
		return errors.New("description is required")
	}

	switch {
	case s.Source == "" && s.Document == "":
		return errors.New("source or document is required")
	case s.Source != "" && s.Document != "":
		return errors.New("source and document are mutually exclusive")
	}

	for _, name := range s.Extensions {
		if _, err := extensions.New(name); err != nil {
			return err
		}
	}

	if s.Options.Pedantic != "" {
		if _, err := compiler.ParsePedanticLevel(s.Options.Pedantic); err != nil {
			return err
		}
	}

	if s.Golden && !s.Expect.Success {
		return errors.New("golden requires expect.success")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return errors.Newf("assertions[%d]: type is required", index)
	}
	if a.Count != nil && *a.Count < 0 {
		return errors.Newf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertDiagnostic:
		if a.Code == "" {
			return errors.Newf("assertions[%d]: code is required for diagnostic", index)
		}
	case AssertRowCount:
		if a.Table == "" || a.Count == nil {
			return errors.Newf("assertions[%d]: table and count are required for row_count", index)
		}
	case AssertRow:
		if a.Table == "" {
			return errors.Newf("assertions[%d]: table is required for row", index)
		}
		if len(a.Expect) == 0 {
			return errors.Newf("assertions[%d]: expect is required for row", index)
		}
	case AssertValidReference:
		if a.Table == "" || a.Key == "" {
			return errors.Newf("assertions[%d]: table and key are required for valid_reference", index)
		}
	case AssertComplexReference:
		if a.Parent == "" || a.Child == "" {
			return errors.Newf("assertions[%d]: parent and child are required for complex_reference", index)
		}
	case AssertFeatureBacklink:
		if a.Component == "" || a.Table == "" || a.Key == "" {
			return errors.Newf("assertions[%d]: component, table and key are required for feature_backlink", index)
		}
	default:
		return errors.Newf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
