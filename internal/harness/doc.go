// Package harness provides conformance testing for the candle compiler.
//
// A scenario names an authoring document, the extensions and options to
// compile it with, the diagnostics the compile must produce and assertions
// over the resulting intermediate.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: registry_key_path
//	description: "Registry value becomes the component key path"
//	source: registry_key_path.wxs
//	extensions: [util]
//	options:
//	  pedantic: legendary
//	  suppress_warnings: [W102]
//	expect:
//	  success: true
//	  diagnostics: [W101]
//	assertions:
//	  - type: row_count
//	    table: Registry
//	    count: 1
//	  - type: row
//	    table: Component
//	    where: { Component: C1 }
//	    expect: { Attributes: 4 }
//	golden: true
//
// The source path is resolved relative to the scenario file. A scenario may
// carry its document inline under document: instead.
//
// # Assertion Types
//
//   - diagnostic: a code was reported, optionally count times or at a line
//   - row_count: a table holds exactly count rows
//   - row: a row matching where has the expected field values
//   - valid_reference: a valid reference to table/key was recorded
//   - complex_reference: a parent/child containment edge was recorded
//   - feature_backlink: a component carries a backlink to table/key
//
// # Golden Snapshots
//
// Scenarios with golden: true compare the canonical JSON snapshot of the
// intermediate, without source lines, against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
