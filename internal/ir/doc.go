// Package ir provides the unlinked intermediate representation produced by the
// compiler: sections of schema-typed tables of rows, plus the reference records
// a linker consumes.
//
// This package contains the data model only. All other internal packages
// import ir; ir imports nothing internal. This keeps the output model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Field values are a sealed Value interface (Null, String, Int); no floats
//   - Every Row is sized to its TableDefinition and type-checked on write
//   - Table definitions are immutable once shared; extensions work on clones
//   - Entities are created during one traversal and never mutated afterwards
//   - All JSON tags use snake_case
package ir
