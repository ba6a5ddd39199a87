// Package builder owns the Intermediate under construction. It is the only
// writer of sections, tables and rows.
package builder

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/candle/internal/ir"
)

var (
	// ErrUnknownTable is returned for a table name outside the effective schema.
	ErrUnknownTable = errors.New("unknown table")
	// ErrNoActiveSection is returned when rows are created before any section.
	ErrNoActiveSection = errors.New("no active section")
)

// Tables the builder writes on its own behalf.
const (
	EnsureTableTable = "WixEnsureTable"
	CustomTableTable = "WixCustomTable"
)

// ReferenceRecorder receives the valid-reference assertions the builder
// makes for tables defined outside the schema.
type ReferenceRecorder interface {
	AddValidReference(section string, loc ir.SourceLine, table string, keys ...string)
}

// Builder accumulates one Intermediate. Exactly one section is active at a
// time; it is per-compile state and not safe for concurrent use.
type Builder struct {
	defs   *ir.TableDefinitionCollection
	refs   ReferenceRecorder
	out    *ir.Intermediate
	active *ir.Section
}

// New creates a builder writing tables from defs.
func New(sourcePath string, defs *ir.TableDefinitionCollection, refs ReferenceRecorder) *Builder {
	return &Builder{defs: defs, refs: refs, out: ir.NewIntermediate(sourcePath)}
}

// CreateActiveSection starts a section and makes it the target of every
// following row until the next call.
func (b *Builder) CreateActiveSection(id string, kind ir.SectionKind, codepage int) *ir.Section {
	b.active = ir.NewSection(id, kind, codepage)
	b.out.AddSection(b.active)
	return b.active
}

// ActiveSection returns the current section, or nil before the first one.
func (b *Builder) ActiveSection() *ir.Section {
	return b.active
}

// Definitions returns the schema rows are created from.
func (b *Builder) Definitions() *ir.TableDefinitionCollection {
	return b.defs
}

// CreateRow appends a zero-initialized row to table in the active section.
func (b *Builder) CreateRow(loc ir.SourceLine, table string) (*ir.Row, error) {
	if b.active == nil {
		return nil, errors.Wrapf(ErrNoActiveSection, "creating %s row", table)
	}
	def, ok := b.defs.Lookup(table)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTable, "%q", table)
	}
	return b.active.AddRow(def, loc), nil
}

// EnsureTable guarantees the table is present in the output even without
// rows. A name outside the schema is assumed to be a custom table authored
// elsewhere and is asserted against the custom table definitions.
func (b *Builder) EnsureTable(loc ir.SourceLine, table string) error {
	if b.active == nil {
		return errors.Wrapf(ErrNoActiveSection, "ensuring table %s", table)
	}
	if def, ok := b.defs.Lookup(table); ok {
		b.active.EnsureTable(def)
	} else if b.refs != nil {
		b.refs.AddValidReference(b.active.ID, loc, CustomTableTable, table)
	}

	row, err := b.CreateRow(loc, EnsureTableTable)
	if err != nil {
		return err
	}
	row.SetString("Table", table)
	return nil
}

// Intermediate returns the output built so far.
func (b *Builder) Intermediate() *ir.Intermediate {
	return b.out
}
