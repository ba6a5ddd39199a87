package ir

import (
	"fmt"
	"sort"
)

// SectionKind tags the top-level authoring unit a Section came from.
type SectionKind int

const (
	SectionUnknown SectionKind = iota
	SectionFragment
	SectionModule
	SectionProduct
	SectionPatchCreation
)

var sectionKindNames = map[SectionKind]string{
	SectionUnknown:       "unknown",
	SectionFragment:      "fragment",
	SectionModule:        "module",
	SectionProduct:       "product",
	SectionPatchCreation: "patchCreation",
}

func (k SectionKind) String() string {
	if name, ok := sectionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SectionKind(%d)", int(k))
}

// ParseSectionKind maps a kind name back to its SectionKind.
func ParseSectionKind(s string) (SectionKind, error) {
	for k, name := range sectionKindNames {
		if name == s {
			return k, nil
		}
	}
	return SectionUnknown, fmt.Errorf("unknown section kind %q", s)
}

// Table is a named, schema-typed collection of rows.
type Table struct {
	Definition *TableDefinition
	Rows       []*Row
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.Definition.Name
}

// Section owns the tables produced by one top-level authoring unit.
type Section struct {
	ID       string
	Kind     SectionKind
	Codepage int
	tables   map[string]*Table
}

// NewSection creates an empty section.
func NewSection(id string, kind SectionKind, codepage int) *Section {
	return &Section{ID: id, Kind: kind, Codepage: codepage, tables: make(map[string]*Table)}
}

// EnsureTable returns the section's table for def, creating it if needed.
func (s *Section) EnsureTable(def *TableDefinition) *Table {
	if t, ok := s.tables[def.Name]; ok {
		return t
	}
	t := &Table{Definition: def}
	s.tables[def.Name] = t
	return t
}

// AddRow appends a zero-initialized row for def, creating the table on
// first use.
func (s *Section) AddRow(def *TableDefinition, loc SourceLine) *Row {
	t := s.EnsureTable(def)
	row := NewRow(def, loc)
	t.Rows = append(t.Rows, row)
	return row
}

// Table returns the named table and whether it exists.
func (s *Section) Table(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Rows returns the rows of the named table, or nil.
func (s *Section) Rows(name string) []*Row {
	if t, ok := s.tables[name]; ok {
		return t.Rows
	}
	return nil
}

// Tables returns the section's tables sorted by name.
func (s *Section) Tables() []*Table {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	tables := make([]*Table, len(names))
	for i, name := range names {
		tables[i] = s.tables[name]
	}
	return tables
}

// Intermediate is the output of one compile: an ordered sequence of
// sections plus the path of the source document.
type Intermediate struct {
	SourcePath string
	Sections   []*Section
}

// NewIntermediate creates an empty intermediate.
func NewIntermediate(sourcePath string) *Intermediate {
	return &Intermediate{SourcePath: sourcePath}
}

// AddSection appends a section.
func (i *Intermediate) AddSection(s *Section) {
	i.Sections = append(i.Sections, s)
}

// Rows collects the named table's rows across all sections.
func (i *Intermediate) Rows(table string) []*Row {
	var rows []*Row
	for _, s := range i.Sections {
		rows = append(rows, s.Rows(table)...)
	}
	return rows
}
