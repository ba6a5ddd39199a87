package ir

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// ErrDuplicateTable is returned when a collection already holds a definition
// with the same name.
var ErrDuplicateTable = errors.New("duplicate table definition")

// TableDefinition is the static schema of one table.
type TableDefinition struct {
	Name    string              `json:"name"`
	Columns []*ColumnDefinition `json:"columns"`
	// Unreal tables exist only in the intermediate and never reach the
	// final database.
	Unreal bool `json:"unreal,omitempty"`
}

// NewTableDefinition creates a table definition.
func NewTableDefinition(name string, unreal bool, columns ...*ColumnDefinition) *TableDefinition {
	return &TableDefinition{Name: name, Columns: columns, Unreal: unreal}
}

// ColumnIndex returns the position of the named column, or -1.
func (t *TableDefinition) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// PrimaryKeys returns the positions of the primary-key columns in order.
func (t *TableDefinition) PrimaryKeys() []int {
	var keys []int
	for i, c := range t.Columns {
		if c.PrimaryKey {
			keys = append(keys, i)
		}
	}
	return keys
}

// Clone returns a deep copy of the definition.
func (t *TableDefinition) Clone() *TableDefinition {
	cp := &TableDefinition{Name: t.Name, Unreal: t.Unreal}
	cp.Columns = make([]*ColumnDefinition, len(t.Columns))
	for i, c := range t.Columns {
		cp.Columns[i] = c.clone()
	}
	return cp
}

// TableDefinitionCollection is a name-indexed set of table definitions.
// Once a collection is shared it is treated as immutable; callers that need
// to add definitions Clone it first.
type TableDefinitionCollection struct {
	byName map[string]*TableDefinition
}

// NewTableDefinitionCollection builds a collection, rejecting duplicates.
func NewTableDefinitionCollection(defs ...*TableDefinition) (*TableDefinitionCollection, error) {
	c := &TableDefinitionCollection{byName: make(map[string]*TableDefinition, len(defs))}
	for _, d := range defs {
		if err := c.Add(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add inserts a definition. Fails with ErrDuplicateTable on a name collision.
func (c *TableDefinitionCollection) Add(def *TableDefinition) error {
	if def == nil || def.Name == "" {
		return errors.AssertionFailedf("table definition must have a name")
	}
	if _, exists := c.byName[def.Name]; exists {
		return errors.Wrapf(ErrDuplicateTable, "table %q", def.Name)
	}
	c.byName[def.Name] = def
	return nil
}

// Lookup returns the named definition and whether it exists.
func (c *TableDefinitionCollection) Lookup(name string) (*TableDefinition, bool) {
	def, ok := c.byName[name]
	return def, ok
}

// Contains reports whether the named table is defined.
func (c *TableDefinitionCollection) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Len returns the number of definitions.
func (c *TableDefinitionCollection) Len() int {
	return len(c.byName)
}

// Names returns the table names in sorted order.
func (c *TableDefinitionCollection) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the definitions sorted by name.
func (c *TableDefinitionCollection) All() []*TableDefinition {
	names := c.Names()
	defs := make([]*TableDefinition, len(names))
	for i, name := range names {
		defs[i] = c.byName[name]
	}
	return defs
}

// Clone returns a collection with deep-copied definitions.
func (c *TableDefinitionCollection) Clone() *TableDefinitionCollection {
	cp := &TableDefinitionCollection{byName: make(map[string]*TableDefinition, len(c.byName))}
	for name, def := range c.byName {
		cp.byName[name] = def.Clone()
	}
	return cp
}
