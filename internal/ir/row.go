package ir

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// SourceLine locates an authoring element in its source document.
type SourceLine struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// IsZero reports whether the location is unknown.
func (s SourceLine) IsZero() bool {
	return s.File == "" && s.Line == 0
}

func (s SourceLine) String() string {
	switch {
	case s.IsZero():
		return ""
	case s.Line == 0:
		return s.File
	default:
		return fmt.Sprintf("%s(%d)", s.File, s.Line)
	}
}

// Symbol identifies a row for cross-referencing: its table name plus its
// primary-key fields joined with '/'.
type Symbol struct {
	Table string `json:"table"`
	Key   string `json:"key"`
}

func (s Symbol) String() string {
	return s.Table + ":" + s.Key
}

// Row is an ordered vector of typed field values sized to its definition.
type Row struct {
	Definition *TableDefinition
	SourceLine SourceLine
	Fields     []Value
}

// NewRow creates a zero-initialized row for def.
func NewRow(def *TableDefinition, loc SourceLine) *Row {
	fields := make([]Value, len(def.Columns))
	for i, c := range def.Columns {
		fields[i] = c.zero()
	}
	return &Row{Definition: def, SourceLine: loc, Fields: fields}
}

// Table returns the name of the row's table.
func (r *Row) Table() string {
	return r.Definition.Name
}

func (r *Row) column(name string) int {
	i := r.Definition.ColumnIndex(name)
	if i < 0 {
		panic(errors.AssertionFailedf("table %s has no column %s", r.Definition.Name, name))
	}
	return i
}

// SetField stores v at position i. Storing a value the column cannot hold is
// a programming error and panics.
func (r *Row) SetField(i int, v Value) {
	if i < 0 || i >= len(r.Fields) {
		panic(errors.AssertionFailedf("table %s has no column %d", r.Definition.Name, i))
	}
	if v == nil {
		v = Null{}
	}
	col := r.Definition.Columns[i]
	if !col.accepts(v) {
		panic(errors.AssertionFailedf("column %s.%s (%s) cannot hold %T %v",
			r.Definition.Name, col.Name, col.Type, v, v))
	}
	if IsNull(v) && !col.Nullable {
		v = col.zero()
	}
	r.Fields[i] = v
}

// Set stores v in the named column.
func (r *Row) Set(column string, v Value) {
	r.SetField(r.column(column), v)
}

// SetString stores s in the named column. The empty string clears a
// nullable column to Null.
func (r *Row) SetString(column string, s string) {
	if s == "" {
		r.Set(column, Null{})
		return
	}
	r.Set(column, String(s))
}

// SetInt stores n in the named column.
func (r *Row) SetInt(column string, n int64) {
	r.Set(column, Int(n))
}

// Get returns the value of the named column.
func (r *Row) Get(column string) Value {
	return r.Fields[r.column(column)]
}

// GetString returns the named column rendered as a string.
func (r *Row) GetString(column string) string {
	return FormatValue(r.Get(column))
}

// GetInt returns the named column as an integer and whether it holds one.
func (r *Row) GetInt(column string) (int64, bool) {
	n, ok := r.Get(column).(Int)
	return int64(n), ok
}

// Symbol returns the row's cross-reference identity.
func (r *Row) Symbol() Symbol {
	keys := r.Definition.PrimaryKeys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = FormatValue(r.Fields[k])
	}
	return Symbol{Table: r.Definition.Name, Key: strings.Join(parts, "/")}
}
