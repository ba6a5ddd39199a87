// Package tables holds the core table schema.
//
// Definitions are authored in CUE (tables.cue) and compiled into an
// ir.TableDefinitionCollection. Extensions can author their own tables the
// same way through Compile.
package tables

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/cockroachdb/errors"

	"github.com/roach88/candle/internal/ir"
)

//go:embed tables.cue
var coreSource []byte

var core = sync.OnceValues(func() (*ir.TableDefinitionCollection, error) {
	return Compile(coreSource, "tables.cue")
})

// Core returns the shared core table definitions. The collection must not be
// mutated; clone it first.
func Core() *ir.TableDefinitionCollection {
	defs, err := core()
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "core table definitions"))
	}
	return defs
}

// CompileError locates a problem in a table source.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile parses CUE source declaring a top-level `tables` struct and returns
// its definitions.
func Compile(src []byte, filename string) (*ir.TableDefinitionCollection, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("tables"))
	if !tablesVal.Exists() {
		return nil, &CompileError{Field: "tables", Message: "tables is required", Pos: v.Pos()}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	defs, err := ir.NewTableDefinitionCollection()
	if err != nil {
		return nil, err
	}
	for iter.Next() {
		def, err := compileTable(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		if err := defs.Add(def); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// tableSource mirrors #Table for decoding.
type tableSource struct {
	Unreal  bool           `json:"unreal"`
	Columns []columnSource `json:"columns"`
}

// columnSource mirrors #Column for decoding.
type columnSource struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Length      int      `json:"length"`
	PrimaryKey  bool     `json:"primaryKey"`
	Nullable    bool     `json:"nullable"`
	Category    string   `json:"category"`
	Modularize  string   `json:"modularize"`
	KeyTable    string   `json:"keyTable"`
	KeyColumn   int      `json:"keyColumn"`
	MinValue    *int64   `json:"minValue"`
	MaxValue    *int64   `json:"maxValue"`
	Set         []string `json:"set"`
	Description string   `json:"description"`
}

func compileTable(name string, v cue.Value) (*ir.TableDefinition, error) {
	var src tableSource
	if err := v.Decode(&src); err != nil {
		return nil, formatCUEError(err)
	}

	def := ir.NewTableDefinition(name, src.Unreal)
	for _, c := range src.Columns {
		if c.Type == "" {
			c.Type = ir.ColumnTypeString.String()
		}
		typ, err := ir.ParseColumnType(c.Type)
		if err != nil {
			return nil, &CompileError{Field: name + "." + c.Name, Message: err.Error(), Pos: v.Pos()}
		}
		modularize := ir.Modularize(c.Modularize)
		if modularize == "" {
			modularize = ir.ModularizeNone
		}
		def.Columns = append(def.Columns, &ir.ColumnDefinition{
			Name:        c.Name,
			Type:        typ,
			Length:      c.Length,
			PrimaryKey:  c.PrimaryKey,
			Nullable:    c.Nullable,
			Category:    ir.ColumnCategory(c.Category),
			Modularize:  modularize,
			KeyTable:    c.KeyTable,
			KeyColumn:   c.KeyColumn,
			MinValue:    c.MinValue,
			MaxValue:    c.MaxValue,
			Set:         c.Set,
			Description: c.Description,
		})
	}
	if len(def.PrimaryKeys()) == 0 && !def.Unreal {
		return nil, &CompileError{Field: name, Message: "table has no primary key", Pos: v.Pos()}
	}
	return def, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
