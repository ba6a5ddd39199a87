package store

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/candle/internal/ir"
)

// marshalFields converts a row's field vector to canonical JSON TEXT.
// Canonical form keeps equal rows byte-identical across saves.
func marshalFields(fields []ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", errors.Wrap(err, "marshal fields")
	}
	return string(data), nil
}

// unmarshalFields parses a stored field vector and checks it against def.
func unmarshalFields(def *ir.TableDefinition, data string) ([]ir.Value, error) {
	values, err := ir.UnmarshalValues([]byte(data))
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s fields", def.Name)
	}
	if len(values) != len(def.Columns) {
		return nil, errors.Newf("table %s has %d columns, stored row has %d fields",
			def.Name, len(def.Columns), len(values))
	}
	return values, nil
}

// restoreRow rebuilds a row, validating every field against its column.
func restoreRow(def *ir.TableDefinition, loc ir.SourceLine, values []ir.Value) (row *ir.Row, err error) {
	defer func() {
		// SetField panics on a value the column cannot hold.
		if r := recover(); r != nil {
			row, err = nil, errors.Newf("table %s: %v", def.Name, r)
		}
	}()
	row = ir.NewRow(def, loc)
	for i, v := range values {
		row.SetField(i, v)
	}
	return row, nil
}

func sourceLine(file string, line int) ir.SourceLine {
	return ir.SourceLine{File: file, Line: line}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
