package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Value is a sealed interface over the field values a Row can hold.
// Only Null, String and Int implement it.
type Value interface {
	fieldValue() // Sealed - only these types implement it
}

// Null is the absent value of a nullable column.
type Null struct{}

func (Null) fieldValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string field value.
type String string

func (String) fieldValue() {}

// Int is an integer field value. Always int64, never float.
type Int int64

func (Int) fieldValue() {}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// placeholderPattern matches an unresolved localization or bind variable such
// as !(loc.ProductName) or !(bind.FileVersion.app.exe).
var placeholderPattern = regexp.MustCompile(`^!\((loc|bind|wix)\.[^()]+\)$`)

// IsPlaceholder reports whether s is an unresolved variable reference that a
// later phase substitutes. Number columns accept these verbatim.
func IsPlaceholder(s string) bool {
	return placeholderPattern.MatchString(s)
}

// FormatValue renders a field value the way it appears in symbols and
// text output. Null renders as the empty string.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return fmt.Sprintf("%d", int64(val))
	default:
		return ""
	}
}

// MarshalValue marshals a Value to JSON bytes.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes a JSON scalar into a Value. Floats, booleans and
// composite values are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return nil, fmt.Errorf("invalid JSON value: %s", data)
		}
		return Null{}, nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	case '[', '{', 't', 'f':
		return nil, fmt.Errorf("field values must be string, integer or null: %s", data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		if strings.ContainsAny(string(n), ".eE") {
			return nil, fmt.Errorf("floats are forbidden in field values: %s", n)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", n)
		}
		return Int(i), nil
	}
}

// UnmarshalValues decodes a JSON array of field values.
func UnmarshalValues(data []byte) ([]Value, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	values := make([]Value, len(raw))
	for i, r := range raw {
		v, err := UnmarshalValue(r)
		if err != nil {
			return nil, fmt.Errorf("field[%d]: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}
