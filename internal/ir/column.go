package ir

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ColumnType is the storage type of a column.
type ColumnType int

const (
	ColumnTypeUnknown ColumnType = iota
	ColumnTypeString
	ColumnTypeLocalized
	ColumnTypeNumber
	ColumnTypeObject
	ColumnTypePreserved
)

var columnTypeNames = map[ColumnType]string{
	ColumnTypeUnknown:   "unknown",
	ColumnTypeString:    "string",
	ColumnTypeLocalized: "localized",
	ColumnTypeNumber:    "number",
	ColumnTypeObject:    "object",
	ColumnTypePreserved: "preserved",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType maps a schema type name to its ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	for t, name := range columnTypeNames {
		if name == s && t != ColumnTypeUnknown {
			return t, nil
		}
	}
	return ColumnTypeUnknown, errors.Newf("unknown column type %q", s)
}

// ColumnCategory is the installer-database validation category of a column.
type ColumnCategory string

const (
	CategoryNone             ColumnCategory = ""
	CategoryText             ColumnCategory = "Text"
	CategoryUpperCase        ColumnCategory = "UpperCase"
	CategoryLowerCase        ColumnCategory = "LowerCase"
	CategoryInteger          ColumnCategory = "Integer"
	CategoryDoubleInteger    ColumnCategory = "DoubleInteger"
	CategoryTimeDate         ColumnCategory = "TimeDate"
	CategoryIdentifier       ColumnCategory = "Identifier"
	CategoryProperty         ColumnCategory = "Property"
	CategoryFilename         ColumnCategory = "Filename"
	CategoryWildCardFilename ColumnCategory = "WildCardFilename"
	CategoryPath             ColumnCategory = "Path"
	CategoryPaths            ColumnCategory = "Paths"
	CategoryAnyPath          ColumnCategory = "AnyPath"
	CategoryDefaultDir       ColumnCategory = "DefaultDir"
	CategoryRegPath          ColumnCategory = "RegPath"
	CategoryFormatted        ColumnCategory = "Formatted"
	CategoryKeyFormatted     ColumnCategory = "KeyFormatted"
	CategoryTemplate         ColumnCategory = "Template"
	CategoryCondition        ColumnCategory = "Condition"
	CategoryGuid             ColumnCategory = "Guid"
	CategoryVersion          ColumnCategory = "Version"
	CategoryLanguage         ColumnCategory = "Language"
	CategoryBinary           ColumnCategory = "Binary"
	CategoryCustomSource     ColumnCategory = "CustomSource"
	CategoryCabinet          ColumnCategory = "Cabinet"
	CategoryShortcut         ColumnCategory = "Shortcut"
)

// Modularize is the policy a merge-module build applies to a column's values.
type Modularize string

const (
	ModularizeNone               Modularize = "none"
	ModularizeColumn             Modularize = "column"
	ModularizeCondition          Modularize = "condition"
	ModularizeIcon               Modularize = "icon"
	ModularizeProperty           Modularize = "property"
	ModularizeSemicolonDelimited Modularize = "semicolonDelimited"
	ModularizeCompanionFile      Modularize = "companionFile"
)

// ColumnDefinition is the static schema of one column.
type ColumnDefinition struct {
	Name        string         `json:"name"`
	Type        ColumnType     `json:"type"`
	Length      int            `json:"length"`
	PrimaryKey  bool           `json:"primary_key,omitempty"`
	Nullable    bool           `json:"nullable,omitempty"`
	Category    ColumnCategory `json:"category,omitempty"`
	Modularize  Modularize     `json:"modularize,omitempty"`
	KeyTable    string         `json:"key_table,omitempty"`
	KeyColumn   int            `json:"key_column,omitempty"`
	MinValue    *int64         `json:"min_value,omitempty"`
	MaxValue    *int64         `json:"max_value,omitempty"`
	Set         []string       `json:"set,omitempty"`
	Description string         `json:"description,omitempty"`
}

// IsNumber reports whether the column stores integers.
func (c *ColumnDefinition) IsNumber() bool {
	return c.Type == ColumnTypeNumber
}

// zero returns the initial value of a freshly created field.
func (c *ColumnDefinition) zero() Value {
	switch {
	case c.Nullable:
		return Null{}
	case c.IsNumber():
		return Int(0)
	default:
		return String("")
	}
}

// accepts reports whether v may be stored in the column.
func (c *ColumnDefinition) accepts(v Value) bool {
	switch val := v.(type) {
	case Null:
		return true
	case Int:
		return c.IsNumber()
	case String:
		return !c.IsNumber() || IsPlaceholder(string(val))
	default:
		return false
	}
}

func (c *ColumnDefinition) clone() *ColumnDefinition {
	cp := *c
	if c.MinValue != nil {
		v := *c.MinValue
		cp.MinValue = &v
	}
	if c.MaxValue != nil {
		v := *c.MaxValue
		cp.MaxValue = &v
	}
	cp.Set = append([]string(nil), c.Set...)
	return &cp
}
