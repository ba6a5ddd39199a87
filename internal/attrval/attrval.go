// Package attrval extracts typed values from attribute text.
//
// Every extractor is a pure function of its Input. Malformed user input never
// panics or returns an error: the extractor returns a sentinel value and a
// diagnostic, and the caller keeps going. A nil Input is a caller bug and
// panics with an assertion failure.
package attrval

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"

	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
)

// Sentinels returned alongside a diagnostic.
const (
	IllegalIdentifier = "!illegal"
	IllegalGUID       = "!illegal"
	IllegalInteger    = int64(-1 << 31)
)

// Input is one attribute occurrence.
type Input struct {
	Loc       ir.SourceLine
	Element   string
	Attribute string
	Value     string
}

// From builds an Input for attr on el.
func From(loc ir.SourceLine, el *etree.Element, attr *etree.Attr) *Input {
	if el == nil || attr == nil {
		panic(errors.AssertionFailedf("attribute input requires an element and an attribute"))
	}
	return &Input{Loc: loc, Element: el.Tag, Attribute: attr.Key, Value: attr.Value}
}

func check(in *Input) {
	if in == nil {
		panic(errors.AssertionFailedf("nil attribute input"))
	}
}

func msg(m diag.Message) *diag.Message {
	return &m
}

func (in *Input) empty() *diag.Message {
	return msg(diag.IllegalEmptyAttributeValue(in.Loc, in.Element, in.Attribute))
}

// Text returns the raw value; an empty value is reported unless allowEmpty.
func Text(in *Input, allowEmpty bool) (string, *diag.Message) {
	check(in)
	if in.Value == "" && !allowEmpty {
		return "", in.empty()
	}
	return in.Value, nil
}

// Enum accepts exactly one of the legal tokens.
func Enum(in *Input, legal ...string) (string, *diag.Message) {
	check(in)
	for _, l := range legal {
		if in.Value == l {
			return l, nil
		}
	}
	if in.Value == "" {
		return "", in.empty()
	}
	return "", msg(diag.IllegalAttributeValue(in.Loc, in.Element, in.Attribute, in.Value, legal...))
}

// UpperCase reports values that contain lower-case letters.
func UpperCase(in *Input) *diag.Message {
	check(in)
	if in.Value != strings.ToUpper(in.Value) {
		return msg(diag.UppercaseRequired(in.Loc, in.Element, in.Attribute, in.Value))
	}
	return nil
}
