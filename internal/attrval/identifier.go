package attrval

import (
	"regexp"

	"github.com/roach88/candle/internal/diag"
)

// MaxIdentifierLength is the longest legal identifier.
const MaxIdentifierLength = 72

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// IsIdentifier reports whether s satisfies the identifier grammar and length.
func IsIdentifier(s string) bool {
	return len(s) <= MaxIdentifierLength && identifierPattern.MatchString(s)
}

// Identifier extracts an identifier, returning IllegalIdentifier on failure.
func Identifier(in *Input) (string, *diag.Message) {
	check(in)
	switch {
	case in.Value == "":
		return IllegalIdentifier, in.empty()
	case !identifierPattern.MatchString(in.Value):
		return IllegalIdentifier, msg(diag.IllegalIdentifier(in.Loc, in.Element, in.Attribute, in.Value))
	case len(in.Value) > MaxIdentifierLength:
		return IllegalIdentifier, msg(diag.IdentifierTooLong(in.Loc, in.Element, in.Attribute, in.Value, MaxIdentifierLength))
	}
	return in.Value, nil
}
