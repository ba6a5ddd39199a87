package attrval

import (
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
)

// GenerateGUID is the author's request for a generated GUID.
const GenerateGUID = "*"

// GUIDOptions relax GUID extraction.
type GUIDOptions struct {
	AllowEmpty    bool
	AllowGenerate bool
}

// GUID accepts the dashed or braced form and returns it upper case in braces.
// An empty value or "*" is returned verbatim when the options allow it.
// Unresolved localization placeholders pass through unchanged.
func GUID(in *Input, opts GUIDOptions) (string, *diag.Message) {
	check(in)
	v := in.Value
	switch {
	case v == "":
		if opts.AllowEmpty {
			return "", nil
		}
		return IllegalGUID, in.empty()
	case v == GenerateGUID && opts.AllowGenerate:
		return GenerateGUID, nil
	case ir.IsPlaceholder(v):
		return v, nil
	}

	if len(v) != 36 && !(len(v) == 38 && v[0] == '{' && v[37] == '}') {
		return IllegalGUID, msg(diag.IllegalGuidValue(in.Loc, in.Element, in.Attribute, v))
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return IllegalGUID, msg(diag.IllegalGuidValue(in.Loc, in.Element, in.Attribute, v))
	}
	return FormatGUID(id), nil
}

// FormatGUID renders id upper case in braces.
func FormatGUID(id uuid.UUID) string {
	return "{" + strings.ToUpper(id.String()) + "}"
}

// NewGUID returns a fresh random GUID in canonical form.
func NewGUID() string {
	return FormatGUID(uuid.New())
}
