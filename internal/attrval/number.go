package attrval

import (
	"strconv"
	"strings"

	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
)

// Common integer bounds.
const (
	MinInt16  = -1 << 15
	MaxInt16  = 1<<15 - 1
	MaxUint16 = 1<<16 - 1
	MinInt32  = -1 << 31
	MaxInt32  = 1<<31 - 1
)

// Integer parses a base-10 integer within [minValue, maxValue].
func Integer(in *Input, minValue, maxValue int64) (int64, *diag.Message) {
	check(in)
	if in.Value == "" {
		return IllegalInteger, in.empty()
	}
	n, err := strconv.ParseInt(in.Value, 10, 64)
	if err != nil {
		return IllegalInteger, msg(diag.IllegalIntegerValue(in.Loc, in.Element, in.Attribute, in.Value))
	}
	if n < minValue || n > maxValue {
		return IllegalInteger, msg(diag.IntegerOutOfRange(in.Loc, in.Element, in.Attribute, n, minValue, maxValue))
	}
	return n, nil
}

// LocalizableInteger is Integer that also passes an unresolved localization
// placeholder through verbatim as a String value.
func LocalizableInteger(in *Input, minValue, maxValue int64) (ir.Value, *diag.Message) {
	check(in)
	if ir.IsPlaceholder(in.Value) {
		return ir.String(in.Value), nil
	}
	n, m := Integer(in, minValue, maxValue)
	if m != nil {
		return ir.Int(IllegalInteger), m
	}
	return ir.Int(n), nil
}

// MaxVersionPart bounds each dotted version field.
const MaxVersionPart = 65534

// Version accepts one to four dot-separated fields each at most
// MaxVersionPart. Placeholders pass through.
func Version(in *Input) (string, *diag.Message) {
	check(in)
	if in.Value == "" {
		return "", in.empty()
	}
	if ir.IsPlaceholder(in.Value) {
		return in.Value, nil
	}
	parts := strings.Split(in.Value, ".")
	if len(parts) > 4 {
		return "", msg(diag.IllegalVersionValue(in.Loc, in.Element, in.Attribute, in.Value))
	}
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil || n > MaxVersionPart {
			return "", msg(diag.IllegalVersionValue(in.Loc, in.Element, in.Attribute, in.Value))
		}
	}
	return in.Value, nil
}

// Language accepts a comma-separated list of LCIDs.
func Language(in *Input) (string, *diag.Message) {
	check(in)
	if in.Value == "" {
		return "", in.empty()
	}
	if ir.IsPlaceholder(in.Value) {
		return in.Value, nil
	}
	for _, p := range strings.Split(in.Value, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return "", msg(diag.IllegalIntegerValue(in.Loc, in.Element, in.Attribute, in.Value))
		}
		if n < 0 || n > MaxUint16 {
			return "", msg(diag.IntegerOutOfRange(in.Loc, in.Element, in.Attribute, n, 0, MaxUint16))
		}
	}
	return in.Value, nil
}

// Registry roots in their stored encoding. HKMU resolves to HKLM or HKCU at
// install time depending on the installation context.
const (
	RootHKMU int64 = -1
	RootHKCR int64 = 0
	RootHKCU int64 = 1
	RootHKLM int64 = 2
	RootHKU  int64 = 3
)

var registryRoots = map[string]int64{
	"HKMU": RootHKMU,
	"HKCR": RootHKCR,
	"HKCU": RootHKCU,
	"HKLM": RootHKLM,
	"HKU":  RootHKU,
}

// RegistryRoot maps a root token to its stored encoding. HKMU is legal only
// when allowHKMU is set.
func RegistryRoot(in *Input, allowHKMU bool) (int64, *diag.Message) {
	check(in)
	legal := []string{"HKCR", "HKCU", "HKLM", "HKU"}
	if allowHKMU {
		legal = append([]string{"HKMU"}, legal...)
	}
	token, m := Enum(in, legal...)
	if m != nil {
		return IllegalInteger, m
	}
	return registryRoots[token], nil
}
