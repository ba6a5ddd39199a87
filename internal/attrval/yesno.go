package attrval

import (
	"github.com/roach88/candle/internal/diag"
)

// YesNo is a tri-state flag.
type YesNo int

const (
	YesNoNotSet YesNo = iota
	Yes
	No
	YesNoIllegal
)

func (v YesNo) String() string {
	switch v {
	case Yes:
		return "yes"
	case No:
		return "no"
	case YesNoIllegal:
		return "illegal"
	default:
		return ""
	}
}

// IsSet reports whether the author supplied a legal value.
func (v YesNo) IsSet() bool {
	return v == Yes || v == No
}

// ParseYesNo maps "yes"/"no" and reports any other token.
func ParseYesNo(in *Input) (YesNo, *diag.Message) {
	check(in)
	switch in.Value {
	case "yes":
		return Yes, nil
	case "no":
		return No, nil
	default:
		return YesNoIllegal, msg(diag.IllegalYesNoValue(in.Loc, in.Element, in.Attribute, in.Value))
	}
}

// YesNoDefault is a tri-state flag with an explicit "default" member.
type YesNoDefault int

const (
	YesNoDefaultNotSet YesNoDefault = iota
	YesNoDefaultYes
	YesNoDefaultNo
	YesNoDefaultDefault
	YesNoDefaultIllegal
)

func (v YesNoDefault) String() string {
	switch v {
	case YesNoDefaultYes:
		return "yes"
	case YesNoDefaultNo:
		return "no"
	case YesNoDefaultDefault:
		return "default"
	case YesNoDefaultIllegal:
		return "illegal"
	default:
		return ""
	}
}

// ParseYesNoDefault maps "yes"/"no"/"default" and reports any other token.
func ParseYesNoDefault(in *Input) (YesNoDefault, *diag.Message) {
	check(in)
	switch in.Value {
	case "yes":
		return YesNoDefaultYes, nil
	case "no":
		return YesNoDefaultNo, nil
	case "default":
		return YesNoDefaultDefault, nil
	default:
		return YesNoDefaultIllegal, msg(diag.IllegalYesNoDefaultValue(in.Loc, in.Element, in.Attribute, in.Value))
	}
}
