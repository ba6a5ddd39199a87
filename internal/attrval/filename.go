package attrval

import (
	"regexp"

	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
)

var (
	shortFilename         = regexp.MustCompile(`^[^\\?|><:/*"+,;=\[\]. ]{1,8}(\.[^\\?|><:/*"+,;=\[\]. ]{1,3})?$`)
	shortFilenameWildcard = regexp.MustCompile(`^[^\\|><:/"+,;=\[\]. ]{1,8}(\.[^\\|><:/"+,;=\[\]. ]{1,3})?$`)
	longFilename          = regexp.MustCompile(`^[^\\?|><:/*"]{1,259}$`)
	longFilenameWildcard  = regexp.MustCompile(`^[^\\|><:/"]{1,259}$`)
)

// IsShortFilename reports whether name is a legal 8.3 file name.
func IsShortFilename(name string, allowWildcards bool) bool {
	if allowWildcards {
		return shortFilenameWildcard.MatchString(name)
	}
	return shortFilename.MatchString(name)
}

// IsLongFilename reports whether name is a legal long file name.
func IsLongFilename(name string, allowWildcards bool) bool {
	if name == "." || name == ".." {
		return false
	}
	if allowWildcards {
		return longFilenameWildcard.MatchString(name)
	}
	return longFilename.MatchString(name)
}

// ShortFilename extracts an 8.3 file name.
func ShortFilename(in *Input, allowWildcards bool) (string, *diag.Message) {
	check(in)
	switch {
	case in.Value == "":
		return "", in.empty()
	case ir.IsPlaceholder(in.Value), IsShortFilename(in.Value, allowWildcards):
		return in.Value, nil
	}
	return "", msg(diag.IllegalShortFilename(in.Loc, in.Element, in.Attribute, in.Value))
}

// LongFilename extracts a long file name.
func LongFilename(in *Input, allowWildcards bool) (string, *diag.Message) {
	check(in)
	switch {
	case in.Value == "":
		return "", in.empty()
	case ir.IsPlaceholder(in.Value), IsLongFilename(in.Value, allowWildcards):
		return in.Value, nil
	}
	return "", msg(diag.IllegalLongFilename(in.Loc, in.Element, in.Attribute, in.Value))
}
