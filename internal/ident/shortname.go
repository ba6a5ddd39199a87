package ident

import (
	"strings"
)

// shortNameAlphabet is the character set of synthesized 8.3 names. Letters
// are upper case so the name survives case-insensitive file systems.
const shortNameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"

// ShortName synthesizes a deterministic 8.3 file name for longName.
//
// The base is eight characters drawn from the digest of longName followed by
// args; the extension is the long name's extension truncated to three
// characters. When allowWildcards is false, '*' and '?' are dropped from the
// extension.
func ShortName(longName string, allowWildcards bool, args ...string) string {
	sum := digest(append([]string{strings.ToLower(longName)}, args...))

	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteByte(shortNameAlphabet[int(sum[i])%len(shortNameAlphabet)])
	}

	ext := ""
	if dot := strings.LastIndexByte(longName, '.'); dot >= 0 && dot < len(longName)-1 {
		ext = longName[dot+1:]
	}
	ext = strings.Map(func(r rune) rune {
		switch {
		case r == '*' || r == '?':
			if allowWildcards {
				return r
			}
			return -1
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return -1
		}
	}, ext)
	if len(ext) > 3 {
		ext = ext[:3]
	}

	if ext == "" {
		return b.String()
	}
	return b.String() + "." + ext
}
