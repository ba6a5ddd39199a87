// Package ident synthesizes deterministic identifiers for rows whose
// authoring omitted an explicit Id.
//
// An identifier is a short tag chosen by the element kind followed by the
// upper-case hex SHA-256 digest of the ordered arguments. Equal inputs always
// produce equal identifiers and argument order is significant.
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind selects the identifier tag.
type Kind string

// Kinds and their tags.
const (
	Registry        Kind = "reg"
	File            Kind = "fil"
	RemoveFile      Kind = "rmf"
	Component       Kind = "cmp"
	Directory       Kind = "dir"
	Class           Kind = "cls"
	ProgID          Kind = "prg"
	Extension       Kind = "ext"
	TypeLib         Kind = "tlb"
	Icon            Kind = "ico"
	User            Kind = "usr"
	UpgradeProperty Kind = "UPG"
	Signature       Kind = "sig"
	Control         Kind = "ctl"
	RemoveFolderEx  Kind = "wrf"
)

// MaxTagLength bounds a kind tag.
const MaxTagLength = 3

const argumentSeparator = "|"

// Tag returns the identifier prefix for the kind.
func (k Kind) Tag() string {
	return string(k)
}

// Generate returns tag + UPPER(hex(SHA-256(args joined by "|"))).
//
// Panics with an assertion failure when the kind tag is empty or longer than
// MaxTagLength; both are caller bugs.
func Generate(kind Kind, args ...string) string {
	tag := kind.Tag()
	if tag == "" || len(tag) > MaxTagLength {
		panic(errors.AssertionFailedf("identifier kind %q must be 1..%d characters", tag, MaxTagLength))
	}
	return tag + strings.ToUpper(hex.EncodeToString(digest(args)))
}

func digest(args []string) []byte {
	sum := sha256.Sum256([]byte(strings.Join(args, argumentSeparator)))
	return sum[:]
}
