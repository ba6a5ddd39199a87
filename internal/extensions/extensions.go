// Package extensions names the compiler extensions built into candle so that
// configuration files, scenarios and flags can refer to them.
package extensions

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/roach88/candle/internal/extension"
	"github.com/roach88/candle/internal/extensions/util"
)

// ErrUnknownExtension is returned for a name with no built-in extension.
var ErrUnknownExtension = errors.New("unknown extension")

// Factory builds a fresh extension value.
type Factory func() (extension.Extension, error)

var builtin = map[string]Factory{
	"util": func() (extension.Extension, error) { return util.New() },
}

// Names returns the built-in extension names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named extension.
func New(name string) (extension.Extension, error) {
	factory, ok := builtin[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownExtension, "%q (available: %v)", name, Names())
	}
	ext, err := factory()
	if err != nil {
		return nil, errors.Wrapf(err, "building extension %q", name)
	}
	return ext, nil
}

// Registrar is anything extensions can be registered with.
type Registrar interface {
	Register(ext extension.Extension) error
}

// RegisterAll builds and registers each named extension in order.
func RegisterAll(r Registrar, names []string) error {
	for _, name := range names {
		ext, err := New(name)
		if err != nil {
			return err
		}
		if err := r.Register(ext); err != nil {
			return errors.Wrapf(err, "registering extension %q", name)
		}
	}
	return nil
}
